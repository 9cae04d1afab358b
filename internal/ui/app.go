package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"citynav/internal/auth"
	"citynav/internal/basemap"
	"citynav/internal/logging"
	"citynav/internal/mapview"
	"citynav/internal/model"
	"citynav/internal/state"
	"citynav/internal/store"
	"citynav/internal/telemetry"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultMapWatchdog is how long the map may take to load before the error
// panel replaces it.
const DefaultMapWatchdog = 5 * time.Second

const (
	basemapTimeout = 10 * time.Second
	drainTimeout   = time.Second
	minListWidth   = 30
	chromeHeight   = 7
)

var errNoStore = errors.New("no location store configured")

// SessionFlags reads and clears the persisted guest flag.
type SessionFlags interface {
	auth.FlagStore
	auth.GuestFlags
}

// Options wires the navigator to its collaborators. Only Store is required
// for data; a nil Provider treats every non-guest visitor as signed out.
type Options struct {
	Store       store.Store
	Provider    auth.Provider
	Flags       SessionFlags
	Basemap     *basemap.Client
	Logger      *slog.Logger
	MapWatchdog time.Duration
}

type sessionStartMsg struct{}
type mapIdleMsg struct{}
type mapWatchdogMsg struct{}

type basemapMsg struct {
	view  basemap.View
	lines []string
	err   error
}

type snapshotEvent struct {
	locations []model.Location
	seq       int
	err       error
}

// Model is the root Bubble Tea model of the navigator.
type Model struct {
	opts   Options
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	gate    *auth.Gate
	state   *state.State
	mapView *MapPresenter
	list    *ListPresenter
	form    *LocationFormModel
	search  textinput.Model

	screen model.Screen
	mode   model.Mode
	gState GState

	width  int
	height int

	error       string
	info        string
	showingHelp bool

	events     chan snapshotEvent
	sub        store.Subscription
	seq        int
	redirect   bool
	signingOut bool

	keys KeyMap
}

// New creates the navigator.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.MapWatchdog <= 0 {
		opts.MapWatchdog = DefaultMapWatchdog
	}

	mv := NewMapPresenter(mapview.New(mapview.Options{}))
	list := NewListPresenter(mv.Focus)

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "Search locations"
	search.CharLimit = 100

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		opts:    opts,
		logger:  logger.With("component", "ui"),
		ctx:     ctx,
		cancel:  cancel,
		gate:    auth.NewGate(opts.Flags),
		state:   state.New(mv, list),
		mapView: mv,
		list:    list,
		search:  search,
		screen:  model.ScreenBrowse,
		mode:    model.ModeNav,
		gState:  GStateIdle,
		events:  make(chan snapshotEvent, 1),
		keys:    DefaultKeyMap(),
	}
}

// Init starts the session check, the loading spinner and the map watchdog.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return sessionStartMsg{} },
		m.list.Spinner().Tick,
		watchdogCmd(m.opts.MapWatchdog),
	)
}

// Redirect reports whether the navigator quit because the visitor must sign
// in again.
func (m Model) Redirect() bool {
	return m.redirect
}

// Gate returns the session gate.
func (m Model) Gate() *auth.Gate {
	return m.gate
}

// State returns the navigator state.
func (m Model) State() *state.State {
	return m.state
}

// MapPresenter returns the map presenter.
func (m Model) MapPresenter() *MapPresenter {
	return m.mapView
}

// ListPresenter returns the list presenter.
func (m Model) ListPresenter() *ListPresenter {
	return m.list
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		_, mapW, h := m.layout()
		m.mapView.Resize(mapW, h)
		return m, m.settleCmd()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}

		if key.Matches(msg, m.keys.Help) && m.mode == model.ModeNav {
			m.showingHelp = !m.showingHelp
			return m, nil
		}

		if m.showingHelp {
			if msg.String() == "esc" {
				m.showingHelp = false
			}
			return m, nil
		}

		switch m.mode {
		case model.ModeSearch:
			return m.handleSearchMode(msg)
		case model.ModeInsert:
			return m.handleInsertMode(msg)
		}
		return m.handleNavMode(msg)

	case spinner.TickMsg:
		return m, m.list.UpdateSpinner(msg)

	case sessionStartMsg:
		st, err := m.gate.Begin()
		if err != nil {
			m.logger.Debug("Session already started", "state", st.String())
			return m, nil
		}
		if st == auth.StateGuest {
			m.logger.Info("Browsing as guest")
			cmd := m.startData()
			return m, cmd
		}
		return m, authCheckCmd(m.ctx, m.opts.Provider)

	case model.AuthStateMsg:
		_, err := m.gate.Resolve(msg.User)
		if err != nil {
			m.logger.Debug("Ignoring auth state", "state", m.gate.State().String(), "error", err)
			return m, nil
		}
		if m.gate.ShouldRedirect() {
			m.logger.Info("No signed-in user, redirecting to login")
			m.redirect = true
			m.shutdown()
			return m, tea.Quit
		}
		if m.sub == nil && m.gate.Allowed() {
			cmd := m.startData()
			return m, cmd
		}
		return m, nil

	case model.SnapshotMsg:
		if msg.Seq <= m.seq {
			return m, m.waitForEvent()
		}
		m.seq = msg.Seq
		if len(msg.Locations) == 0 {
			m.logger.Info("Location store is empty, showing demo data")
			m.loadDemo()
		} else {
			m.list.SetNotice("")
			m.state.ReplaceRecords(msg.Locations)
		}
		return m, tea.Batch(m.waitForEvent(), m.settleCmd())

	case model.SnapshotErrorMsg:
		m.logger.Error("Location subscription failed", "error", msg.Err)
		telemetry.CaptureException(msg.Err, map[string]string{"component": "store"}, m.logger)
		m.loadDemo()
		return m, m.settleCmd()

	case mapIdleMsg:
		m.mapView.Map().Settle()
		return m, m.basemapCmd()

	case basemapMsg:
		m.handleBasemap(msg)
		return m, nil

	case mapWatchdogMsg:
		if !m.mapView.Loaded() {
			m.logger.Error("Map did not load in time", "timeout", m.opts.MapWatchdog)
			m.mapView.Fail("The map did not finish loading. Check your network connection and restart citynav.")
		}
		return m, nil

	case model.LocationAddedMsg:
		m.logger.Info("Location added", "id", msg.ID)
		m.screen = model.ScreenBrowse
		m.mode = model.ModeNav
		m.form = nil
		m.error = ""
		m.info = AddSucceededMessage
		return m, nil

	case model.LocationAddFailedMsg:
		m.logger.Error("Failed to add location", "error", msg.Err)
		telemetry.CaptureException(msg.Err, map[string]string{"component": "store", "operation": "add"}, m.logger)
		if m.form != nil {
			m.form.SubmitFailed(msg.Err)
		}
		m.error = AddFailedMessage
		return m, nil

	case model.FormCancelledMsg:
		m.mode = model.ModeNav
		m.screen = model.ScreenBrowse
		m.form = nil
		return m, nil

	case model.SignedOutMsg:
		if msg.Err != nil {
			m.logger.Warn("Sign-out finished with an error", "error", msg.Err)
		}
		m.redirect = true
		m.shutdown()
		return m, tea.Quit
	}

	return m, nil
}

// startData opens the location subscription. Snapshots reach the Update loop
// through m.events, in delivery order.
func (m *Model) startData() tea.Cmd {
	if m.opts.Store == nil {
		return func() tea.Msg { return model.SnapshotErrorMsg{Err: errNoStore} }
	}

	events, ctx := m.events, m.ctx
	seq := 0
	send := func(ev snapshotEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
	m.sub = m.opts.Store.Subscribe(ctx,
		func(locs []model.Location) {
			seq++
			send(snapshotEvent{locations: locs, seq: seq})
		},
		func(err error) {
			send(snapshotEvent{err: err})
		},
	)
	return m.waitForEvent()
}

func (m Model) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case ev := <-events:
			if ev.err != nil {
				return model.SnapshotErrorMsg{Err: ev.err}
			}
			return model.SnapshotMsg{Locations: ev.locations, Seq: ev.seq}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) loadDemo() {
	m.list.SetNotice(store.DemoNotice)
	m.state.ReplaceRecords(store.DemoLocations())
}

func (m *Model) shutdown() {
	if m.sub != nil {
		m.sub.Unsubscribe()
	}
	m.cancel()

	// Let the delivery goroutine exit before the caller closes the store.
	if d, ok := m.sub.(interface{ Done() <-chan struct{} }); ok {
		select {
		case <-d.Done():
		case <-time.After(drainTimeout):
			m.logger.Warn("Subscription still running after shutdown")
		}
	}
}

func authCheckCmd(ctx context.Context, provider auth.Provider) tea.Cmd {
	return func() tea.Msg {
		if provider == nil {
			return model.AuthStateMsg{}
		}
		users := make(chan *model.User, 1)
		stop := provider.OnAuthStateChanged(ctx, func(u *model.User) {
			select {
			case users <- u:
			default:
			}
		})
		defer stop()
		select {
		case u := <-users:
			return model.AuthStateMsg{User: u}
		case <-ctx.Done():
			return nil
		}
	}
}

func signOutCmd(ctx context.Context, provider auth.Provider, flags auth.GuestFlags, logger *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		return model.SignedOutMsg{Err: auth.SignOut(ctx, provider, flags, logger)}
	}
}

func watchdogCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return mapWatchdogMsg{} })
}

// settleCmd lets the map settle after the current batch of viewport changes.
func (m Model) settleCmd() tea.Cmd {
	if m.mapView.Map().Settled() {
		return nil
	}
	return func() tea.Msg { return mapIdleMsg{} }
}

func (m *Model) basemapCmd() tea.Cmd {
	if _, failed := m.mapView.Failed(); failed {
		return nil
	}
	client := m.opts.Basemap
	if !client.Enabled() {
		m.mapView.MarkLoaded()
		return nil
	}
	view := m.mapView.CurrentView()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), basemapTimeout)
		defer cancel()
		lines, err := client.Render(ctx, view)
		return basemapMsg{view: view, lines: lines, err: err}
	}
}

func (m *Model) handleBasemap(msg basemapMsg) {
	var tileErr *basemap.TileError
	switch {
	case msg.err == nil:
		if msg.view == m.mapView.CurrentView() {
			m.mapView.SetBackground(msg.lines, msg.view)
		}
		m.mapView.MarkLoaded()
	case errors.Is(msg.err, basemap.ErrZoomUnsupported):
		m.mapView.SetBackground(nil, msg.view)
		m.mapView.MarkLoaded()
	case errors.As(msg.err, &tileErr) && tileErr.Unauthorized():
		m.logger.Error("Tile server rejected the API key", "error", msg.err)
		telemetry.CaptureException(msg.err, map[string]string{"component": "basemap"}, m.logger)
		m.mapView.Fail("The tile server rejected the configured API key. Check CITYNAV_TILE_KEY.")
	default:
		m.logger.Warn("Failed to load basemap", "error", msg.err)
	}
}

func (m Model) layout() (listW, mapW, contentH int) {
	contentH = max(m.height-chromeHeight, 3)
	listW = max(minListWidth, m.width/3)
	if listW > m.width-10 {
		listW = max(m.width/2, 1)
	}
	mapW = max(m.width-listW-1, 1)
	return listW, mapW, contentH
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "g" {
		if m.gState == GStateFirstG {
			m.gState = GStateIdle
			m.list.JumpToTop()
			return m, nil
		}
		m.gState = GStateFirstG
		return m, nil
	}
	m.gState = GStateIdle
	m.info = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.list.MoveDown()
	case key.Matches(msg, m.keys.Up):
		m.list.MoveUp()
	case key.Matches(msg, m.keys.Bottom):
		m.list.JumpToBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.list.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.list.HalfPageUp()
	case key.Matches(msg, m.keys.Select):
		m.list.Activate()
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.Back):
		m.mapView.ClosePopup()
		m.error = ""
	case key.Matches(msg, m.keys.Search):
		m.mode = model.ModeSearch
		m.search.SetValue(m.state.SearchTerm())
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Filter):
		filters := model.FilterCategories()
		idx := int(msg.String()[0] - '1')
		if idx >= 0 && idx < len(filters) {
			m.state.SetCategory(filters[idx])
		}
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.NextFilter):
		m.cycleCategory(1)
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.PrevFilter):
		m.cycleCategory(-1)
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.Add):
		m.screen = model.ScreenAddLocation
		m.mode = model.ModeInsert
		m.error = ""
		m.form = NewLocationFormModel(m.opts.Store, m.mapView.Map().Center())
	case key.Matches(msg, m.keys.ZoomIn):
		m.mapView.Map().ZoomIn()
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.ZoomOut):
		m.mapView.Map().ZoomOut()
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.PanLeft):
		m.mapView.Map().Pan(-panStep(m.mapView), 0)
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.PanRight):
		m.mapView.Map().Pan(panStep(m.mapView), 0)
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.PanUp):
		m.mapView.Map().Pan(0, -panStep(m.mapView)/2)
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.PanDown):
		m.mapView.Map().Pan(0, panStep(m.mapView)/2)
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.Fit):
		m.mapView.FitToMarkers()
		return m, m.settleCmd()
	case key.Matches(msg, m.keys.SignOut):
		if m.signingOut {
			return m, nil
		}
		m.signingOut = true
		m.info = "Signing out..."
		return m, signOutCmd(m.ctx, m.opts.Provider, m.opts.Flags, m.logger)
	}
	return m, nil
}

// panStep moves a quarter of the canvas width per key press.
func panStep(p *MapPresenter) int {
	cols, _ := p.Map().Size()
	return max(cols/4, 2)
}

func (m *Model) cycleCategory(delta int) {
	filters := model.FilterCategories()
	idx := 0
	for i, c := range filters {
		if c == m.state.Category() {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(filters)) % len(filters)
	m.state.SetCategory(filters[idx])
}

// handleSearchMode feeds keystrokes to the search box. Every change re-runs
// the filter.
func (m Model) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = model.ModeNav
		m.search.Blur()
		return m, nil
	case "esc":
		m.mode = model.ModeNav
		m.search.Blur()
		m.search.SetValue("")
		m.state.SetSearchTerm("")
		return m, m.settleCmd()
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.state.SearchTerm() {
		m.state.SetSearchTerm(m.search.Value())
	}
	return m, tea.Batch(cmd, m.settleCmd())
}

// handleInsertMode handles add-location form input.
func (m Model) handleInsertMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = model.ModeNav
		return m, nil
	}
	newForm, cmd := m.form.Update(msg)
	m.form = &newForm
	if m.form.Error() == "" {
		m.error = ""
	}
	return m, cmd
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	guest := m.gate.IsGuest()
	if m.showingHelp {
		return RenderFullHelp(guest, m.width, m.height)
	}

	listW, _, contentH := m.layout()
	breadcrumb := []string{"Browse"}

	var content string
	switch m.screen {
	case model.ScreenAddLocation:
		breadcrumb = append(breadcrumb, "Add Location")
		if m.form != nil {
			content = m.form.View(m.width, contentH)
		}
	default:
		left := lipgloss.NewStyle().Width(listW).Height(contentH).MaxHeight(contentH).
			Render(m.list.View(listW, contentH))
		sep := MutedStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", contentH), "\n"))
		content = lipgloss.JoinHorizontal(lipgloss.Top, left, sep, m.mapView.View())
	}

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentH).
		MaxHeight(contentH).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(breadcrumb),
		renderFilterTabs(m.state.Category(), m.width),
		m.renderStatusLine(),
		content,
		RenderHelp(m.mode, guest, m.width),
	)
}

func (m Model) renderStatusLine() string {
	switch {
	case m.mode == model.ModeSearch:
		return lipgloss.NewStyle().Width(m.width).Padding(0, 1).Render(m.search.View())
	case m.error != "":
		return ErrorStyle.Width(m.width).Render("Error: " + m.error)
	case m.info != "":
		return SuccessStyle.Width(m.width).Render(m.info)
	case m.state.SearchTerm() != "":
		return StatusBarStyle.Width(m.width).Render("search: " + m.state.SearchTerm())
	default:
		return lipgloss.NewStyle().Width(m.width).Render("")
	}
}

func renderFilterTabs(active string, width int) string {
	var tabs []string
	for i, c := range model.FilterCategories() {
		label := string(rune('1'+i)) + " " + strings.ToUpper(c[:1]) + c[1:]
		style := FilterTabStyle
		if c == active {
			style = FilterTabActiveStyle
		}
		tabs = append(tabs, style.Render(label))
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Left, tabs...)
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		Render(tabBar)
}

func (m Model) renderHeader(breadcrumbParts []string) string {
	title := HeaderStyle.Render("citynav")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	who := "guest"
	if u := m.gate.User(); u != nil {
		who = u.Email
		if who == "" {
			who = u.UID
		}
	}
	right := BreadcrumbStyle.Render(who+"  ·  "+time.Now().Format("Mon 02 Jan")) + "  "

	padding := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return TitleStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}
