package ui

import (
	"fmt"
	"strings"
	"time"

	"citynav/internal/category"
	"citynav/internal/model"
	"citynav/internal/util"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// EmptyListMessage replaces the list when nothing matches.
	EmptyListMessage = "No locations found."
	// LoadingMessage is shown until the first snapshot arrives.
	LoadingMessage = "Loading map data..."

	rowHeight     = 2
	noDescription = "No description"
)

// ListPresenter renders the visible locations in the sidebar. Activating an
// entry asks focus to center the map on it.
type ListPresenter struct {
	rows   []model.Location
	cursor int
	offset int

	viewportHeight int

	notice  string
	loading bool
	spinner spinner.Model
	focus   func(id string) bool
	now     func() time.Time
}

// NewListPresenter creates a list in the loading state. focus is called with
// the selected location's ID when an entry is activated.
func NewListPresenter(focus func(id string) bool) *ListPresenter {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorAccent)
	return &ListPresenter{
		loading: true,
		spinner: s,
		focus:   focus,
		now:     time.Now,
	}
}

// Clear removes every entry.
func (m *ListPresenter) Clear() {
	m.rows = nil
	m.clampCursor()
}

// Render replaces the entries with records, in order.
func (m *ListPresenter) Render(records []model.Location) {
	m.rows = append([]model.Location(nil), records...)
	m.loading = false
	m.clampCursor()
}

// Rows returns the rendered entries.
func (m *ListPresenter) Rows() []model.Location {
	return append([]model.Location(nil), m.rows...)
}

// SetNotice sets the banner shown above the entries. An empty string hides it.
func (m *ListPresenter) SetNotice(notice string) {
	m.notice = notice
}

// Notice returns the banner text.
func (m *ListPresenter) Notice() string {
	return m.notice
}

// Loading reports whether the list is still waiting for data.
func (m *ListPresenter) Loading() bool {
	return m.loading
}

// Spinner returns the loading spinner.
func (m *ListPresenter) Spinner() spinner.Model {
	return m.spinner
}

// UpdateSpinner advances the loading spinner. It stops ticking once data
// has arrived.
func (m *ListPresenter) UpdateSpinner(msg spinner.TickMsg) tea.Cmd {
	if !m.loading {
		return nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

// Selected returns the entry under the cursor.
func (m *ListPresenter) Selected() (model.Location, bool) {
	if len(m.rows) == 0 {
		return model.Location{}, false
	}
	return m.rows[m.cursor], true
}

// Activate focuses the map on the selected entry. It reports whether the map
// had a marker to focus.
func (m *ListPresenter) Activate() bool {
	sel, ok := m.Selected()
	if !ok || m.focus == nil {
		return false
	}
	return m.focus(sel.ID)
}

func (m *ListPresenter) clampCursor() {
	if len(m.rows) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

func (m *ListPresenter) pageRows() int {
	if m.viewportHeight == 0 {
		return 10
	}
	return m.viewportHeight
}

// MoveDown moves the cursor down.
func (m *ListPresenter) MoveDown() {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
		if m.cursor >= m.offset+m.pageRows() {
			m.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (m *ListPresenter) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		if m.cursor < m.offset {
			m.offset--
		}
	}
}

// JumpToTop jumps to the first entry.
func (m *ListPresenter) JumpToTop() {
	m.cursor = 0
	m.offset = 0
}

// JumpToBottom jumps to the last entry.
func (m *ListPresenter) JumpToBottom() {
	if len(m.rows) > 0 {
		m.cursor = len(m.rows) - 1
		if vh := m.pageRows(); m.cursor >= vh {
			m.offset = m.cursor - vh + 1
		}
	}
}

// HalfPageDown moves down half a page.
func (m *ListPresenter) HalfPageDown() {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(m.cursor+max(m.pageRows()/2, 1), len(m.rows)-1)
	if vh := m.pageRows(); m.cursor >= m.offset+vh {
		m.offset = m.cursor - vh + 1
	}
}

// HalfPageUp moves up half a page.
func (m *ListPresenter) HalfPageUp() {
	m.cursor = max(m.cursor-max(m.pageRows()/2, 1), 0)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
}

// View renders the list.
func (m *ListPresenter) View(width, height int) string {
	var parts []string
	if m.notice != "" {
		parts = append(parts, NoticeStyle.Width(width).Render(util.TruncateString(m.notice, width-2)))
	}

	if m.loading {
		parts = append(parts, EmptyStateStyle.Width(width).Render(m.spinner.View()+" "+LoadingMessage))
		return lipgloss.NewStyle().Height(height).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}
	if len(m.rows) == 0 {
		parts = append(parts, EmptyStateStyle.Width(width).Render(EmptyListMessage))
		return lipgloss.NewStyle().Height(height).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Height(p)
	}
	status := StatusBarStyle.Render(fmt.Sprintf("%d locations  ·  %d/%d", len(m.rows), m.cursor+1, len(m.rows)))
	m.viewportHeight = max((height-used-lipgloss.Height(status))/rowHeight, 1)
	if m.cursor >= m.offset+m.viewportHeight {
		m.offset = m.cursor - m.viewportHeight + 1
	}

	var rows []string
	for i := m.offset; i < len(m.rows) && i < m.offset+m.viewportHeight; i++ {
		rows = append(rows, m.renderRow(m.rows[i], width, i == m.cursor))
	}
	parts = append(parts, strings.Join(rows, "\n"))

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	spacer := lipgloss.NewStyle().Height(max(0, height-lipgloss.Height(content)-lipgloss.Height(status))).Render("")
	return lipgloss.JoinVertical(lipgloss.Left, content, spacer, status)
}

func (m *ListPresenter) renderRow(r model.Location, width int, selected bool) string {
	badge := category.BadgeFor(r.Category)
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(badge.Color)).Render(badge.Glyph)

	title := util.TruncateString(r.Name, max(width-4, 1))
	style := NormalRowStyle
	if selected {
		style = SelectedRowStyle
	}
	line1 := dot + " " + style.Render(title)

	detail := badge.Label
	if added := util.FormatAddedHuman(r.CreatedAt, m.now()); added != "" {
		detail += " · " + added
	}
	desc := util.FirstLine(r.Description)
	if desc == "" {
		desc = noDescription
	}
	detail += " · " + desc
	line2 := "  " + MutedStyle.Render(util.TruncateString(detail, max(width-4, 1)))
	return line1 + "\n" + line2
}
