package ui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"citynav/internal/category"
	"citynav/internal/mapview"
	"citynav/internal/model"
	"citynav/internal/store"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

const (
	fieldName = iota
	fieldCategory
	fieldDescription
	fieldLat
	fieldLng
)

const (
	// AddSucceededMessage is shown once the store acknowledged a new location.
	AddSucceededMessage = "Location added successfully!"
	// AddFailedMessage prefixes the error shown when the store rejected one.
	AddFailedMessage = "Failed to add location"

	submittingLabel = "Adding..."
	addTimeout      = 15 * time.Second
)

// LocationFormModel is the add-location form.
type LocationFormModel struct {
	store        store.Store
	focusedField int
	inputs       []textinput.Model
	suggestions  []string
	submitting   bool
	error        string
}

// NewLocationFormModel creates an empty form. The coordinates start at center.
func NewLocationFormModel(st store.Store, center mapview.LatLng) *LocationFormModel {
	inputs := make([]textinput.Model, 5)

	inputs[fieldName] = textinput.New()
	inputs[fieldName].Placeholder = "Location name"
	inputs[fieldName].Focus()
	inputs[fieldName].CharLimit = 100

	inputs[fieldCategory] = textinput.New()
	inputs[fieldCategory].Placeholder = strings.Join(model.KnownCategories(), ", ")
	inputs[fieldCategory].CharLimit = 40

	inputs[fieldDescription] = textinput.New()
	inputs[fieldDescription].Placeholder = "What makes it worth a visit?"
	inputs[fieldDescription].CharLimit = 500

	inputs[fieldLat] = textinput.New()
	inputs[fieldLat].Placeholder = "Latitude"
	inputs[fieldLat].CharLimit = 24
	inputs[fieldLat].SetValue(strconv.FormatFloat(center.Lat, 'f', 5, 64))

	inputs[fieldLng] = textinput.New()
	inputs[fieldLng].Placeholder = "Longitude"
	inputs[fieldLng].CharLimit = 24
	inputs[fieldLng].SetValue(strconv.FormatFloat(center.Lng, 'f', 5, 64))

	return &LocationFormModel{
		store:  st,
		inputs: inputs,
	}
}

// Submitting reports whether a submission is in flight.
func (m *LocationFormModel) Submitting() bool {
	return m.submitting
}

// Error returns the message shown under the fields.
func (m *LocationFormModel) Error() string {
	return m.error
}

// Value returns the raw text of field i.
func (m *LocationFormModel) Value(i int) string {
	return m.inputs[i].Value()
}

// CategoryNote warns that the typed category has no badge of its own. It is
// empty for blank or known categories.
func (m *LocationFormModel) CategoryNote() string {
	typed := strings.TrimSpace(m.inputs[fieldCategory].Value())
	if typed == "" || category.Known(typed) {
		return ""
	}
	return typed + " has no badge of its own"
}

// SubmitFailed re-enables the form after the store rejected a submission.
// Entered values are kept.
func (m *LocationFormModel) SubmitFailed(err error) {
	m.submitting = false
	m.error = AddFailedMessage
	if err != nil {
		m.error += ": " + err.Error()
	}
}

// Update handles input. Keys are ignored while a submission is in flight.
func (m LocationFormModel) Update(msg tea.KeyMsg) (LocationFormModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, func() tea.Msg {
			return model.FormCancelledMsg{}
		}
	case "ctrl+s":
		cmd := m.save()
		return m, cmd
	case "tab":
		if m.acceptSuggestion() {
			return m, nil
		}
		m.nextField()
		return m, nil
	case "shift+tab":
		m.prevField()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(msg)
	if m.focusedField == fieldCategory {
		m.suggestions = suggestCategories(m.inputs[fieldCategory].Value())
	}
	return m, cmd
}

// suggestCategories fuzzy-matches typed text against the known categories,
// best match first.
func suggestCategories(typed string) []string {
	typed = strings.TrimSpace(typed)
	if typed == "" {
		return nil
	}
	matches := fuzzy.Find(strings.ToLower(typed), model.KnownCategories())
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.Str)
	}
	return out
}

func (m *LocationFormModel) acceptSuggestion() bool {
	if m.focusedField != fieldCategory || len(m.suggestions) == 0 {
		return false
	}
	top := m.suggestions[0]
	if m.inputs[fieldCategory].Value() == top {
		return false
	}
	m.inputs[fieldCategory].SetValue(top)
	m.inputs[fieldCategory].CursorEnd()
	m.suggestions = nil
	return true
}

// View renders the form.
func (m *LocationFormModel) View(width, height int) string {
	var fields []string

	fields = append(fields, renderFormField("Name *", m.inputs[fieldName], m.focusedField == fieldName))
	categoryField := renderFormField("Category", m.inputs[fieldCategory], m.focusedField == fieldCategory)
	if m.focusedField == fieldCategory && len(m.suggestions) > 0 {
		categoryField = lipgloss.JoinVertical(lipgloss.Left, categoryField,
			MutedStyle.Render("  tab → "+strings.Join(m.suggestions, "  ")))
	} else if note := m.CategoryNote(); note != "" {
		categoryField = lipgloss.JoinVertical(lipgloss.Left, categoryField, MutedStyle.Render("  "+note))
	}
	fields = append(fields, categoryField)
	fields = append(fields, renderFormField("Description", m.inputs[fieldDescription], m.focusedField == fieldDescription))
	fields = append(fields, lipgloss.JoinHorizontal(lipgloss.Top,
		renderFormField("Latitude *", m.inputs[fieldLat], m.focusedField == fieldLat),
		" ",
		renderFormField("Longitude *", m.inputs[fieldLng], m.focusedField == fieldLng),
	))

	if m.submitting {
		fields = append(fields, "", MutedStyle.Render(submittingLabel))
	} else {
		fields = append(fields, "", HelpKeyStyle.Render("ctrl+s")+" "+HelpDescStyle.Render("add location"))
	}
	if m.error != "" {
		fields = append(fields, ErrorStyle.Render(m.error))
	}

	return PanelStyle.
		Width(max(width-4, 20)).
		Height(max(height-4, 1)).
		Render(strings.Join(fields, "\n\n"))
}

func (m *LocationFormModel) nextField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField = (m.focusedField + 1) % len(m.inputs)
	m.inputs[m.focusedField].Focus()
}

func (m *LocationFormModel) prevField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField--
	if m.focusedField < 0 {
		m.focusedField = len(m.inputs) - 1
	}
	m.inputs[m.focusedField].Focus()
}

// save validates the input and, when it is valid, disables the form and
// submits it. Validation errors are shown without contacting the store.
func (m *LocationFormModel) save() tea.Cmd {
	loc, err := store.ParseNewLocation(
		m.inputs[fieldName].Value(),
		m.inputs[fieldCategory].Value(),
		m.inputs[fieldDescription].Value(),
		m.inputs[fieldLat].Value(),
		m.inputs[fieldLng].Value(),
	)
	if err != nil {
		m.error = err.Error()
		return nil
	}

	m.error = ""
	m.submitting = true
	st := m.store
	return func() tea.Msg {
		if st == nil {
			return model.LocationAddFailedMsg{Err: errNoStore}
		}
		ctx, cancel := context.WithTimeout(context.Background(), addTimeout)
		defer cancel()
		id, err := st.Add(ctx, loc)
		if err != nil {
			return model.LocationAddFailedMsg{Err: err}
		}
		return model.LocationAddedMsg{ID: id}
	}
}

func renderFormField(label string, input textinput.Model, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}

	field := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render(label),
		input.View(),
	)

	return style.Render(field)
}
