package ui

import (
	"errors"
	"testing"

	"citynav/internal/mapview"
	"citynav/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newForm(st *fakeStore) LocationFormModel {
	return *NewLocationFormModel(st, mapview.DefaultCenter)
}

func TestFormPrefillsMapCenter(t *testing.T) {
	f := newForm(newFakeStore())
	assert.Equal(t, "51.50500", f.Value(fieldLat))
	assert.Equal(t, "-0.09000", f.Value(fieldLng))
}

func TestFormRejectsMissingName(t *testing.T) {
	st := newFakeStore()
	f := newForm(st)

	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.Contains(t, f.Error(), "name is required")
	assert.False(t, f.Submitting())
	assert.Empty(t, st.added)
}

func TestFormRejectsNonNumericCoordinate(t *testing.T) {
	st := newFakeStore()
	f := newForm(st)
	f, _ = f.Update(keyRunes("Cafe"))
	f.inputs[fieldLat].SetValue("abc")

	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.Contains(t, f.Error(), "latitude")
	assert.Equal(t, "abc", f.Value(fieldLat), "input is kept")
	assert.Empty(t, st.added)
}

func TestFormSubmitDisablesUntilAcknowledged(t *testing.T) {
	st := newFakeStore()
	f := newForm(st)
	f, _ = f.Update(keyRunes("Corner Cafe"))

	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.True(t, f.Submitting())
	assert.Contains(t, f.View(80, 40), submittingLabel)

	// Typing is ignored while the submission is in flight.
	f, ignored := f.Update(keyRunes("zzz"))
	assert.Nil(t, ignored)
	assert.Equal(t, "Corner Cafe", f.Value(fieldName))

	msg := cmd()
	added, ok := msg.(model.LocationAddedMsg)
	require.True(t, ok)
	assert.Equal(t, "loc-1", added.ID)
	require.Len(t, st.added, 1)
	assert.Equal(t, "Corner Cafe", st.added[0].Name)
	assert.InDelta(t, 51.505, st.added[0].Lat, 1e-9)
}

func TestFormSubmitFailureKeepsValues(t *testing.T) {
	st := newFakeStore()
	st.addErr = errors.New("permission denied")
	f := newForm(st)
	f, _ = f.Update(keyRunes("Corner Cafe"))

	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	failed, ok := cmd().(model.LocationAddFailedMsg)
	require.True(t, ok)

	f.SubmitFailed(failed.Err)
	assert.False(t, f.Submitting())
	assert.Equal(t, AddFailedMessage+": permission denied", f.Error())
	assert.Equal(t, "Corner Cafe", f.Value(fieldName))

	f, _ = f.Update(keyRunes("!"))
	assert.Equal(t, "Corner Cafe!", f.Value(fieldName), "form is enabled again")
}

func TestFormCategorySuggestion(t *testing.T) {
	f := newForm(newFakeStore())
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, fieldCategory, f.focusedField)

	f, _ = f.Update(keyRunes("fo"))
	assert.Equal(t, []string{"food"}, f.suggestions)

	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "food", f.Value(fieldCategory))
	assert.Equal(t, fieldCategory, f.focusedField, "accepting a suggestion keeps focus")

	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldDescription, f.focusedField)
}

func TestFormFlagsUnknownCategory(t *testing.T) {
	f := newForm(newFakeStore())
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Empty(t, f.CategoryNote())

	f, _ = f.Update(keyRunes("food"))
	assert.Empty(t, f.CategoryNote())

	f = newForm(newFakeStore())
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	f, _ = f.Update(keyRunes("museum"))
	assert.Equal(t, "museum has no badge of its own", f.CategoryNote())

	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldDescription, f.focusedField)
	assert.Contains(t, f.View(80, 40), "museum has no badge of its own")
}

func TestSuggestCategories(t *testing.T) {
	assert.Nil(t, suggestCategories("  "))
	assert.Equal(t, []string{"accommodation"}, suggestCategories("acc"))
	assert.Equal(t, []string{"social"}, suggestCategories("SOC"))
	assert.Empty(t, suggestCategories("xyz"))
}

func TestFormCancel(t *testing.T) {
	f := newForm(newFakeStore())
	_, cmd := f.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, model.FormCancelledMsg{}, cmd())
}

func TestFormFieldCycling(t *testing.T) {
	f := newForm(newFakeStore())
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldLng, f.focusedField)
	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldName, f.focusedField)
}

func TestFormWithoutStore(t *testing.T) {
	f := *NewLocationFormModel(nil, mapview.DefaultCenter)
	f, _ = f.Update(keyRunes("Cafe"))
	_, cmd := f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	failed, ok := cmd().(model.LocationAddFailedMsg)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, errNoStore)
}
