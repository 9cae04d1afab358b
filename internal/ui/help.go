package ui

import (
	"strings"

	"citynav/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders the footer for the current mode. guest changes the
// sign-out label.
func RenderHelp(mode model.Mode, guest bool, width int) string {
	switch {
	case mode == model.ModeInsert:
		return renderFormHelp(width)
	case mode == model.ModeSearch:
		return renderSearchHelp(width)
	default:
		return renderBrowseHelp(guest, width)
	}
}

// SignOutLabel names the sign-out action.
func SignOutLabel(guest bool) string {
	if guest {
		return "exit guest mode"
	}
	return "sign out"
}

func renderBrowseHelp(guest bool, width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("enter", "show on map"),
		helpKey("/", "search"),
		helpKey("1-4", "category"),
		helpKey("+/-", "zoom"),
		helpKey("HJKL", "pan"),
		helpKey("a", "add"),
		helpKey("x", SignOutLabel(guest)),
		helpKey("?", "help"),
	}
	return renderHelpLine(keys, width)
}

func renderSearchHelp(width int) string {
	keys := []string{
		helpKey("type", "filter by name or description"),
		helpKey("enter", "done"),
		helpKey("esc", "clear"),
	}
	return renderHelpLine(keys, width)
}

func renderFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field / accept"),
		helpKey("shift+tab", "prev field"),
		helpKey("ctrl+s", "save"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(guest bool, width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("List"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"gg", "Jump to top"},
			{"G", "Jump to bottom"},
			{"ctrl+d", "Half page down"},
			{"ctrl+u", "Half page up"},
			{"enter / l", "Show selected location on the map"},
		}),
		titleSection("Filter"),
		helpSection([]helpItem{
			{"/", "Search names and descriptions"},
			{"1 2 3 4", "All / Accommodation / Food / Social"},
			{"tab / shift+tab", "Cycle category"},
		}),
		titleSection("Map"),
		helpSection([]helpItem{
			{"+ / -", "Zoom in / out"},
			{"H J K L", "Pan left / down / up / right"},
			{"f", "Fit all visible markers"},
			{"esc", "Close popup"},
		}),
		titleSection("Session"),
		helpSection([]helpItem{
			{"a", "Add location"},
			{"x", strings.ToUpper(SignOutLabel(guest)[:1]) + SignOutLabel(guest)[1:]},
			{"q", "Quit"},
			{"?", "Toggle help"},
		}),
		titleSection("Add Location"),
		helpSection([]helpItem{
			{"tab", "Next field, or accept the category suggestion"},
			{"shift+tab", "Previous field"},
			{"ctrl+s", "Save"},
			{"esc", "Cancel"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
