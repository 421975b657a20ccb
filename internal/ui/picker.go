package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3burn/internal/providers"
)

// PickerItem is one entry shown in the interactive picker.
type PickerItem struct {
	Label    string // primary text (e.g. token symbol)
	SubLabel string // secondary text shown dimmed (e.g. balance)
	Value    string // value returned on selection
}

type pickerModel struct {
	title    string
	items    []PickerItem
	cursor   int
	selected *PickerItem
	quitting bool
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch s := key.String(); {
	case s == "q" || s == "ctrl+c" || s == "esc" || len(m.items) == 0:
		m.quitting = true
		return m, tea.Quit
	case s == "up" || s == "k":
		m.cursor = (m.cursor - 1 + len(m.items)) % len(m.items)
	case s == "down" || s == "j":
		m.cursor = (m.cursor + 1) % len(m.items)
	case s == "enter" || s == " ":
		item := m.items[m.cursor]
		m.selected = &item
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting || m.selected != nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n" + StyleTitle.Render("  "+m.title) + "\n\n")
	for i, item := range m.items {
		line := "    " + StyleValue.Render(item.Label)
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}
		if i == m.cursor {
			line = StyleSelected.Render("  ▸ " + strings.TrimPrefix(line, "    "))
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("  [ ↑↓ / jk ] navigate   [ Enter ] select   [ q ] cancel") + "\n")
	return sb.String()
}

// PickItem runs an interactive list picker and returns the selected item's
// Value. It returns ("", nil) if the user cancels.
func PickItem(title string, items []PickerItem, opts ...tea.ProgramOption) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to pick from")
	}

	p := tea.NewProgram(pickerModel{title: title, items: items}, opts...)
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	fm := final.(pickerModel)
	if fm.quitting || fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}

// TokenItems turns holdings into picker entries whose Value is the token
// contract address.
func TokenItems(hs []providers.Holding) []PickerItem {
	items := make([]PickerItem, len(hs))
	for i, h := range hs {
		items[i] = PickerItem{
			Label:    fmt.Sprintf("%-8s %s", h.Symbol, h.Name),
			SubLabel: h.FormattedBalance,
			Value:    h.Address.Hex(),
		}
	}
	return items
}

// PickToken lets the user choose one of hs and returns its address.
func PickToken(hs []providers.Holding) (string, error) {
	return PickItem("Select a token to burn", TokenItems(hs), tea.WithAltScreen())
}
