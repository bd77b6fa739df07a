package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/autocareer/internal/model"
)

type pickerModel struct {
	sources  []model.Source
	cursor   int
	selected map[int]bool
	done     bool
	quit     bool
}

func newPickerModel(sources []model.Source) pickerModel {
	return pickerModel{sources: sources, selected: map[int]bool{}}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "esc", "ctrl+c":
		m.quit = true
		return m, tea.Quit
	case "up", "k":
		m.cursor = clamp(m.cursor-1, 0, max(len(m.sources)-1, 0))
	case "down", "j":
		m.cursor = clamp(m.cursor+1, 0, max(len(m.sources)-1, 0))
	case " ", "space", "x":
		m.selected[m.cursor] = !m.selected[m.cursor]
	case "a":
		all := len(m.chosen()) < len(m.sources)
		for i := range m.sources {
			m.selected[i] = all
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// chosen returns the ticked source IDs in list order.
func (m pickerModel) chosen() []int64 {
	var ids []int64
	for i, src := range m.sources {
		if m.selected[i] {
			ids = append(ids, src.ID)
		}
	}
	return ids
}

func (m pickerModel) View() string {
	s := titleStyle.Render("Scan sources") + "\n"
	for i, src := range m.sources {
		box := "[ ]"
		if m.selected[i] {
			box = "[x]"
		}
		label := fmt.Sprintf("%s %s  %s", box, src.Name, mutedStyle.Render(src.URL))
		if i == m.cursor {
			s += selectedItemStyle.Render("> "+label) + "\n"
		} else {
			s += itemStyle.Render(label) + "\n"
		}
	}
	s += hintStyle.Render("↑/↓ navigate  space toggle  a all  enter scan  q quit")
	return s
}

// RunSourcePicker lets the user choose sources to scan. It returns the
// chosen IDs, falling back to the highlighted source when none are ticked,
// and ok=false if the user quit.
func RunSourcePicker(sources []model.Source) ([]int64, bool, error) {
	if len(sources) == 0 {
		return nil, false, nil
	}
	result, err := tea.NewProgram(newPickerModel(sources)).Run()
	if err != nil {
		return nil, false, err
	}
	final := result.(pickerModel)
	if final.quit || !final.done {
		return nil, false, nil
	}
	ids := final.chosen()
	if len(ids) == 0 {
		ids = []int64{final.sources[final.cursor].ID}
	}
	return ids, true, nil
}
