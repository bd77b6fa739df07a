package tui

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/autocareer/internal/model"
)

// Lines per job in the list (title + subtitle + blank separator).
const jobItemHeight = 3

// StatusUpdater changes a job's lifecycle status.
type StatusUpdater interface {
	UpdateJobStatus(ctx context.Context, id int64, to model.JobStatus, errMsg string) (model.Job, error)
}

type jobUpdatedMsg struct {
	job model.Job
	err error
}

type browserModel struct {
	jobs    []model.Job
	cursor  int
	list    viewport.Model
	detail  viewport.Model
	width   int
	height  int
	ready   bool
	updater StatusUpdater
	notice  string
}

func newBrowserModel(jobs []model.Job, updater StatusUpdater) browserModel {
	sorted := slices.Clone(jobs)
	slices.SortStableFunc(sorted, func(a, b model.Job) int {
		return cmp.Compare(scoreOf(b), scoreOf(a))
	})
	return browserModel{jobs: sorted, updater: updater}
}

func scoreOf(j model.Job) int {
	if j.Score == nil {
		return -1
	}
	return *j.Score
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case jobUpdatedMsg:
		if msg.err != nil {
			m.notice = errStyle.Render(msg.err.Error())
		} else {
			for i := range m.jobs {
				if m.jobs[i].ID == msg.job.ID {
					m.jobs[i] = msg.job
				}
			}
			m.notice = okStyle.Render(fmt.Sprintf("%s is now %s", msg.job.Title, msg.job.Status))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.cursor = clamp(m.cursor-1, 0, max(len(m.jobs)-1, 0))
			m.refresh()
			return m, nil
		case "down", "j":
			m.cursor = clamp(m.cursor+1, 0, max(len(m.jobs)-1, 0))
			m.refresh()
			return m, nil
		case "o":
			if job, ok := m.current(); ok {
				openURL(job.URL)
			}
			return m, nil
		case "d":
			return m, m.setStatus(model.StatusDismissed)
		case "u":
			return m, m.setStatus(model.StatusSuggested)
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m browserModel) current() (model.Job, bool) {
	if len(m.jobs) == 0 {
		return model.Job{}, false
	}
	return m.jobs[m.cursor], true
}

func (m browserModel) setStatus(to model.JobStatus) tea.Cmd {
	job, ok := m.current()
	if !ok || m.updater == nil {
		return nil
	}
	updater := m.updater
	return func() tea.Msg {
		updated, err := updater.UpdateJobStatus(context.Background(), job.ID, to, "")
		return jobUpdatedMsg{job: updated, err: err}
	}
}

func (m *browserModel) layout() {
	listWidth := max(m.width*2/5, 24)
	detailWidth := max(m.width-listWidth-5, 24)
	height := max(m.height-3, 5)

	if !m.ready {
		m.list = viewport.New(listWidth, height)
		m.detail = viewport.New(detailWidth, height)
		m.ready = true
	} else {
		m.list.Width, m.list.Height = listWidth, height
		m.detail.Width, m.detail.Height = detailWidth, height
	}
	m.refresh()
}

func (m *browserModel) refresh() {
	if !m.ready {
		return
	}
	m.list.SetContent(renderJobList(m.jobs, m.cursor))
	m.detail.SetContent(m.renderDetail())
	m.detail.SetYOffset(0)

	top := m.cursor * jobItemHeight
	bottom := top + jobItemHeight - 1
	if top < m.list.YOffset {
		m.list.SetYOffset(top)
	} else if bottom >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(bottom - m.list.Height + 1)
	}
}

func renderJobList(jobs []model.Job, cursor int) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}
	var b strings.Builder
	for i, j := range jobs {
		prefix := "  "
		title := lipgloss.NewStyle().Bold(true)
		if i == cursor {
			prefix = "> "
			title = title.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24"))
		}
		score := mutedStyle.Render("--")
		if j.Score != nil {
			score = scoreStyle(*j.Score).Render(fmt.Sprintf("%3d", *j.Score))
		}
		b.WriteString(prefix + score + " " + title.Render(j.Title) + "\n")
		b.WriteString(prefix + "    " + mutedStyle.Render(fmt.Sprintf("%s · %s", j.Company, j.Status)) + "\n")
		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m browserModel) renderDetail() string {
	j, ok := m.current()
	if !ok {
		return ""
	}
	var b strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	b.WriteString(lipgloss.NewStyle().Bold(true).Render(j.Title) + "\n\n")
	field("Company", j.Company)
	if j.Score != nil {
		field("Score", scoreStyle(*j.Score).Render(fmt.Sprintf("%d/100", *j.Score)))
	}
	field("Status", string(j.Status))
	field("Found", j.CreatedAt.Format("2006-01-02 15:04"))
	field("URL", j.URL)
	field("Document", j.DocumentPath)
	if j.ErrorMessage != "" {
		field("Error", errStyle.Render(j.ErrorMessage))
	}

	if len(j.Requirements) > 0 {
		wrap := max(m.detail.Width-4, 20)
		b.WriteString("\n" + labelStyle.Render("Requirements") + "\n")
		for _, r := range j.Requirements {
			b.WriteString("  • " + wordWrap(r, wrap) + "\n")
		}
	}
	return b.String()
}

func (m browserModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		borderStyle.Width(m.list.Width).Render(m.list.View()),
		" ",
		borderStyle.BorderForeground(dim).Width(m.detail.Width).Render(m.detail.View()),
	)
	status := fmt.Sprintf(" %d jobs   ↑/↓ select  o open  d dismiss  u restore  q quit", len(m.jobs))
	if m.notice != "" {
		status += "   " + m.notice
	}
	return panes + "\n" + statusBarStyle.Width(m.width).Render(status)
}

// RunJobBrowser shows jobs best score first with a detail pane. updater may
// be nil for a read-only view.
func RunJobBrowser(jobs []model.Job, updater StatusUpdater) error {
	_, err := tea.NewProgram(newBrowserModel(jobs, updater), tea.WithAltScreen()).Run()
	return err
}
