package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/autocareer/internal/scan"
)

// PollInterval is how often the watch view samples scan status.
const PollInterval = 250 * time.Millisecond

// StatusSource is the scan coordinator as seen by the watch view.
type StatusSource interface {
	GetStatus() scan.Progress
	Abort() bool
}

type statusMsg scan.Progress

type watchModel struct {
	source   StatusSource
	scanID   string
	status   scan.Progress
	spinner  spinner.Model
	bar      progress.Model
	width    int
	aborting bool
	finished bool
	detached bool
}

func newWatchModel(src StatusSource, scanID string) watchModel {
	return watchModel{
		source:  src,
		scanID:  scanID,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m watchModel) poll() tea.Cmd {
	src := m.source
	return tea.Tick(PollInterval, func(time.Time) tea.Msg {
		return statusMsg(src.GetStatus())
	})
}

func (m watchModel) Init() tea.Cmd {
	src := m.source
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return statusMsg(src.GetStatus()) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = clamp(msg.Width-20, 10, 60)
		return m, nil

	case statusMsg:
		m.status = scan.Progress(msg)
		if !m.status.Active && m.status.ScanID == m.scanID {
			m.finished = true
			return m, tea.Quit
		}
		return m, m.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "a":
			if !m.aborting && m.source.Abort() {
				m.aborting = true
			}
		case "q", "ctrl+c":
			m.detached = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	st := m.status
	var b strings.Builder

	heading := "Scanning"
	switch {
	case m.finished:
		heading = "Scan finished"
	case m.aborting:
		heading = "Aborting"
	}
	fmt.Fprintf(&b, "\n  %s %s  %s\n\n", m.spinner.View(), heading, mutedStyle.Render(m.scanID))

	pct := 0.0
	if st.TotalSources > 0 {
		pct = float64(st.CompletedSources) / float64(st.TotalSources)
	}
	fmt.Fprintf(&b, "  %s  %d/%d sources\n\n", m.bar.ViewAs(pct), st.CompletedSources, st.TotalSources)

	b.WriteString("  " + labelStyle.Render("Found") + fmt.Sprint(st.JobsFound) + "\n")
	b.WriteString("  " + labelStyle.Render("Scored") + fmt.Sprint(st.JobsScored) + "\n")
	if st.CurrentSource != "" {
		b.WriteString("  " + labelStyle.Render("Scanning") + st.CurrentSource + "\n")
	}

	if len(st.Results) > 0 {
		b.WriteByte('\n')
		for _, res := range st.Results {
			b.WriteString("  " + resultLine(res) + "\n")
		}
	}

	b.WriteString(hintStyle.Render("a abort scan  q detach"))
	b.WriteByte('\n')
	return b.String()
}

func resultLine(res scan.SourceResult) string {
	if res.Error != "" {
		return errStyle.Render("✗ "+res.SourceName) + "  " + mutedStyle.Render(res.Error)
	}
	counts := fmt.Sprintf("found %d · added %d · skipped %d", res.Found, res.Added, res.Skipped)
	return okStyle.Render("✓ "+res.SourceName) + "  " + mutedStyle.Render(counts)
}

// RunScanWatch renders live progress of scanID until it finishes. It returns
// detached=true if the user left before the scan completed.
func RunScanWatch(src StatusSource, scanID string) (detached bool, err error) {
	result, err := tea.NewProgram(newWatchModel(src, scanID)).Run()
	if err != nil {
		return false, err
	}
	return result.(watchModel).detached, nil
}
