package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexiqai/echo-speech/internal/analysis"
)

// ModuleDoneMsg reports that one analysis finished.
type ModuleDoneMsg struct {
	Kind   analysis.Kind
	Report analysis.Report
}

// AllCompleteMsg indicates every analysis has finished.
type AllCompleteMsg struct{}

type tickMsg time.Time

type moduleStatus int

const (
	statusRunning moduleStatus = iota
	statusSucceeded
	statusFailed
)

type moduleProgress struct {
	kind    analysis.Kind
	status  moduleStatus
	detail  string
	elapsed time.Duration
}

// ProgressModel is the Bubbletea model shown while analyses run.
type ProgressModel struct {
	file    string
	modules []moduleProgress
	start   time.Time
	now     time.Time

	// Done is set once every module reported; Cancelled when the user quit
	// before that.
	Done      bool
	Cancelled bool
}

// NewProgressModel creates a model tracking kinds for file.
func NewProgressModel(file string, kinds []analysis.Kind) ProgressModel {
	modules := make([]moduleProgress, len(kinds))
	for i, kind := range kinds {
		modules[i] = moduleProgress{kind: kind}
	}
	now := time.Now()
	return ProgressModel{file: file, modules: modules, start: now, now: now}
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the elapsed-time ticker.
func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Done {
				m.Cancelled = true
			}
			return m, tea.Quit
		}

	case tickMsg:
		m.now = time.Time(msg)
		if m.Done {
			return m, nil
		}
		return m, tick()

	case ModuleDoneMsg:
		for i := range m.modules {
			if m.modules[i].kind != msg.Kind {
				continue
			}
			m.modules[i].elapsed = time.Since(m.start)
			m.modules[i].status = statusSucceeded
			if f, ok := msg.Report.(*analysis.Failure); ok {
				m.modules[i].status = statusFailed
				m.modules[i].detail = f.ErrorName
			}
		}

	case AllCompleteMsg:
		m.Done = true
		m.now = time.Now()
		return m, tea.Quit
	}

	return m, nil
}

// View renders the module list.
func (m ProgressModel) View() string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("echo-speech"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s %s\n\n", KeyStyle.Render("File:"), ValueStyle.Render(m.file)))

	for _, mod := range m.modules {
		switch mod.status {
		case statusSucceeded:
			sb.WriteString(successStyle.Render("  ✓ "))
			sb.WriteString(fmt.Sprintf("%-13s %s", mod.kind, KeyStyle.Render(mod.elapsed.Round(10*time.Millisecond).String())))
		case statusFailed:
			sb.WriteString(failedStyle.Render("  ✗ "))
			sb.WriteString(fmt.Sprintf("%-13s %s", mod.kind, failedStyle.Render(mod.detail)))
		default:
			sb.WriteString(pendingStyle.Render("  … "))
			sb.WriteString(fmt.Sprintf("%-13s %s", mod.kind, KeyStyle.Render("running")))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(KeyStyle.Render(fmt.Sprintf("Elapsed %s", m.now.Sub(m.start).Round(100*time.Millisecond))))
	if !m.Done {
		sb.WriteString(KeyStyle.Render("  (q to cancel)"))
	}
	sb.WriteString("\n")
	return sb.String()
}
