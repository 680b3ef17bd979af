package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-counter/internal/logger"
	"github.com/rovshanmuradov/solana-counter/internal/transaction"
	"github.com/rovshanmuradov/solana-counter/internal/ui/style"
)

const (
	logLines     = 6
	logTickEvery = 250 * time.Millisecond
)

// run is one pipeline as seen through its stage events.
type run struct {
	id        string
	stage     transaction.Stage
	outcome   transaction.Outcome
	signature string
	detail    string
	started   time.Time
	updated   time.Time
}

func (r *run) finished() bool {
	return r.stage == transaction.StageConfirmed || r.stage == transaction.StageFailed
}

// Model renders submission progress: one row per pipeline run plus recent logs.
type Model struct {
	title    string
	bridge   *Bridge
	logs     *logger.LogBuffer
	spinner  spinner.Model
	keys     KeyMap
	styles   style.Styles
	runs     []*run
	index    map[string]*run
	showLogs bool
	done     bool
	quit     bool
	summary  string
	err      error
}

func NewModel(title string, bridge *Bridge, logs *logger.LogBuffer) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	styles := style.NewStyles(style.DefaultPalette())
	s.Style = styles.Stage
	return Model{
		title:    title,
		bridge:   bridge,
		logs:     logs,
		spinner:  s,
		keys:     DefaultKeyMap(),
		styles:   styles,
		index:    map[string]*run{},
		showLogs: logs != nil,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bridge.Listen(), logTick())
}

func logTick() tea.Cmd {
	return tea.Tick(logTickEvery, func(time.Time) tea.Msg { return logTickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quit = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.ToggleLogs):
			m.showLogs = !m.showLogs && m.logs != nil
		}
		return m, nil

	case StageMsg:
		m.apply(msg.Event)
		return m, m.bridge.Listen()

	case DoneMsg:
		m.done = true
		m.summary = msg.Summary
		m.err = msg.Err
		return m, tea.Quit

	case logTickMsg:
		if m.done {
			return m, nil
		}
		return m, logTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) apply(ev transaction.StageEvent) {
	r, ok := m.index[ev.RunID]
	if !ok {
		r = &run{id: ev.RunID, started: ev.At}
		m.index[ev.RunID] = r
		m.runs = append(m.runs, r)
	}
	r.stage = ev.Stage
	r.outcome = ev.Outcome
	r.detail = ev.Detail
	r.updated = ev.At
	if ev.Signature != (solana.Signature{}) {
		r.signature = ev.Signature.String()
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n")

	var rows []string
	for i, r := range m.runs {
		rows = append(rows, m.renderRun(i, r))
	}
	if len(rows) == 0 {
		rows = append(rows, m.spinner.View()+" preparing…")
	}
	b.WriteString(m.styles.Container.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	if m.showLogs && m.logs != nil {
		b.WriteString(m.renderLogs())
		b.WriteString("\n")
	}

	switch {
	case m.done && m.err != nil:
		b.WriteString(m.styles.Failed.Render("✗ " + m.err.Error()))
	case m.done:
		b.WriteString(m.styles.Done.Render("✓ " + m.summary))
	default:
		b.WriteString(m.styles.Help.Render(fmt.Sprintf("%s • %s",
			m.keys.Quit.Help().Desc, m.keys.ToggleLogs.Help().Desc)))
	}
	return b.String() + "\n"
}

func (m Model) renderRun(i int, r *run) string {
	label := m.styles.Label.Render(fmt.Sprintf("#%d", i+1))
	var status string
	switch {
	case r.stage == transaction.StageConfirmed:
		status = m.styles.Done.Render("✓ confirmed")
	case r.stage == transaction.StageFailed:
		status = m.styles.Failed.Render("✗ " + r.outcome.String())
	default:
		status = m.spinner.View() + " " + m.styles.Stage.Render(r.stage.String())
	}

	parts := []string{label, status}
	if r.signature != "" {
		parts = append(parts, m.styles.Muted.Render(shorten(r.signature)))
	}
	if r.detail != "" {
		parts = append(parts, m.styles.Muted.Render(r.detail))
	}
	if r.finished() {
		parts = append(parts, m.styles.Muted.Render(r.updated.Sub(r.started).Round(time.Millisecond).String()))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderLogs() string {
	var lines []string
	for _, e := range m.logs.GetRecentLogs(logLines) {
		line := fmt.Sprintf("%s %s", e.Timestamp.Format("15:04:05"), e.Message)
		switch e.Level {
		case "ERROR", "FATAL":
			line = m.styles.LogError.Render(line)
		case "WARN":
			line = m.styles.LogWarn.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.Muted.Render("no logs yet"))
	}
	return m.styles.Logs.Render(strings.Join(lines, "\n"))
}

func shorten(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "…" + sig[len(sig)-8:]
	}
	return sig
}

// Run shows progress while work executes and returns work's error. Quitting
// the view cancels the context passed to work and waits for it to return.
func Run(ctx context.Context, title string, logs *logger.LogBuffer, work func(ctx context.Context, observer transaction.Observer) (string, error), opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := NewBridge(256)
	result := make(chan error, 1)
	go func() {
		summary, err := work(ctx, bridge)
		bridge.Finish(summary, err)
		result <- err
	}()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, runErr := tea.NewProgram(NewModel(title, bridge, logs), opts...).Run()
	bridge.Close()
	cancel()

	workErr := <-result
	if workErr != nil {
		return workErr
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("progress view: %w", runErr)
	}
	return nil
}
