// Package tui renders a live view of one run on top of console.RunDetail.
package tui

import (
	"context"
	"fmt"
	"strings"

	"cineflow/console/internal/console"
	"cineflow/console/internal/events"
	"cineflow/console/internal/filter"
	"cineflow/console/internal/model"
	"cineflow/console/internal/poll"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const eventBuffer = 32

// Detail is the part of console.RunDetail the view drives.
type Detail interface {
	Topic() string
	Start(ctx context.Context)
	Snapshot() console.RunSnapshot
	Retry(ctx context.Context, taskID string) error
}

type eventMsg events.Event

type streamClosedMsg struct{}

type retryDoneMsg struct {
	taskID string
	err    error
}

type Model struct {
	ctx    context.Context
	detail Detail
	events <-chan events.Event

	snap        console.RunSnapshot
	onlyFailed  bool
	cursor      int
	width       int
	status      string
	lastErr     string
	bar         progress.Model
	spin        spinner.Model
	streamEnded bool
}

func New(ctx context.Context, detail Detail, ch <-chan events.Event) Model {
	return Model{
		ctx:    ctx,
		detail: detail,
		events: ch,
		snap:   detail.Snapshot(),
		width:  80,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Run subscribes to the detail's topic, starts it and blocks until the user quits or
// ctx ends. The caller disposes of detail.
func Run(ctx context.Context, detail Detail, hub *events.Hub) error {
	_, ch, unsubscribe := hub.Subscribe(detail.Topic(), eventBuffer)
	defer unsubscribe()
	detail.Start(ctx)

	p := tea.NewProgram(New(ctx, detail, ch), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run watch: %w", err)
	}
	return nil
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(evt)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(60, msg.Width-30))
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	case eventMsg:
		m.applyEvent(events.Event(msg))
		return m, waitForEvent(m.events)
	case streamClosedMsg:
		m.streamEnded = true
		return m, nil
	case retryDoneMsg:
		if msg.err != nil {
			m.status = ""
			m.lastErr = fmt.Sprintf("retry %s: %v", msg.taskID, msg.err)
		} else {
			m.lastErr = ""
			m.status = "retry accepted for " + msg.taskID
		}
		m.snap = m.detail.Snapshot()
		m.clampCursor()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case "f":
		m.onlyFailed = !m.onlyFailed
		m.cursor = 0
	case "r":
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		if !task.CanRetry() {
			m.status = ""
			m.lastErr = fmt.Sprintf("task %s is not retryable", task.ID)
			return m, nil
		}
		m.status = "retrying " + task.ID
		return m, m.retry(task.ID)
	}
	return m, nil
}

func (m Model) retry(taskID string) tea.Cmd {
	ctx, detail := m.ctx, m.detail
	return func() tea.Msg {
		return retryDoneMsg{taskID: taskID, err: detail.Retry(ctx, taskID)}
	}
}

func (m *Model) applyEvent(evt events.Event) {
	switch evt.Type {
	case events.TasksSnapshot:
		if snap, ok := evt.Payload.(console.RunSnapshot); ok {
			m.snap = snap
		} else {
			m.snap = m.detail.Snapshot()
		}
		m.lastErr = m.snap.LastError
	case events.PollFailed:
		m.lastErr = fmt.Sprint(evt.Payload)
	case events.PollConverged:
		m.snap = m.detail.Snapshot()
		m.status = "all tasks final"
	case events.RetryFailed:
		if p, ok := evt.Payload.(map[string]string); ok {
			m.lastErr = fmt.Sprintf("retry %s: %s", p["task_id"], p["error"])
		}
	}
	m.clampCursor()
}

func (m Model) visible() []model.Task {
	if !m.onlyFailed {
		return m.snap.Tasks
	}
	return filter.Tasks(m.snap.Tasks, filter.Criteria{Status: filter.StatusFailedRetryable})
}

func (m Model) selected() (model.Task, bool) {
	tasks := m.visible()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) View() string {
	var b strings.Builder
	run := m.snap.Run
	title := "Run " + run.ID
	if run.StoryboardName != "" {
		title += " · " + run.StoryboardName
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	sum := m.snap.Summary
	indicator := ""
	if m.snap.State == poll.Polling {
		indicator = m.spin.View() + " "
	}
	fmt.Fprintf(&b, "%s%s %d%%  %s\n", indicator, m.bar.ViewAs(float64(sum.Percent)/100), sum.Percent,
		mutedStyle.Render(fmt.Sprintf("total %d  completed %d  running %d  queued %d  failed %d",
			sum.Total, sum.Completed, sum.Running, sum.Queued, sum.Failed)))

	b.WriteString(panelStyle.Render(m.renderTasks()))
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(okStyle.Render(m.status))
		b.WriteString("\n")
	}
	scope := "all tasks"
	if m.onlyFailed {
		scope = "failed retryable"
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("[%s] ↑/↓ select · r retry · f toggle filter · q quit", scope)))
	return b.String()
}

func (m Model) renderTasks() string {
	tasks := m.visible()
	if len(tasks) == 0 {
		return mutedStyle.Render("no tasks")
	}
	pending := make(map[string]bool, len(m.snap.Pending))
	for _, id := range m.snap.Pending {
		pending[id] = true
	}
	lines := make([]string, 0, len(tasks))
	for i, t := range tasks {
		line := fmt.Sprintf("#%-3d %-36s %-16s", t.SegmentIndex, t.ID, StatusStyle(t.Status).Render(string(t.Status)))
		if t.ErrorCode != nil {
			line += " " + string(*t.ErrorCode)
			if t.Retryable {
				line += " (retryable)"
			}
		}
		if pending[t.ID] {
			line += " " + mutedStyle.Render("retry pending")
		}
		if i == m.cursor {
			line = selStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
