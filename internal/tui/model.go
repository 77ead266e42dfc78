package tui

import (
	"context"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/evanschultz/tasklist/internal/app"
	"github.com/evanschultz/tasklist/internal/domain"
	"github.com/evanschultz/tasklist/internal/output"
)

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTask
	modeEditTask
)

// Model is the Bubble Tea screen over one task list controller.
type Model struct {
	ctrl *app.Controller
	snap app.Snapshot

	mode     inputMode
	selected int
	busy     int
	status   string

	createInput textinput.Model
	editInput   textinput.Model
	help        help.Model
	keys        keyMap

	timeOpts output.TimeOptions
	copyText func(string) error

	width  int
	height int
	ready  bool
}

// syncedMsg reports one finished controller call.
type syncedMsg struct {
	op  string
	err error
}

// yankedMsg reports one clipboard copy.
type yankedMsg struct {
	id  string
	err error
}

// NewModel constructs a new value for this package.
func NewModel(ctrl *app.Controller, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	createInput := textinput.New()
	createInput.Prompt = "› "
	createInput.Placeholder = "What needs to be done?"
	createInput.CharLimit = 500
	editInput := textinput.New()
	editInput.Prompt = "✎ "
	editInput.CharLimit = 500
	m := Model{
		ctrl: ctrl,
		snap: ctrl.Snapshot(),
		// Init dispatches the first load.
		busy:        1,
		status:      "loading...",
		createInput: createInput,
		editInput:   editInput,
		help:        h,
		keys:        newKeyMap(),
		timeOpts: output.TimeOptions{
			DateFormat: output.DefaultDateFormat,
			Relative:   true,
		},
		copyText: clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.run("load", m.ctrl.Load)
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case syncedMsg:
		if m.busy > 0 {
			m.busy--
		}
		m.refresh()
		if msg.err != nil {
			m.status = "ready"
			return m, nil
		}
		m.status = completedStatus(msg.op)
		return m, nil

	case yankedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "copied id " + msg.id
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeAddTask:
			return m.handleAddModeKey(msg)
		case modeEditTask:
			return m.handleEditModeKey(msg)
		default:
			return m.handleNormalModeKey(msg)
		}

	default:
		return m, nil
	}
}

// handleNormalModeKey handles list navigation and actions.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case msg.String() == "esc":
		m.help.ShowAll = false
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.selected < len(m.snap.Tasks)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.addTask):
		m.mode = modeAddTask
		m.createInput.SetValue(m.snap.Draft)
		m.createInput.CursorEnd()
		// Cursor blink commands are dropped; the cursor stays solid.
		_ = m.createInput.Focus()
		m.status = "new task"
		return m, nil
	case key.Matches(msg, m.keys.editTask):
		task, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		m.ctrl.BeginEdit(task)
		m.editInput.SetValue(task.Title)
		m.editInput.CursorEnd()
		_ = m.editInput.Focus()
		m.mode = modeEditTask
		m.refresh()
		m.status = "editing"
		return m, nil
	case key.Matches(msg, m.keys.deleteTask):
		task, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		id := task.ID
		m.status = "deleting..."
		return m.dispatch("remove", func(ctx context.Context) error {
			return m.ctrl.Remove(ctx, id)
		})
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m.dispatch("load", m.ctrl.Load)
	case key.Matches(msg, m.keys.yankID):
		task, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		return m, m.yank(task.ID)
	case key.Matches(msg, m.keys.dismiss):
		m.ctrl.DismissError()
		m.refresh()
		return m, nil
	default:
		return m, nil
	}
}

// handleAddModeKey routes keys to the create input.
func (m Model) handleAddModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.createInput.Blur()
		m.status = "ready"
		return m, nil
	case "enter":
		if m.pending() {
			return m, nil
		}
		title := m.createInput.Value()
		m.status = "adding..."
		return m.dispatch("create", func(ctx context.Context) error {
			return m.ctrl.Create(ctx, title)
		})
	}
	// The input is read-only while a request is in flight.
	if m.pending() {
		return m, nil
	}
	m.createInput, _ = m.createInput.Update(msg)
	m.ctrl.SetDraft(m.createInput.Value())
	m.snap.Draft = m.createInput.Value()
	return m, nil
}

// handleEditModeKey routes keys to the inline edit input.
func (m Model) handleEditModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	editKey := app.ParseEditKey(msg.String())
	if editKey == app.EditKeyOther {
		m.editInput, _ = m.editInput.Update(msg)
		m.ctrl.SetEditBuffer(m.editInput.Value())
		m.refresh()
		return m, nil
	}

	mutation, err := m.ctrl.OnEditKey(editKey)
	m.refresh()
	if err != nil {
		return m, nil
	}
	m.mode = modeNone
	m.editInput.Blur()
	if mutation == nil {
		m.status = "edit cancelled"
		return m, nil
	}
	m.status = "saving..."
	return m.dispatch("update", mutation)
}

// dispatch runs one blocking controller call off the update loop.
func (m Model) dispatch(op string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.busy++
	return m, m.run(op, fn)
}

// run wraps one controller call as a command.
func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return syncedMsg{op: op, err: fn(context.Background())}
	}
}

// yank copies one task id to the clipboard.
func (m Model) yank(id string) tea.Cmd {
	write := m.copyText
	return func() tea.Msg {
		return yankedMsg{id: id, err: write(id)}
	}
}

// refresh re-reads controller state and reconciles local selection and inputs.
func (m *Model) refresh() {
	m.snap = m.ctrl.Snapshot()
	m.selected = clamp(m.selected, 0, len(m.snap.Tasks)-1)
	if m.createInput.Value() != m.snap.Draft {
		m.createInput.SetValue(m.snap.Draft)
		m.createInput.CursorEnd()
	}
	if m.mode == modeEditTask && !m.snap.Editing {
		m.mode = modeNone
		m.editInput.Blur()
	}
}

// pending reports whether any request is in flight, including dispatched commands not yet started.
func (m Model) pending() bool {
	return m.snap.Pending || m.busy > 0
}

// selectedTask returns the task under the cursor.
func (m Model) selectedTask() (domain.Task, bool) {
	if len(m.snap.Tasks) == 0 {
		return domain.Task{}, false
	}
	return m.snap.Tasks[clamp(m.selected, 0, len(m.snap.Tasks)-1)], true
}

// completedStatus maps one finished operation to a status line.
func completedStatus(op string) string {
	switch op {
	case "create":
		return "task added"
	case "update":
		return "task updated"
	case "remove":
		return "task deleted"
	default:
		return "ready"
	}
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the full screen.
func (m Model) render() string {
	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	snap := m.snap
	snap.Pending = m.pending()

	sections := []string{titleStyle.Render("Task List")}
	if snap.Error != "" {
		sections = append(sections, m.renderBanner(snap.Error, muted))
	}
	sections = append(sections, "", m.renderCreateRow(snap, accent, muted, dim), "")

	switch {
	case snap.ShowLoading():
		sections = append(sections, lipgloss.NewStyle().Foreground(muted).Italic(true).Render("Loading tasks..."))
	case snap.ShowEmpty():
		sections = append(sections, renderEmptyPanel(muted, dim))
	default:
		sections = append(sections, m.renderRows(snap, muted)...)
	}

	if strings.TrimSpace(m.status) != "" {
		sections = append(sections, "", statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		helpHeight := lipgloss.Height(helpLine)
		content = fitLines(content, max(0, m.height-helpHeight))
	}
	return content + "\n" + helpLine
}

// renderBanner renders the dismissible error banner.
func (m Model) renderBanner(message string, muted color.Color) string {
	bannerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("203")).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("203")).
		Padding(0, 1)
	hint := lipgloss.NewStyle().Foreground(muted).Render("(" + m.keys.dismiss.Help().Key + " to dismiss)")
	return bannerStyle.Render("✕ " + message + "  " + hint)
}

// renderCreateRow renders the create input and its submit affordance.
func (m Model) renderCreateRow(snap app.Snapshot, accent, muted, dim color.Color) string {
	field := lipgloss.NewStyle().Foreground(muted).Render("press " + m.keys.addTask.Help().Key + " to add a task")
	if m.mode == modeAddTask {
		field = m.createInput.View()
	} else if snap.Draft != "" {
		field = lipgloss.NewStyle().Foreground(muted).Render("› " + snap.Draft)
	}

	button := lipgloss.NewStyle().Padding(0, 1)
	label := "Add Task"
	if snap.Pending {
		label = "Adding..."
	}
	if snap.CanSubmit() {
		button = button.Bold(true).Foreground(lipgloss.Color("230")).Background(accent)
	} else {
		button = button.Foreground(dim)
	}
	return field + "  " + button.Render(label)
}

// renderRows renders one row per task in server order.
func (m Model) renderRows(snap app.Snapshot, muted color.Color) []string {
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	itemSubStyle := lipgloss.NewStyle().Foreground(muted)

	rows := make([]string, 0, len(snap.Tasks)*2)
	for idx, task := range snap.Tasks {
		cursor := "  "
		line := task.DisplayTitle()
		if idx == m.selected {
			cursor = "› "
			line = selectedStyle.Render(line)
		}
		if m.mode == modeEditTask && snap.IsEditing(task.ID) {
			line = m.editInput.View()
		}
		rows = append(rows, cursor+line)
		if label := output.CreatedLabel(task.CreatedAt, m.timeOpts); label != "" {
			rows = append(rows, "    "+itemSubStyle.Render(label))
		}
	}
	return rows
}

// renderEmptyPanel renders the placeholder shown for an empty list.
func renderEmptyPanel(muted, dim color.Color) string {
	body := lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Render("No tasks yet"),
		lipgloss.NewStyle().Foreground(muted).Render("Create your first task to get started!"),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 4).
		Render(body)
}

// clamp bounds v to [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}
