package app

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/tasklist/internal/domain"
)

// Options holds controller behavior switches.
type Options struct {
	// SurfaceDeleteErrors reports failed deletes in the error banner. Off by default.
	SurfaceDeleteErrors bool
}

// Mutation is a deferred server call produced by a synchronous state transition.
type Mutation func(context.Context) error

// EditSession tracks the single task being edited inline and its draft title.
type EditSession struct {
	TaskID string
	Buffer string
}

// EditKey identifies a key pressed inside the inline edit input.
type EditKey int

// EditKeyOther and related constants enumerate edit input keys.
const (
	EditKeyOther EditKey = iota
	EditKeyConfirm
	EditKeyCancel
)

// ParseEditKey maps a key name to an EditKey.
func ParseEditKey(name string) EditKey {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "enter", "return":
		return EditKeyConfirm
	case "esc", "escape":
		return EditKeyCancel
	default:
		return EditKeyOther
	}
}

// Snapshot is an immutable copy of controller state for rendering.
type Snapshot struct {
	Tasks   []domain.Task
	Pending bool
	Error   string
	Draft   string
	Editing bool
	Edit    EditSession
}

// ShowLoading reports whether the loading indicator should be visible.
func (s Snapshot) ShowLoading() bool {
	return s.Pending && len(s.Tasks) == 0
}

// ShowEmpty reports whether the empty-list panel should be visible.
func (s Snapshot) ShowEmpty() bool {
	return !s.Pending && len(s.Tasks) == 0
}

// CanSubmit reports whether the create affordance should be enabled.
func (s Snapshot) CanSubmit() bool {
	return !s.Pending && domain.NormalizeTitle(s.Draft) != ""
}

// IsEditing reports whether the given task owns the active edit session.
func (s Snapshot) IsEditing(taskID string) bool {
	return s.Editing && s.Edit.TaskID == taskID
}

// Controller mirrors the remote task collection into local state and mediates user actions.
type Controller struct {
	api    TaskAPI
	logger Logger
	opts   Options

	mu       sync.Mutex
	tasks    []domain.Task
	inflight int
	errMsg   string
	draft    string
	edit     *EditSession
}

// NewController constructs a controller over the given task API.
func NewController(api TaskAPI, logger Logger, opts Options) *Controller {
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Controller{
		api:    api,
		logger: logger,
		opts:   opts,
		tasks:  []domain.Task{},
	}
}

// Load replaces the held sequence with the server's full collection.
func (c *Controller) Load(ctx context.Context) error {
	c.beginRequest()
	defer c.endRequest()

	tasks, err := c.api.ListTasks(ctx)
	if err != nil {
		c.logger.Error("fetch tasks failed", "op", "load", "err", err)
		c.setError(MsgLoadFailed)
		return &RequestError{Op: "load", Message: MsgLoadFailed, Err: err}
	}

	c.mu.Lock()
	c.tasks = slices.Clone(tasks)
	if c.tasks == nil {
		c.tasks = []domain.Task{}
	}
	c.errMsg = ""
	c.mu.Unlock()
	c.logger.Debug("tasks loaded", "count", len(tasks))
	return nil
}

// Create submits a new task title and reloads on success.
func (c *Controller) Create(ctx context.Context, title string) error {
	title = domain.NormalizeTitle(title)
	if title == "" {
		return c.rejectValidation("create", MsgTitleRequired)
	}

	c.beginRequest()
	defer c.endRequest()

	created, err := c.api.CreateTask(ctx, title)
	if err != nil {
		c.logger.Error("create task failed", "op", "create", "err", err)
		c.setError(MsgCreateFailed)
		return &RequestError{Op: "create", Message: MsgCreateFailed, Err: err}
	}
	c.logger.Info("task created", "task_id", created.ID)

	c.mu.Lock()
	c.draft = ""
	c.errMsg = ""
	c.mu.Unlock()
	return c.Load(ctx)
}

// Update submits a partial update for a held task and reloads on success.
func (c *Controller) Update(ctx context.Context, id string, patch domain.TaskPatch) error {
	id = strings.TrimSpace(id)
	c.mu.Lock()
	known := domain.IndexTasks(c.tasks, id) >= 0
	c.mu.Unlock()
	if !known {
		c.logger.Warn("update rejected for unknown task", "op", "update", "task_id", id)
		return c.rejectValidation("update", MsgTaskNotFound)
	}
	if patch.Title != nil {
		normalized := domain.NormalizeTitle(*patch.Title)
		if normalized == "" {
			return c.rejectValidation("update", MsgTitleEmpty)
		}
		patch.Title = &normalized
	}

	c.beginRequest()
	defer c.endRequest()

	if _, err := c.api.UpdateTask(ctx, id, patch); err != nil {
		c.logger.Error("update task failed", "op", "update", "task_id", id, "err", err)
		c.setError(MsgUpdateFailed)
		return &RequestError{Op: "update", Message: MsgUpdateFailed, Err: err}
	}
	c.logger.Info("task updated", "task_id", id)

	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
	return c.Load(ctx)
}

// Remove deletes a task and reloads on success. Failures are logged only unless
// SurfaceDeleteErrors is set.
func (c *Controller) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		c.logger.Error("task id is undefined", "op", "remove")
		return nil
	}

	if err := c.api.DeleteTask(ctx, id); err != nil {
		c.logger.Error("delete task failed", "op", "remove", "task_id", id, "err", err)
		if c.opts.SurfaceDeleteErrors {
			c.setError(MsgDeleteFailed)
		}
		return &RequestError{Op: "remove", Message: MsgDeleteFailed, Err: err}
	}
	c.logger.Info("task deleted", "task_id", id)
	return c.Load(ctx)
}

// BeginEdit starts an edit session for task, replacing any active session.
func (c *Controller) BeginEdit(task domain.Task) {
	id := strings.TrimSpace(task.ID)
	if id == "" {
		c.logger.Warn("edit ignored for task without id", "op", "begin_edit")
		return
	}
	c.mu.Lock()
	if c.edit != nil && c.edit.TaskID != id {
		c.logger.Debug("edit session replaced", "from", c.edit.TaskID, "to", id)
	}
	c.edit = &EditSession{TaskID: id, Buffer: task.Title}
	c.mu.Unlock()
}

// SetEditBuffer replaces the draft title of the active edit session.
func (c *Controller) SetEditBuffer(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edit == nil {
		return false
	}
	c.edit.Buffer = text
	return true
}

// CommitEdit validates the edit buffer and ends the session. On success the session
// is already cleared and the returned Mutation performs the title update.
func (c *Controller) CommitEdit() (Mutation, error) {
	c.mu.Lock()
	if c.edit == nil {
		c.mu.Unlock()
		return nil, nil
	}
	title := domain.NormalizeTitle(c.edit.Buffer)
	if title == "" {
		c.errMsg = MsgTitleEmpty
		c.mu.Unlock()
		c.logger.Debug("validation failed", "op", "commit_edit", "message", MsgTitleEmpty)
		return nil, &ValidationError{Message: MsgTitleEmpty}
	}
	taskID := c.edit.TaskID
	c.edit = nil
	c.mu.Unlock()

	patch := domain.TitlePatch(title)
	return func(ctx context.Context) error {
		return c.Update(ctx, taskID, patch)
	}, nil
}

// CancelEdit ends the edit session without contacting the server.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.edit = nil
	c.mu.Unlock()
}

// OnEditKey maps confirm to CommitEdit and cancel to CancelEdit; other keys are ignored.
func (c *Controller) OnEditKey(k EditKey) (Mutation, error) {
	switch k {
	case EditKeyConfirm:
		return c.CommitEdit()
	case EditKeyCancel:
		c.CancelEdit()
		return nil, nil
	default:
		return nil, nil
	}
}

// SetDraft replaces the creation input buffer.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Draft returns the creation input buffer.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// DismissError clears the banner message.
func (c *Controller) DismissError() {
	c.setError("")
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Tasks:   slices.Clone(c.tasks),
		Pending: c.inflight > 0,
		Error:   c.errMsg,
		Draft:   c.draft,
	}
	if c.edit != nil {
		snap.Editing = true
		snap.Edit = *c.edit
	}
	return snap
}

// Tasks returns a copy of the held sequence.
func (c *Controller) Tasks() []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

// Pending reports whether any controller request is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Error returns the current banner message.
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Edit returns the active edit session, if any.
func (c *Controller) Edit() (EditSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edit == nil {
		return EditSession{}, false
	}
	return *c.edit, true
}

// rejectValidation records a local validation failure.
func (c *Controller) rejectValidation(op, message string) error {
	c.setError(message)
	c.logger.Debug("validation failed", "op", op, "message", message)
	return &ValidationError{Message: message}
}

// setError replaces the banner message.
func (c *Controller) setError(message string) {
	c.mu.Lock()
	c.errMsg = message
	c.mu.Unlock()
}

// beginRequest marks one request in flight.
func (c *Controller) beginRequest() {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
}

// endRequest marks one request finished.
func (c *Controller) endRequest() {
	c.mu.Lock()
	if c.inflight > 0 {
		c.inflight--
	}
	c.mu.Unlock()
}
