package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/tasklist/internal/domain"
)

// fakeAPI is an in-memory TaskAPI that records every call.
type fakeAPI struct {
	mu    sync.Mutex
	tasks []domain.Task
	calls []string
	next  int
	now   time.Time

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	// listHook runs before ListTasks returns, outside the fake's lock.
	listHook func()
}

func newFakeAPI(tasks ...domain.Task) *fakeAPI {
	return &fakeAPI{
		tasks: append([]domain.Task(nil), tasks...),
		next:  len(tasks) + 1,
		now:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) ListTasks(context.Context) ([]domain.Task, error) {
	f.record("GET /tasks")
	if f.listHook != nil {
		f.listHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Task(nil), f.tasks...), nil
}

func (f *fakeAPI) CreateTask(_ context.Context, title string) (domain.Task, error) {
	f.record("POST /tasks")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Task{}, f.createErr
	}
	task, err := domain.NewTask(fmt.Sprintf("%d", f.next), title, f.now)
	if err != nil {
		return domain.Task{}, err
	}
	f.next++
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	f.record("PUT /tasks/" + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.Task{}, f.updateErr
	}
	idx := domain.IndexTasks(f.tasks, id)
	if idx < 0 {
		return domain.Task{}, errors.New("not found")
	}
	if patch.Title != nil {
		f.tasks[idx].Title = *patch.Title
	}
	return f.tasks[idx], nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) error {
	f.record("DELETE /tasks/" + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	idx := domain.IndexTasks(f.tasks, id)
	if idx < 0 {
		return errors.New("not found")
	}
	f.tasks = append(f.tasks[:idx], f.tasks[idx+1:]...)
	return nil
}

func mustTask(t *testing.T, id, title string) domain.Task {
	t.Helper()
	task, err := domain.NewTask(id, title, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	return task
}

func loadedController(t *testing.T, api *fakeAPI, opts Options) *Controller {
	t.Helper()
	c := NewController(api, nil, opts)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return c
}

func assertCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

// TestControllerScenario walks the load, blank create, create flow end to end.
func TestControllerScenario(t *testing.T) {
	api := newFakeAPI(mustTask(t, "1", "Buy milk"))
	c := NewController(api, nil, Options{})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tasks := c.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Fatalf("unexpected tasks after load %#v", tasks)
	}

	before := len(api.Calls())
	err := c.Create(ctx, "  ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if c.Error() != MsgTitleRequired {
		t.Fatalf("unexpected banner %q", c.Error())
	}
	if len(api.Calls()) != before {
		t.Fatalf("blank create issued requests: %v", api.Calls()[before:])
	}

	if err := c.Create(ctx, "Walk dog"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	assertCalls(t, api.Calls()[before:], "POST /tasks", "GET /tasks")
	tasks = c.Tasks()
	if len(tasks) != 2 || tasks[1].Title != "Walk dog" {
		t.Fatalf("unexpected tasks after create %#v", tasks)
	}
	if c.Error() != "" {
		t.Fatalf("expected banner cleared, got %q", c.Error())
	}
}

// TestControllerCreateUsesServerSequence verifies full-replace semantics after create.
func TestControllerCreateUsesServerSequence(t *testing.T) {
	api := newFakeAPI(mustTask(t, "1", "First"))
	c := loadedController(t, api, Options{})

	// The server reorders and rewrites; the client must render exactly what it returns.
	api.listHook = func() {
		api.mu.Lock()
		api.tasks = []domain.Task{mustTask(t, "9", "Server only")}
		api.mu.Unlock()
	}
	c.SetDraft("Second")
	if c.Draft() != "Second" {
		t.Fatalf("unexpected draft %q", c.Draft())
	}
	if err := c.Create(context.Background(), "Second"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	tasks := c.Tasks()
	if len(tasks) != 1 || tasks[0].ID != "9" {
		t.Fatalf("expected server sequence to replace local state, got %#v", tasks)
	}
	if c.Snapshot().Draft != "" {
		t.Fatal("expected draft cleared after successful create")
	}
}

// TestControllerCreateWhitespaceVariants verifies blank titles never reach the server.
func TestControllerCreateWhitespaceVariants(t *testing.T) {
	for _, title := range []string{"", " ", "\t", "\n \t "} {
		t.Run(fmt.Sprintf("%q", title), func(t *testing.T) {
			api := newFakeAPI()
			c := NewController(api, nil, Options{})
			var vErr *ValidationError
			if err := c.Create(context.Background(), title); !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(api.Calls()) != 0 {
				t.Fatalf("expected zero requests, got %v", api.Calls())
			}
		})
	}
}

// TestControllerCreateTrimsTitle verifies the trimmed title is submitted.
func TestControllerCreateTrimsTitle(t *testing.T) {
	api := newFakeAPI()
	c := NewController(api, nil, Options{})
	if err := c.Create(context.Background(), "  Walk dog \n"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := c.Tasks(); len(got) != 1 || got[0].Title != "Walk dog" {
		t.Fatalf("unexpected tasks %#v", got)
	}
}

// TestControllerCreateFailure verifies request failures keep state and set the banner.
func TestControllerCreateFailure(t *testing.T) {
	api := newFakeAPI(mustTask(t, "1", "Keep"))
	c := loadedController(t, api, Options{})
	c.SetDraft("New")
	api.createErr = errors.New("boom")

	err := c.Create(context.Background(), "New")
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("expected request error, got %v", err)
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Op != "create" || reqErr.Err == nil {
		t.Fatalf("unexpected request error %#v", err)
	}
	if c.Error() != MsgCreateFailed {
		t.Fatalf("unexpected banner %q", c.Error())
	}
	snap := c.Snapshot()
	if snap.Draft != "New" {
		t.Fatalf("expected draft kept on failure, got %q", snap.Draft)
	}
	if len(snap.Tasks) != 1 || snap.Pending {
		t.Fatalf("unexpected state after failure %#v", snap)
	}
}

// TestControllerLoadFailureKeepsSequence verifies load failures never clear held tasks.
func TestControllerLoadFailureKeepsSequence(t *testing.T) {
	api := newFakeAPI(mustTask(t, "1", "Keep"))
	c := loadedController(t, api, Options{})
	api.listErr = errors.New("connection refused")

	if err := c.Load(context.Background()); !errors.Is(err, ErrRequest) {
		t.Fatalf("expected request error, got %v", err)
	}
	if c.Error() != MsgLoadFailed {
		t.Fatalf("unexpected banner %q", c.Error())
	}
	if got := c.Tasks(); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected previous sequence kept, got %#v", got)
	}

	api.listErr = nil
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Error() != "" {
		t.Fatalf("expected banner cleared by successful load, got %q", c.Error())
	}
}

// TestControllerPendingDuringLoad verifies the pending flag covers the call duration.
func TestControllerPendingDuringLoad(t *testing.T) {
	api := newFakeAPI()
	c := NewController(api, nil, Options{})
	var sawPending, sawLoading bool
	api.listHook = func() {
		snap := c.Snapshot()
		sawPending = snap.Pending
		sawLoading = snap.ShowLoading()
	}
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !sawPending || !sawLoading {
		t.Fatalf("expected pending and loading during call, got pending=%t loading=%t", sawPending, sawLoading)
	}
	if c.Pending() {
		t.Fatal("expected pending cleared after call")
	}
	if !c.Snapshot().ShowEmpty() {
		t.Fatal("expected empty panel for empty idle list")
	}
}

// TestControllerUpdate verifies partial updates reload and unknown ids stay local.
func TestControllerUpdate(t *testing.T) {
	api := newFakeAPI(mustTask(t, "1", "Old"))
	c := loadedController(t, api, Options{})
	ctx := context.Background()

	before := len(api.Calls())
	if err := c.Update(ctx, "missing", domain.TitlePatch("x")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown id, got %v", err)
	}
	if len(api.Calls()) != before {
		t.Fatalf("unknown id issued requests: %v", api.Calls()[before:])
	}

	if err := c.Update(ctx, "1", domain.TitlePatch(" New ")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	assertCalls(t, api.Calls()[before:], "PUT /tasks/1", "GET /tasks")
	if got := c.Tasks(); got[0].Title != "New" {
		t.Fatalf("unexpected title %q", got[0].Title)
	}

	api.updateErr = errors.New("503")
	if err := c.Update(ctx, "1", domain.TitlePatch("Again")); !errors.Is(err, ErrRequest) {
		t.Fatalf("expected request error, got %v", err)
	}
	if c.Error() != MsgUpdateFailed {
		t.Fatalf("unexpected banner %q", c.Error())
	}
}

// TestControllerRemove verifies delete guards and failure visibility.
func TestControllerRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("undefined id is a no-op", func(t *testing.T) {
		api := newFakeAPI(mustTask(t, "1", "Keep"))
		c := NewController(api, nil, Options{})
		if err := c.Remove(ctx, ""); err != nil {
			t.Fatalf("Remove(\"\") error = %v", err)
		}
		if err := c.Remove(ctx, "   "); err != nil {
			t.Fatalf("Remove(blank) error = %v", err)
		}
		if len(api.Calls()) != 0 {
			t.Fatalf("expected zero requests, got %v", api.Calls())
		}
	})

	t.Run("success reloads", func(t *testing.T) {
		api := newFakeAPI(mustTask(t, "1", "Gone"), mustTask(t, "2", "Stay"))
		c := loadedController(t, api, Options{})
		before := len(api.Calls())
		if err := c.Remove(ctx, "1"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		assertCalls(t, api.Calls()[before:], "DELETE /tasks/1", "GET /tasks")
		if got := c.Tasks(); len(got) != 1 || got[0].ID != "2" {
			t.Fatalf("unexpected tasks %#v", got)
		}
	})

	t.Run("failure is silent by default", func(t *testing.T) {
		api := newFakeAPI(mustTask(t, "1", "Stay"))
		c := loadedController(t, api, Options{})
		api.deleteErr = errors.New("500")
		if err := c.Remove(ctx, "1"); !errors.Is(err, ErrRequest) {
			t.Fatalf("expected request error, got %v", err)
		}
		if c.Error() != "" {
			t.Fatalf("expected no banner, got %q", c.Error())
		}
	})

	t.Run("failure surfaces when enabled", func(t *testing.T) {
		api := newFakeAPI(mustTask(t, "1", "Stay"))
		c := loadedController(t, api, Options{SurfaceDeleteErrors: true})
		api.deleteErr = errors.New("500")
		_ = c.Remove(ctx, "1")
		if c.Error() != MsgDeleteFailed {
			t.Fatalf("unexpected banner %q", c.Error())
		}
	})
}

// TestControllerEditSessionReplace verifies only the latest edit session survives.
func TestControllerEditSessionReplace(t *testing.T) {
	a := mustTask(t, "a", "Alpha")
	b := mustTask(t, "b", "Beta")
	c := loadedController(t, newFakeAPI(a, b), Options{})

	c.BeginEdit(a)
	c.SetEditBuffer("Alpha draft")
	c.BeginEdit(b)

	edit, ok := c.Edit()
	if !ok {
		t.Fatal("expected active edit session")
	}
	if edit.TaskID != "b" || edit.Buffer != "Beta" {
		t.Fatalf("unexpected session %#v", edit)
	}
	snap := c.Snapshot()
	if snap.IsEditing("a") || !snap.IsEditing("b") {
		t.Fatalf("unexpected editing flags %#v", snap.Edit)
	}
}

// TestControllerCommitEdit verifies commit validation and the immediate return to idle.
func TestControllerCommitEdit(t *testing.T) {
	task := mustTask(t, "1", "Old")
	api := newFakeAPI(task)
	c := loadedController(t, api, Options{})
	before := len(api.Calls())

	c.BeginEdit(task)
	c.SetEditBuffer("   ")
	mutation, err := c.CommitEdit()
	if !errors.Is(err, ErrValidation) || mutation != nil {
		t.Fatalf("expected validation error, got mutation=%v err=%v", mutation != nil, err)
	}
	if c.Error() != MsgTitleEmpty {
		t.Fatalf("unexpected banner %q", c.Error())
	}
	edit, ok := c.Edit()
	if !ok || edit.TaskID != "1" || edit.Buffer != "   " {
		t.Fatalf("expected session unchanged, got %#v ok=%t", edit, ok)
	}

	c.SetEditBuffer(" Renamed ")
	mutation, err = c.CommitEdit()
	if err != nil || mutation == nil {
		t.Fatalf("CommitEdit() mutation=%v err=%v", mutation != nil, err)
	}
	if _, ok := c.Edit(); ok {
		t.Fatal("expected idle before the update runs")
	}
	if len(api.Calls()) != before {
		t.Fatalf("expected no request before mutation runs, got %v", api.Calls()[before:])
	}
	if err := mutation(context.Background()); err != nil {
		t.Fatalf("mutation error = %v", err)
	}
	assertCalls(t, api.Calls()[before:], "PUT /tasks/1", "GET /tasks")
	if got := c.Tasks(); got[0].Title != "Renamed" {
		t.Fatalf("unexpected title %q", got[0].Title)
	}
}

// TestControllerCommitEditWhenIdle verifies committing without a session does nothing.
func TestControllerCommitEditWhenIdle(t *testing.T) {
	api := newFakeAPI()
	c := NewController(api, nil, Options{})
	mutation, err := c.CommitEdit()
	if mutation != nil || err != nil {
		t.Fatalf("expected no-op, got mutation=%v err=%v", mutation != nil, err)
	}
	if c.SetEditBuffer("x") {
		t.Fatal("expected buffer change rejected while idle")
	}
}

// TestControllerOnEditKey verifies key mapping for the inline edit input.
func TestControllerOnEditKey(t *testing.T) {
	task := mustTask(t, "1", "Old")
	api := newFakeAPI(task)
	c := loadedController(t, api, Options{})

	c.BeginEdit(task)
	if mutation, err := c.OnEditKey(ParseEditKey("a")); mutation != nil || err != nil {
		t.Fatalf("expected other key ignored, got mutation=%v err=%v", mutation != nil, err)
	}
	if _, ok := c.Edit(); !ok {
		t.Fatal("expected session kept for other keys")
	}

	if _, err := c.OnEditKey(ParseEditKey("esc")); err != nil {
		t.Fatalf("cancel error = %v", err)
	}
	if _, ok := c.Edit(); ok {
		t.Fatal("expected cancel to clear session")
	}

	c.BeginEdit(task)
	c.SetEditBuffer("New")
	mutation, err := c.OnEditKey(ParseEditKey("enter"))
	if err != nil || mutation == nil {
		t.Fatalf("confirm mutation=%v err=%v", mutation != nil, err)
	}
	if err := mutation(context.Background()); err != nil {
		t.Fatalf("mutation error = %v", err)
	}
}

// TestParseEditKey verifies key-name mapping.
func TestParseEditKey(t *testing.T) {
	cases := map[string]EditKey{
		"enter":  EditKeyConfirm,
		"Return": EditKeyConfirm,
		"esc":    EditKeyCancel,
		"escape": EditKeyCancel,
		"tab":    EditKeyOther,
		"":       EditKeyOther,
	}
	for name, want := range cases {
		if got := ParseEditKey(name); got != want {
			t.Fatalf("ParseEditKey(%q) = %v, want %v", name, got, want)
		}
	}
}

// TestControllerDismissError verifies the banner can be dismissed.
func TestControllerDismissError(t *testing.T) {
	c := NewController(newFakeAPI(), nil, Options{})
	_ = c.Create(context.Background(), "")
	if c.Error() == "" {
		t.Fatal("expected banner")
	}
	c.DismissError()
	if c.Error() != "" {
		t.Fatalf("expected banner cleared, got %q", c.Error())
	}
}

// TestControllerConcurrentMutations verifies overlapping calls keep state consistent.
func TestControllerConcurrentMutations(t *testing.T) {
	api := newFakeAPI()
	c := NewController(api, nil, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Create(context.Background(), fmt.Sprintf("task %d", i))
		}(i)
	}
	wg.Wait()
	if c.Pending() {
		t.Fatal("expected no pending requests")
	}
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(c.Tasks()); got != 8 {
		t.Fatalf("expected 8 tasks, got %d", got)
	}
}
