package domain

import (
	"strings"
	"time"
)

// Task is a server-owned record mirrored by the client.
type Task struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// TaskPatch carries a partial task update. Nil fields are left untouched by the server.
type TaskPatch struct {
	Title *string
}

// NewTask builds a task from server data. The title is kept verbatim; blank titles
// render as "(untitled)".
func NewTask(id, title string, createdAt time.Time) (Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Task{}, ErrInvalidID
	}
	return Task{
		ID:        id,
		Title:     title,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// NormalizeTitle trims surrounding whitespace from user-entered titles.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// TitlePatch builds a patch that only replaces the title.
func TitlePatch(title string) TaskPatch {
	title = NormalizeTitle(title)
	return TaskPatch{Title: &title}
}

// DisplayTitle returns a single-line title suitable for list rows.
func (t Task) DisplayTitle() string {
	title := strings.ReplaceAll(t.Title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return strings.TrimSpace(title)
}

// IndexTasks returns the position of the task with the given id, or -1.
func IndexTasks(tasks []Task, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for idx, task := range tasks {
		if task.ID == id {
			return idx
		}
	}
	return -1
}
