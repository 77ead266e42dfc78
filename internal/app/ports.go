package app

import (
	"context"

	"github.com/evanschultz/tasklist/internal/domain"
)

// TaskAPI is the remote task collection the controller mirrors.
type TaskAPI interface {
	ListTasks(context.Context) ([]domain.Task, error)
	CreateTask(context.Context, string) (domain.Task, error)
	UpdateTask(context.Context, string, domain.TaskPatch) (domain.Task, error)
	DeleteTask(context.Context, string) error
}

// Logger receives diagnostics. *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}
