package tasktimer

import "errors"

var (
	// ErrNoCallback is returned when a task is added without work to do.
	ErrNoCallback = errors.New("tasktimer: task has no callback")

	// ErrBadTickInterval is returned for a tick interval below 1.
	ErrBadTickInterval = errors.New("tasktimer: tick interval must be >= 1")

	// ErrTaskExists is returned when adding a task whose name is taken.
	ErrTaskExists = errors.New("tasktimer: task already exists")

	// ErrTaskNotFound is returned when removing an unknown task.
	ErrTaskNotFound = errors.New("tasktimer: task not found")
)
