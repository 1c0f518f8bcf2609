package tasktimer

// EventType identifies a timer or task lifecycle notification.
type EventType string

const (
	// EventTick fires at the end of every evaluation pass, whether or not
	// any task ran.
	EventTick EventType = "tick"

	EventStarted EventType = "started"
	EventResumed EventType = "resumed"
	EventPaused  EventType = "paused"
	EventStopped EventType = "stopped"
	EventReset   EventType = "reset"

	// EventTask fires after each task execution.
	EventTask EventType = "task"

	EventTaskAdded   EventType = "taskAdded"
	EventTaskRemoved EventType = "taskRemoved"

	// EventTaskCompleted fires when a task reaches its run limit or its
	// stop date passes.
	EventTaskCompleted EventType = "taskCompleted"

	// EventCompleted fires when every currently registered task is
	// completed. It never fires on an empty registry.
	EventCompleted EventType = "completed"

	// EventTaskError carries a callback failure (returned error or
	// recovered panic). The run still counts toward the task's counters.
	EventTaskError EventType = "taskError"
)

// Event is the envelope delivered to listeners.
type Event struct {
	Type   EventType
	Source *Timer
	Task   *Task // set for task-scoped events
	Err    error // set for EventTaskError
}
