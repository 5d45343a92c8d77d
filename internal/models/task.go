package models

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Open reports whether the task can still be completed by an expense.
func (s TaskStatus) Open() bool {
	return s == TaskPending || s == TaskInProgress
}

// Task represents a household chore or purchase.
// Status only moves forward; CompletedAt is set at the first transition into
// completed and never cleared.
type Task struct {
	// ID is the unique identifier for the task (UUID format).
	ID string

	// CreatedBy and AssignedTo reference the two users. Both are parties to
	// the task for authorization; only the creator may delete it.
	CreatedBy  string
	AssignedTo string

	// ItemName is what needs to be acquired or done.
	ItemName string

	// Status is the current lifecycle state.
	Status TaskStatus

	// RelatedMessageID links the message that triggered the task, if any.
	RelatedMessageID string

	// CreatedAt is the Unix timestamp when the task was created.
	CreatedAt int64

	// CompletedAt is the Unix timestamp of completion, 0 while open.
	CompletedAt int64
}

// Participant reports whether userID is a party to the task.
func (t *Task) Participant(userID string) bool {
	return t.CreatedBy == userID || t.AssignedTo == userID
}
