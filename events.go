package sortify

import "fmt"

// Event is either a ProgressEvent or the CompletionEvent which ends a run.
type Event interface {
	isEvent()
}

type Kind string

const (
	KindSort    Kind = "sort"
	KindPreview Kind = "preview"
	KindUndo    Kind = "undo"
)

type Status string

const (
	StatusMoved     Status = "moved"
	StatusPreview   Status = "preview"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusMissing   Status = "missing"
	StatusCollision Status = "collision"
	StatusFailed    Status = "failed"
)

// ProgressEvent is sent once per file, in the order files are visited. Index starts at 1.
type ProgressEvent struct {
	RunID   string
	Index   int
	Total   int
	Path    string
	Dest    string // empty if no destination was decided
	Status  Status
	Err     error
	Message string
}

func (ProgressEvent) isEvent() {}

// CompletionEvent is always the last event of a run. Err is set if the run stopped early.
type CompletionEvent struct {
	RunID   string
	Kind    Kind
	Summary string

	Moved     int
	Unchanged int
	Skipped   int
	Failed    int

	Err error
}

func (CompletionEvent) isEvent() {}

func (c CompletionEvent) summarise() string {
	if c.Err != nil {
		return fmt.Sprintf("%s failed after %d moved: %v", c.Kind, c.Moved, c.Err)
	}
	switch c.Kind {
	case KindPreview:
		return fmt.Sprintf("preview complete: %d to move, %d unchanged, %d skipped", c.Moved, c.Unchanged, c.Skipped)
	case KindUndo:
		return fmt.Sprintf("undo complete: %d returned to root, %d skipped, %d failed", c.Moved, c.Skipped, c.Failed)
	default:
		return fmt.Sprintf("sort complete: %d moved, %d unchanged, %d skipped, %d failed", c.Moved, c.Unchanged, c.Skipped, c.Failed)
	}
}
