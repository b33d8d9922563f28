package dispatch

import (
	"errors"
	"fmt"
)

// ErrQueueFull reports back-pressure: the shard queue stayed full for the
// whole enqueue timeout.
var ErrQueueFull = errors.New("dispatch queue full")

// ErrExecutorClosed reports that the executor has been stopped.
var ErrExecutorClosed = errors.New("dispatch executor closed")

// QueueFullError carries diagnostics while satisfying errors.Is(_, ErrQueueFull).
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("dispatch shard %d full (len=%d cap=%d)", e.Shard, e.Length, e.Capacity)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }

// PanicError wraps a value recovered from a panicking job.
type PanicError struct {
	Key   string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job for key %q panicked: %v", e.Key, e.Value)
}
