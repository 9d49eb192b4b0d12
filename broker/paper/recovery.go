package paper

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Recovery is a registered recovery task. Its legs are the trades tagged
// with the task id.
type Recovery struct {
	TaskID       string
	Method       string
	OriginalLoss float64
	Started      time.Time
	Legs         int
}

// StartRecovery registers a recovery task. Starting an existing task is an error.
func (e *Engine) StartRecovery(taskID, method string, originalLoss float64) error {
	if taskID == "" {
		return fmt.Errorf("start recovery: empty task id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.recoveries[taskID]; ok {
		return fmt.Errorf("start recovery: %w: %q", ErrRecoveryExists, taskID)
	}
	e.recoveries[taskID] = Recovery{
		TaskID:       taskID,
		Method:       method,
		OriginalLoss: originalLoss,
		Started:      e.now(),
	}
	return nil
}

// EndRecovery removes the task. Legs stay open.
func (e *Engine) EndRecovery(taskID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.recoveries[taskID]; !ok {
		return fmt.Errorf("end recovery: %w: %q", ErrRecoveryNotFound, taskID)
	}
	delete(e.recoveries, taskID)
	return nil
}

// Recoveries lists active tasks by start time.
func (e *Engine) Recoveries() []Recovery {
	e.mu.Lock()
	defer e.mu.Unlock()
	legs := make(map[string]int, len(e.recoveries))
	for _, t := range e.trades {
		if t.RecoveryTask != "" {
			legs[t.RecoveryTask]++
		}
	}
	out := make([]Recovery, 0, len(e.recoveries))
	for _, r := range e.recoveries {
		r.Legs = legs[r.TaskID]
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Started.Equal(out[j].Started) {
			return out[i].Started.Before(out[j].Started)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// ActiveRecoveries counts open legs belonging to registered recovery tasks.
func (e *Engine) ActiveRecoveries(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, t := range e.trades {
		if !t.Open || t.RecoveryTask == "" {
			continue
		}
		if _, ok := e.recoveries[t.RecoveryTask]; ok {
			n++
		}
	}
	return n, nil
}
