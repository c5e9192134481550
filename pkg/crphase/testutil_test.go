package crphase

import (
	"context"
	"fmt"
	"sync"
)

// eventLog records hook calls from any goroutine.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// recordingHook appends "<name>:<op>" to log for every call.
func recordingHook(name string, log *eventLog) Hook {
	return HookFuncs{
		PrepareFunc: func(context.Context) error {
			log.add(name + ":prepare")
			return nil
		},
		RestoreFunc: func(context.Context) error {
			log.add(name + ":restore")
			return nil
		},
		CheckpointFailedFunc: func(context.Context) {
			log.add(name + ":failed")
		},
	}
}

// failingHook records like recordingHook but fails op with err.
func failingHook(name, op string, err error, log *eventLog) Hook {
	h := recordingHook(name, log).(HookFuncs)
	switch op {
	case "prepare":
		h.PrepareFunc = func(context.Context) error {
			log.add(name + ":prepare")
			return err
		}
	case "restore":
		h.RestoreFunc = func(context.Context) error {
			log.add(name + ":restore")
			return err
		}
	default:
		panic(fmt.Sprintf("unsupported op %q", op))
	}
	return h
}

// panicHook panics from every method.
type panicHook struct {
	value any
}

func (h panicHook) Prepare(context.Context) error    { panic(h.value) }
func (h panicHook) Restore(context.Context) error    { panic(h.value) }
func (h panicHook) CheckpointFailed(context.Context) { panic(h.value) }

// newCurrent returns a coordinator whose current phase is named.
func newCurrent(name string, opts ...Option) (*Coordinator, *Phase) {
	c := New(opts...)
	c.SetPhase(name)
	return c, c.Phase()
}
