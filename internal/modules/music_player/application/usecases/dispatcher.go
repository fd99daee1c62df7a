package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// DefaultIdleTimeout is how long a guild worker waits for new tasks before exiting.
const DefaultIdleTimeout = time.Minute

// TaskFunc is a unit of work executed inside a guild's serialization region.
type TaskFunc func(ctx context.Context) error

type task struct {
	ctx  context.Context
	fn   TaskFunc
	done chan error // nil for posted tasks
}

type guildWorker struct {
	mailbox []task
	wake    chan struct{}
}

// Dispatcher serializes work per guild. Each guild with pending work has one worker
// goroutine draining a FIFO mailbox, so tasks for one guild never interleave while
// different guilds proceed independently.
type Dispatcher struct {
	idleTimeout time.Duration

	mu      sync.Mutex
	workers map[snowflake.ID]*guildWorker
	closed  bool
	closing chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher whose idle workers exit after idleTimeout.
func NewDispatcher(idleTimeout time.Duration) *Dispatcher {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Dispatcher{
		idleTimeout: idleTimeout,
		workers:     make(map[snowflake.ID]*guildWorker),
		closing:     make(chan struct{}),
	}
}

// Run executes fn in the guild's region and waits for its result.
// If ctx ends before fn runs, fn is skipped and ctx's error is returned.
func (d *Dispatcher) Run(ctx context.Context, guildID snowflake.ID, fn TaskFunc) error {
	done := make(chan error, 1)
	if err := d.enqueue(guildID, task{ctx: ctx, fn: fn, done: done}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post schedules fn in the guild's region without waiting. Failures are logged.
func (d *Dispatcher) Post(guildID snowflake.ID, fn TaskFunc) error {
	return d.enqueue(guildID, task{ctx: context.Background(), fn: fn})
}

// Workers returns the number of live guild workers (for testing/monitoring).
func (d *Dispatcher) Workers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}

// Close rejects new tasks, drains the queued ones and waits for every worker to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.closing)
	d.mu.Unlock()

	d.wg.Wait()

	slog.Debug("guild dispatcher closed")
}

func (d *Dispatcher) enqueue(guildID snowflake.ID, t task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	w, ok := d.workers[guildID]
	if !ok {
		w = &guildWorker{wake: make(chan struct{}, 1)}
		d.workers[guildID] = w
		d.wg.Add(1)
		go d.work(guildID, w)
	}

	w.mailbox = append(w.mailbox, t)
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// next pops the oldest task, or removes the worker if exit is set and nothing is pending.
func (d *Dispatcher) next(guildID snowflake.ID, w *guildWorker, exit bool) (task, bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(w.mailbox) > 0 {
		t := w.mailbox[0]
		w.mailbox[0] = task{}
		w.mailbox = w.mailbox[1:]
		return t, true, false
	}
	if exit {
		delete(d.workers, guildID)
		return task{}, false, true
	}
	return task{}, false, false
}

func (d *Dispatcher) work(guildID snowflake.ID, w *guildWorker) {
	defer d.wg.Done()

	timer := time.NewTimer(d.idleTimeout)
	defer timer.Stop()

	exit := false
	for {
		t, ok, stopped := d.next(guildID, w, exit)
		if stopped {
			return
		}
		if ok {
			d.execute(guildID, t)
			exit = false
			continue
		}

		timer.Reset(d.idleTimeout)
		select {
		case <-w.wake:
		case <-timer.C:
			exit = true
		case <-d.closing:
			exit = true
		}
	}
}

func (d *Dispatcher) execute(guildID snowflake.ID, t task) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in guild task", "guild", guildID, "panic", r)
				err = fmt.Errorf("guild task panicked: %v", r)
			}
		}()

		if ctxErr := t.ctx.Err(); ctxErr != nil {
			err = ctxErr
			return
		}
		err = t.fn(t.ctx)
	}()

	if t.done != nil {
		t.done <- err
		return
	}
	if err != nil {
		slog.Warn("guild task failed", "guild", guildID, "error", err)
	}
}
