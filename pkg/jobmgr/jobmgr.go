// Package jobmgr runs background jobs and keeps a reference to each one until
// it finishes, so fire-and-forget work stays tracked and cancellable.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	id := uuid.New()
//	err := jm.StartAsync(id, "load:core", func(ctx context.Context) error {
//	    return plugin.Load(ctx, bot)
//	})
//
//	// later...
//	_ = jm.Stop(id)
//
// No retries, no workers, no persistence. Jobs are removed on completion.
package jobmgr

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultManager is the global job manager.
var DefaultManager = NewManager(nil)

// Job is a running unit of work.
type Job struct {
	ID      uuid.UUID
	Name    string
	Started time.Time
	Cancel  context.CancelFunc

	done chan struct{}
}

// Done is closed once the job's runner has returned and the job is released.
func (j Job) Done() <-chan struct{} { return j.done }

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:load:core
//	error:load:core:pre-load hook failed
//	done:load:core
type StatusReporter func(string)

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*Job
	wg       sync.WaitGroup
	Reporter StatusReporter
}

// NewManager creates a new Manager. The reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[uuid.UUID]*Job),
		Reporter: reporter,
	}
}

// StartSync runs a job in the current goroutine and blocks until completion.
func (m *Manager) StartSync(name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return runner(ctx)
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// The job is kept until it returns, then released.
func (m *Manager) StartAsync(id uuid.UUID, name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{ID: id, Name: name, Started: time.Now(), Cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if _, exists := m.jobs[id]; exists {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job '%s' (%s) is already running", name, id)
	}
	m.jobs[id] = job
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()
		m.report("running:" + name)

		err := runner(ctx)
		if err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		delete(m.jobs, id)
		m.mu.Unlock()
		close(job.done)
	}()

	return nil
}

// Stop cancels a running job. The job is released once its runner returns.
func (m *Manager) Stop(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not running", id)
	}
	job.Cancel()
	return nil
}

// Wait blocks until every job started so far has finished. It must not race
// with StartAsync; use WaitFor to wait on specific jobs while others start.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// WaitFor blocks until every job currently running under name has finished,
// or until ctx is done. Jobs started after the call are not waited on.
func (m *Manager) WaitFor(ctx context.Context, name string) error {
	m.mu.Lock()
	var pending []<-chan struct{}
	for _, j := range m.jobs {
		if j.Name == name {
			pending = append(pending, j.done)
		}
	}
	m.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("wait for job '%s': %w", name, ctx.Err())
		}
	}
	return nil
}

// List returns the active jobs, oldest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b Job) int { return a.Started.Compare(b.Started) })
	return out
}

// Status returns a human-readable summary of active jobs, for example
// "Running jobs: load:core, unload:music".
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	names := make([]string, len(active))
	for i, j := range active {
		names[i] = j.Name
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(names, ", "))
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
