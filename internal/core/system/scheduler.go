package system

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSchedulerClosed     = errors.New("scheduler closed")
	ErrSchedulerNotStarted = errors.New("scheduler not started")
)

// deque is a worker-local task queue. The owner pushes and pops at the back;
// thieves take from the front, so stolen work is the oldest.
type deque struct {
	mu    sync.Mutex
	items []int
}

func (d *deque) push(n int) {
	d.mu.Lock()
	d.items = append(d.items, n)
	d.mu.Unlock()
}

func (d *deque) pop() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return 0, false
	}
	n := d.items[len(d.items)-1]
	d.items = d.items[:len(d.items)-1]
	return n, true
}

func (d *deque) steal() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return 0, false
	}
	n := d.items[0]
	d.items = d.items[1:]
	return n, true
}

type worker struct {
	id    int
	local deque
	rng   *rand.Rand
}

// frame is the execution state of one graph run.
type frame struct {
	graph     *Graph
	exec      func(node int) error
	pending   []atomic.Int32
	remaining atomic.Int32
	done      chan struct{}

	mu  sync.Mutex
	err error
}

func (f *frame) call(n int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("system %s panicked: %v", f.graph.Name(n), r)
		}
	}()
	return f.exec(n)
}

func (f *frame) fail(err error) {
	f.mu.Lock()
	f.err = multierr.Append(f.err, err)
	f.mu.Unlock()
}

// Stats are cumulative counters since the scheduler started.
type Stats struct {
	Executed uint64
	Stolen   uint64
	Frames   uint64
}

// Scheduler runs task graphs on a fixed pool of workers. Ready tasks go to the
// local deque of the worker that released them, or to the shared injector
// for frame roots; idle workers steal before they sleep.
type Scheduler struct {
	workers  []*worker
	injector deque

	mu     sync.Mutex
	cond   *sync.Cond
	queued int
	closed bool

	running sync.Mutex
	current atomic.Pointer[frame]
	group   *errgroup.Group

	executed atomic.Uint64
	stolen   atomic.Uint64
	frames   atomic.Uint64

	log *zap.Logger
}

// NewScheduler creates a pool of n workers; n <= 0 means GOMAXPROCS.
func NewScheduler(n int, log *zap.Logger) *Scheduler {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{log: log}
	s.cond = sync.NewCond(&s.mu)
	for i := 0; i < n; i++ {
		s.workers = append(s.workers, &worker{
			id:  i,
			rng: rand.New(rand.NewPCG(uint64(i)+1, 0x9e3779b97f4a7c15)),
		})
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int { return len(s.workers) }

// Start launches the worker goroutines.
func (s *Scheduler) Start() error {
	s.running.Lock()
	defer s.running.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if s.group != nil {
		return nil
	}
	s.group = new(errgroup.Group)
	for _, w := range s.workers {
		s.group.Go(func() error { return s.loop(w) })
	}
	s.log.Debug("scheduler started", zap.Int("workers", len(s.workers)))
	return nil
}

// Close waits for the frame in flight, stops every worker and waits for
// them to exit. The scheduler cannot be restarted.
func (s *Scheduler) Close() error {
	s.running.Lock()
	defer s.running.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	var err error
	if s.group != nil {
		err = s.group.Wait()
	}
	s.log.Debug("scheduler stopped",
		zap.Uint64("executed", s.executed.Load()),
		zap.Uint64("stolen", s.stolen.Load()),
	)
	return err
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Executed: s.executed.Load(),
		Stolen:   s.stolen.Load(),
		Frames:   s.frames.Load(),
	}
}

// Run executes every node of g once, calling exec(node) on a worker after all
// of the node's dependencies completed. It returns when the whole graph has
// run. Errors and panics of individual nodes are combined into the result;
// dependents of a failed node still run. ctx is only consulted before the
// frame starts: a started frame always runs to completion.
func (s *Scheduler) Run(ctx context.Context, g *Graph, exec func(node int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.running.Lock()
	defer s.running.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if s.group == nil {
		return ErrSchedulerNotStarted
	}
	if g.Len() == 0 {
		s.frames.Add(1)
		return nil
	}

	f := &frame{
		graph:   g,
		exec:    exec,
		pending: make([]atomic.Int32, g.Len()),
		done:    make(chan struct{}),
	}
	f.remaining.Store(int32(g.Len()))
	for i := 0; i < g.Len(); i++ {
		f.pending[i].Store(int32(len(g.Deps(i))))
	}
	s.current.Store(f)
	for i := 0; i < g.Len(); i++ {
		if len(g.Deps(i)) == 0 {
			s.enqueue(nil, i)
		}
	}
	<-f.done
	s.current.Store(nil)
	s.frames.Add(1)
	return f.err
}

func (s *Scheduler) enqueue(w *worker, n int) {
	if w != nil {
		w.local.push(n)
	} else {
		s.injector.push(n)
	}
	s.mu.Lock()
	s.queued++
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *Scheduler) took() {
	s.mu.Lock()
	s.queued--
	s.mu.Unlock()
}

func (s *Scheduler) loop(w *worker) error {
	for {
		n, ok := s.next(w)
		if !ok {
			return nil
		}
		s.execute(w, n)
	}
}

// next blocks until a task is available or the scheduler closes.
func (s *Scheduler) next(w *worker) (int, bool) {
	for {
		if n, ok := w.local.pop(); ok {
			s.took()
			return n, true
		}
		if n, ok := s.injector.steal(); ok {
			s.took()
			return n, true
		}
		if n, ok := s.steal(w); ok {
			s.took()
			s.stolen.Add(1)
			return n, true
		}
		s.mu.Lock()
		for s.queued <= 0 && !s.closed {
			s.cond.Wait()
		}
		stop := s.closed && s.queued <= 0
		s.mu.Unlock()
		if stop {
			return 0, false
		}
	}
}

func (s *Scheduler) steal(w *worker) (int, bool) {
	k := len(s.workers)
	if k < 2 {
		return 0, false
	}
	start := w.rng.IntN(k)
	for i := 0; i < k; i++ {
		v := s.workers[(start+i)%k]
		if v == w {
			continue
		}
		if n, ok := v.local.steal(); ok {
			return n, true
		}
	}
	return 0, false
}

func (s *Scheduler) execute(w *worker, n int) {
	f := s.current.Load()
	if err := f.call(n); err != nil {
		f.fail(err)
	}
	s.executed.Add(1)
	for _, d := range f.graph.Dependents(n) {
		if f.pending[d].Add(-1) == 0 {
			s.enqueue(w, d)
		}
	}
	if f.remaining.Add(-1) == 0 {
		close(f.done)
	}
}
