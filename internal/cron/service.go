package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

var ErrAlreadyStarted = errors.New("cron service already started")

// Service owns the persisted jobs and fires them through OnJob. KindCron jobs
// are registered with robfig/cron; KindEvery and KindAt jobs are polled by a
// tick loop. Every mutation is written back to the store.
type Service struct {
	// OnJob delivers a due job. The returned text is only logged.
	OnJob func(job Job) (string, error)

	store  *Store
	tick   time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	jobs    []Job
	engine  *rcron.Cron
	entries map[string]rcron.EntryID // job ID -> engine entry
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewService(storePath string) *Service {
	return &Service{
		store:   NewStore(storePath),
		tick:    time.Second,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: make(map[string]rcron.EntryID),
	}
}

func (s *Service) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	s.logger = l.Named("cron")
}

// Load replaces the in-memory jobs with the store contents.
func (s *Service) Load() error {
	jobs, err := s.store.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs = jobs
	s.mu.Unlock()
	return nil
}

// Start loads the store and begins firing jobs until Stop or ctx ends. A store
// that fails to load is logged and the service runs with the jobs it has.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	if jobs, err := s.store.Load(); err != nil {
		s.logger.Warn("load jobs", zap.String("path", s.store.Path()), zap.Error(err))
	} else {
		s.jobs = jobs
	}

	s.engine = rcron.New(rcron.WithParser(parser))
	for i := range s.jobs {
		if s.jobs[i].Enabled {
			s.register(s.jobs[i])
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.engine.Start()
	go s.tickLoop(runCtx, s.engine, s.done)

	s.logger.Info("started", zap.Int("jobs", len(s.jobs)), zap.Int("cron_entries", len(s.entries)))
	return nil
}

// Stop halts both loops and waits for them. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.engine = nil
	clear(s.entries)
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("stopped")
}

func (s *Service) tickLoop(ctx context.Context, engine *rcron.Cron, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, job := range s.dueJobs() {
				s.fire(job)
			}
		case <-ctx.Done():
			select {
			case <-engine.Stop().Done():
			case <-time.After(stopTimeout):
				s.logger.Warn("stop timeout waiting for running jobs")
			}
			return
		}
	}
}

func (s *Service) dueJobs() []Job {
	nowMs := s.now().UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Job
	for _, job := range s.jobs {
		if job.Due(nowMs) {
			due = append(due, job)
		}
	}
	return due
}

// register needs s.mu held. Only KindCron jobs have engine entries.
func (s *Service) register(job Job) {
	if s.engine == nil || job.Schedule.Kind != KindCron {
		return
	}
	id := job.ID
	entry, err := s.engine.AddFunc(job.Schedule.Expr, func() { s.fireByID(id) })
	if err != nil {
		s.logger.Warn("register job", zap.String("job", job.Name), zap.String("expr", job.Schedule.Expr), zap.Error(err))
		return
	}
	s.entries[id] = entry
}

// unregister needs s.mu held.
func (s *Service) unregister(id string) {
	if entry, ok := s.entries[id]; ok {
		if s.engine != nil {
			s.engine.Remove(entry)
		}
		delete(s.entries, id)
	}
}

// fireByID runs the current version of a cron-driven job.
func (s *Service) fireByID(id string) {
	s.mu.Lock()
	i := s.index(id)
	var job Job
	if i >= 0 {
		job = s.jobs[i]
	}
	s.mu.Unlock()
	if i < 0 || !job.Enabled {
		return
	}
	s.fire(job)
}

func (s *Service) fire(job Job) {
	if s.OnJob == nil {
		s.logger.Warn("no job handler", zap.String("job", job.Name))
		return
	}
	s.logger.Info("firing job", zap.String("job", job.Name), zap.String("id", job.ID))
	result, err := s.OnJob(job)
	s.finish(job.ID, result, err)
}

// finish records the outcome of a run and drops one-shot jobs.
func (s *Service) finish(id, result string, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return
	}
	job := &s.jobs[i]
	job.State.LastRunAtMs = s.now().UnixMilli()
	if runErr != nil {
		job.State.LastStatus = "error"
		job.State.LastError = runErr.Error()
		s.logger.Warn("job failed", zap.String("job", job.Name), zap.Error(runErr))
	} else {
		job.State.LastStatus = "ok"
		job.State.LastError = ""
		s.logger.Info("job done", zap.String("job", job.Name), zap.String("result", result))
	}

	if job.DeleteAfterRun {
		s.unregister(id)
		s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
	}
	if err := s.store.Save(s.jobs); err != nil {
		s.logger.Warn("save jobs", zap.Error(err))
	}
}

// index needs s.mu held.
func (s *Service) index(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) AddJob(name string, schedule Schedule, payload Payload) (*Job, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(NewJob(name, schedule, payload))
}

// add needs s.mu held.
func (s *Service) add(job Job) (*Job, error) {
	s.jobs = append(s.jobs, job)
	s.register(job)
	if err := s.store.Save(s.jobs); err != nil {
		return nil, fmt.Errorf("save jobs: %w", err)
	}
	return &job, nil
}

// EnsureJob keeps exactly one job with the given name, rescheduling it when
// the schedule or payload changed.
func (s *Service) EnsureJob(name string, schedule Schedule, payload Payload) (*Job, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		job := &s.jobs[i]
		if job.Name != name {
			continue
		}
		if job.Schedule == schedule && job.Payload == payload {
			out := *job
			return &out, nil
		}
		s.unregister(job.ID)
		job.Schedule = schedule
		job.Payload = payload
		if job.Enabled {
			s.register(*job)
		}
		out := *job
		if err := s.store.Save(s.jobs); err != nil {
			return nil, fmt.Errorf("save jobs: %w", err)
		}
		return &out, nil
	}
	return s.add(NewJob(name, schedule, payload))
}

func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.unregister(id)
	s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
	if err := s.store.Save(s.jobs); err != nil {
		s.logger.Warn("save jobs", zap.Error(err))
	}
	return true
}

func (s *Service) ListJobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

func (s *Service) EnableJob(id string, enabled bool) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil, fmt.Errorf("job %s not found", id)
	}
	job := &s.jobs[i]
	job.Enabled = enabled
	if enabled {
		if _, ok := s.entries[id]; !ok {
			s.register(*job)
		}
	} else {
		s.unregister(id)
	}
	if err := s.store.Save(s.jobs); err != nil {
		return nil, fmt.Errorf("save jobs: %w", err)
	}
	out := *job
	return &out, nil
}
