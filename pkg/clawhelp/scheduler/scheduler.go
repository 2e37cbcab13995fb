// Package scheduler runs bot commands on cron schedules, for example posting
// the help list to a group every Monday morning.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
)

// minJobInterval is the shortest time between two runs of the same job.
// Schedules that fire faster are skipped until it elapses.
const minJobInterval = 5 * time.Second

// Job is one scheduled command.
type Job struct {
	ID       string `yaml:"id"`
	Schedule string `yaml:"schedule"`

	// Channel and ChatID address the conversation the command runs in.
	Channel string `yaml:"channel"`
	ChatID  string `yaml:"chat_id"`
	Group   bool   `yaml:"group"`

	// Command is the command line without the prefix, e.g. "help".
	Command string `yaml:"command"`
	Enabled bool   `yaml:"enabled"`

	LastRunAt *time.Time `yaml:"-"`
	LastError string     `yaml:"-"`
	running   bool
}

// Validate checks the fields a job needs to run.
func (j *Job) Validate() error {
	switch {
	case j.ID == "":
		return errors.New("job id is required")
	case j.Channel == "" || j.ChatID == "":
		return fmt.Errorf("job %s: channel and chat_id are required", j.ID)
	case j.Command == "":
		return fmt.Errorf("job %s: command is required", j.ID)
	}
	if _, err := cron.ParseStandard(j.Schedule); err != nil {
		return fmt.Errorf("job %s: schedule %q: %w", j.ID, j.Schedule, err)
	}
	return nil
}

// Next reports the first time after t the job's schedule fires.
func (j *Job) Next(t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(j.Schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t), nil
}

// JobRunner executes a job.
type JobRunner func(ctx context.Context, job *Job) error

// Scheduler fires enabled jobs on their schedules.
type Scheduler struct {
	cron   *cron.Cron
	runner JobRunner
	logger *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*Job
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler for jobs. Jobs are not validated until Start.
func New(jobs []*Job, runner JobRunner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		logger:  logger.With("component", "scheduler"),
		jobs:    make(map[string]*Job, len(jobs)),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

// Start schedules every enabled job and starts the cron loop. Invalid jobs
// are reported together and nothing is started.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error
	for _, j := range s.jobs {
		if err := j.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	for id, j := range s.jobs {
		if !j.Enabled {
			continue
		}
		job := j
		entry, err := s.cron.AddFunc(job.Schedule, func() { s.executeJob(job) })
		if err != nil {
			return fmt.Errorf("schedule %s: %w", id, err)
		}
		s.entries[id] = entry
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.entries))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Jobs returns a snapshot of the jobs sorted by ID.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, Job{
			ID:        j.ID,
			Schedule:  j.Schedule,
			Channel:   j.Channel,
			ChatID:    j.ChatID,
			Group:     j.Group,
			Command:   j.Command,
			Enabled:   j.Enabled,
			LastRunAt: j.LastRunAt,
			LastError: j.LastError,
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// NextRun reports when the job fires next.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(entry).Next, true
}

func (s *Scheduler) executeJob(job *Job) {
	s.mu.Lock()
	if job.running {
		s.mu.Unlock()
		s.logger.Warn("job still running, skipping", "job", job.ID)
		return
	}
	if job.LastRunAt != nil && time.Since(*job.LastRunAt) < minJobInterval {
		s.mu.Unlock()
		s.logger.Debug("job ran too recently, skipping", "job", job.ID)
		return
	}
	now := time.Now()
	job.running = true
	job.LastRunAt = &now
	ctx := s.ctx
	s.mu.Unlock()

	err := s.runner(ctx, job)

	s.mu.Lock()
	job.running = false
	job.LastError = ""
	if err != nil {
		job.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", job.ID, "error", err)
		return
	}
	s.logger.Info("job completed", "job", job.ID, "duration_ms", time.Since(now).Milliseconds())
}
