package cron

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"
)

// Schedule kinds.
const (
	KindCron  = "cron"
	KindEvery = "every"
	KindAt    = "at"
)

// Schedule says when a job fires. Expr is a six-field cron expression
// (seconds first) for KindCron; EveryMs and AtMs are milliseconds.
type Schedule struct {
	Kind    string `json:"kind"`
	Expr    string `json:"expr,omitempty"`
	EveryMs int64  `json:"everyMs,omitempty"`
	AtMs    int64  `json:"atMs,omitempty"`
}

var parser = rcron.NewParser(rcron.Second | rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor)

// Validate rejects schedules the service could never fire.
func (s Schedule) Validate() error {
	switch s.Kind {
	case KindCron:
		if _, err := parser.Parse(s.Expr); err != nil {
			return fmt.Errorf("parse cron expr %q: %w", s.Expr, err)
		}
	case KindEvery:
		if s.EveryMs <= 0 {
			return fmt.Errorf("every schedule needs a positive interval")
		}
	case KindAt:
		if s.AtMs <= 0 {
			return fmt.Errorf("at schedule needs a timestamp")
		}
	default:
		return fmt.Errorf("unknown schedule kind %q", s.Kind)
	}
	return nil
}

func (s Schedule) String() string {
	switch s.Kind {
	case KindCron:
		return "cron " + s.Expr
	case KindEvery:
		return "every " + (time.Duration(s.EveryMs) * time.Millisecond).String()
	case KindAt:
		return "at " + time.UnixMilli(s.AtMs).Format(time.RFC3339)
	}
	return s.Kind
}

// Due reports whether a KindEvery or KindAt job should fire at nowMs. An
// interval counts from the last run, or from creation for a job that never ran.
// KindCron jobs are driven by the cron engine and are never due here.
func (j Job) Due(nowMs int64) bool {
	if !j.Enabled {
		return false
	}
	switch j.Schedule.Kind {
	case KindEvery:
		last := j.State.LastRunAtMs
		if last == 0 {
			last = j.CreatedAtMs
		}
		return j.Schedule.EveryMs > 0 && nowMs >= last+j.Schedule.EveryMs
	case KindAt:
		return j.Schedule.AtMs > 0 && j.State.LastRunAtMs == 0 && nowMs >= j.Schedule.AtMs
	}
	return false
}

// Payload is what a job delivers. Message is either an internal command such
// as the daily summary or reminder text; Deliver routes it to Channel/To.
type Payload struct {
	Message string `json:"message"`
	Deliver bool   `json:"deliver,omitempty"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

type JobState struct {
	LastRunAtMs int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

// Job is one persisted schedule with its delivery payload.
type Job struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	Schedule       Schedule `json:"schedule"`
	Payload        Payload  `json:"payload"`
	State          JobState `json:"state"`
	CreatedAtMs    int64    `json:"createdAtMs"`
	DeleteAfterRun bool     `json:"deleteAfterRun,omitempty"`
}

// NewJob returns an enabled job with a fresh ID.
func NewJob(name string, schedule Schedule, payload Payload) Job {
	return Job{
		ID:          uuid.NewString()[:8],
		Name:        name,
		Enabled:     true,
		Schedule:    schedule,
		Payload:     payload,
		CreatedAtMs: time.Now().UnixMilli(),
	}
}
