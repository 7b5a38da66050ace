package logger

import (
	"sync"
	"time"
)

// StageTracker times the named stages of a pipeline run and logs each one
type StageTracker struct {
	logger    Logger
	operation string
	startTime time.Time
	current   string
	stageAt   time.Time
	durations []StageDuration
	mutex     sync.Mutex
}

// StageDuration records how long one stage took
type StageDuration struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// NewStageTracker creates a tracker for operation
func NewStageTracker(operation string, log Logger) *StageTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	now := time.Now()
	return &StageTracker{
		logger:    log.WithComponent("stages"),
		operation: operation,
		startTime: now,
		stageAt:   now,
	}
}

// Begin closes the running stage, if any, and starts a new one
func (s *StageTracker) Begin(stage string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	s.finishLocked(now)
	s.current = stage
	s.stageAt = now
	s.logger.WithFields(Fields{
		"operation": s.operation,
		"stage":     stage,
	}).Debug("Stage started")
}

// Complete closes the running stage and logs the total duration
func (s *StageTracker) Complete() []StageDuration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	s.finishLocked(now)
	s.logger.WithFields(Fields{
		"operation": s.operation,
		"stages":    len(s.durations),
		"duration":  now.Sub(s.startTime).String(),
	}).Info("Operation completed")

	return append([]StageDuration(nil), s.durations...)
}

// Fail closes the running stage and logs err against it
func (s *StageTracker) Fail(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.logger.WithError(err).WithFields(Fields{
		"operation": s.operation,
		"stage":     s.current,
		"duration":  time.Since(s.startTime).String(),
	}).Error("Operation failed")
	s.current = ""
}

func (s *StageTracker) finishLocked(now time.Time) {
	if s.current == "" {
		return
	}
	d := now.Sub(s.stageAt)
	s.durations = append(s.durations, StageDuration{Stage: s.current, Duration: d})
	s.logger.WithFields(Fields{
		"operation": s.operation,
		"stage":     s.current,
		"duration":  d.String(),
	}).Info("Stage finished")
	s.current = ""
}
