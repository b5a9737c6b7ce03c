package logger

import (
	"time"
)

// RunLogger logs the phases of a reconciliation run with timing. Each run
// is tagged with its ID so interleaved runs stay distinguishable in logs.
type RunLogger struct {
	logger    Logger
	runID     string
	startTime time.Time
}

// NewRunLogger creates a run logger tagged with the run ID
func NewRunLogger(runID string, logger Logger) *RunLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	rl := &RunLogger{
		logger:    logger.WithComponent("reconciler").WithField("run_id", runID),
		runID:     runID,
		startTime: time.Now(),
	}

	rl.logger.Info("Starting reconciliation run")
	return rl
}

// Phase logs entry into a run phase with its input size
func (rl *RunLogger) Phase(phase string, count int) {
	rl.logger.WithFields(Fields{
		"phase": phase,
		"count": count,
	}).Debug("Run phase")
}

// RecordError logs one collected record-level error without failing the run
func (rl *RunLogger) RecordError(recordID string, err error) {
	rl.logger.WithError(err).WithField("record_id", recordID).Warn("Record excluded from run")
}

// Complete logs the run outcome counts and total duration
func (rl *RunLogger) Complete(matched, review, unmatched, errors int) {
	rl.logger.WithFields(Fields{
		"matched":   matched,
		"review":    review,
		"unmatched": unmatched,
		"errors":    errors,
		"duration":  time.Since(rl.startTime).String(),
	}).Info("Reconciliation run completed")
}

// Failed logs a run aborted by a configuration or processing error
func (rl *RunLogger) Failed(err error) {
	rl.logger.WithError(err).WithField(
		"duration", time.Since(rl.startTime).String(),
	).Error("Reconciliation run failed")
}
