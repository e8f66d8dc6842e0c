package audit

import (
	"context"
	"log/slog"
)

const (
	// KindEnrollment indicates a profile was created with templates.
	KindEnrollment = "enrollment"
	// KindDeletion indicates a profile and its templates were removed.
	KindDeletion = "deletion"
	// KindVerification records a 1:1 decision.
	KindVerification = "verification"
	// KindIdentification records a 1:N decision.
	KindIdentification = "identification"
)

// Event describes a decision or lifecycle event worth an audit trail entry.
type Event struct {
	Kind      string
	ProfileID int64
	Accepted  bool
	Score     float64
	Detail    string
}

// Recorder delivers audit events to downstream systems.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder writes audit events to the structured logger.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder constructs a logging audit recorder.
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	return &LoggerRecorder{logger: logger}
}

// Record writes the event to the structured logger.
func (r *LoggerRecorder) Record(_ context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.Info("audit",
		"kind", event.Kind,
		"profile_id", event.ProfileID,
		"accepted", event.Accepted,
		"score", event.Score,
		"detail", event.Detail,
	)
}
