package audit

import (
	"context"

	"github.com/Astemirdum/library-portal/pkg/auth"
	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/Astemirdum/library-portal/portal/internal/metrics"
	"go.uber.org/zap"
)

const (
	OutcomeConfirmed  = "confirmed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
)

// Recorder accounts for every user action in metrics and the audit log.
type Recorder struct {
	log   *zap.Logger
	stats StatsLog
}

func NewRecorder(log *zap.Logger, stats StatsLog) *Recorder {
	if stats == nil {
		stats = NewStatsLog(nil, "")
	}
	return &Recorder{log: log, stats: stats}
}

func (r *Recorder) Record(ctx context.Context, entity, action, id, outcome string) {
	metrics.ObserveMutation(entity, action, outcome)
	ev := kafka.EventStats{
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Outcome:  outcome,
	}
	if u, ok := auth.UserFrom(ctx); ok {
		ev.UserName, ev.Role = u.Name, u.Role
	}
	if err := r.stats.Log(ev); err != nil {
		r.log.Warn("audit log", zap.Error(err))
	}
}
