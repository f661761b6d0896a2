package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerRecalc rebuilds one company's account balances from journal lines.
	TaskLedgerRecalc = "ledger:recalculate"
	// TaskLedgerIntegrity scans all companies for debit/credit drift.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup prunes expired idempotency claims.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LedgerRecalcPayload selects which company to recalculate.
type LedgerRecalcPayload struct {
	CompanyID int64 `json:"company_id"`
	ActorID   int64 `json:"actor_id"`
}

// NewLedgerRecalcTask constructs an Asynq task for a balance rebuild.
func NewLedgerRecalcTask(companyID, actorID int64) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerRecalcPayload{CompanyID: companyID, ActorID: actorID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRecalc, body, asynq.Queue(QueueDefault)), nil
}

// LedgerIntegrityPayload carries scheduling metadata.
type LedgerIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs an Asynq task for the nightly integrity scan.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyCleanupPayload bounds the retention window in hours.
type IdempotencyCleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for claim pruning.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{OlderThanHours: int(olderThan.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
