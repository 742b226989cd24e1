package batch

import (
	"context"

	"parishledger/internal/core"
)

// Ports for the collaborators the engine depends on. The storage layer
// implements SnapshotReader and BatchInserter; the AMQP client implements
// CommitNotifier. Tests stub all three.
type (
	SnapshotReader interface {
		ActiveBudgets(ctx context.Context, tenant string) ([]core.Budget, error)
		Members(ctx context.Context, tenant string) ([]core.Member, error)
		Categories(ctx context.Context, tenant string, kind core.Kind) ([]core.Category, error)
	}

	// BatchInserter persists a batch as one atomic write. Either every
	// record is committed or none is; partial writes are the inserter's
	// bug, not the engine's concern.
	BatchInserter interface {
		InsertTransactionBatch(ctx context.Context, records []core.Transaction) ([]core.Transaction, error)
	}

	// CommitNotifier tells downstream consumers that a batch landed so
	// dependent aggregates (budget usage, per-period totals) recompute.
	CommitNotifier interface {
		PublishBatchCommitted(ctx context.Context, msg CommittedEvent) error
	}
)

// CommittedEvent describes one committed batch.
type CommittedEvent struct {
	BatchID  string    `json:"batchId"`
	Tenant   string    `json:"tenant"`
	Kind     core.Kind `json:"kind"`
	RowCount int       `json:"rowCount"`
	Total    string    `json:"total"`
}
