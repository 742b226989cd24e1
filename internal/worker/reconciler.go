// Package worker refreshes derived financial aggregates after batches
// commit, keeping list views honest without recomputing on every read.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"parishledger/internal/amqp"
	"parishledger/internal/storage"
)

// Reconciler recomputes budget usage and per-period totals when a batch
// lands, and flags budgets whose committed spend exceeds their allocation.
// Overspend is possible: capacity validation reads a snapshot, it does not
// lock, so two concurrent submits can jointly pass and overspend.
type Reconciler struct {
	storage *storage.Repository
}

func NewReconciler(storage *storage.Repository) *Reconciler {
	return &Reconciler{storage: storage}
}

// HandleBatchCommitted processes one commit event from the queue.
func (r *Reconciler) HandleBatchCommitted(ctx context.Context, msg *amqp.BatchCommittedMessage) error {
	slog.InfoContext(ctx, "Reconciling after batch commit",
		"batch_id", msg.BatchID,
		"tenant", msg.Tenant,
		"kind", msg.Kind,
		"rows", msg.RowCount)

	if err := r.ReconcileTenant(ctx, msg.Tenant); err != nil {
		return fmt.Errorf("reconcile tenant %s: %w", msg.Tenant, err)
	}

	now := time.Now().UTC()
	total, err := r.storage.PeriodTotal(ctx, msg.Tenant, msg.Kind, now.Year(), int(now.Month()))
	if err != nil {
		return fmt.Errorf("period total: %w", err)
	}
	slog.InfoContext(ctx, "Period total refreshed",
		"tenant", msg.Tenant,
		"kind", msg.Kind,
		"year", now.Year(),
		"month", int(now.Month()),
		"total", total.StringFixed(2))

	return nil
}

// ReconcileTenant recomputes usage for every active budget of the tenant
// and logs any that went over allocation.
func (r *Reconciler) ReconcileTenant(ctx context.Context, tenant string) error {
	budgets, err := r.storage.ActiveBudgets(ctx, tenant)
	if err != nil {
		return fmt.Errorf("active budgets: %w", err)
	}

	overspent := 0
	for _, b := range budgets {
		if b.Remaining().IsNegative() {
			overspent++
			slog.WarnContext(ctx, "Budget overspent",
				"tenant", tenant,
				"budget_id", b.ID,
				"budget_name", b.Name,
				"allocation", b.Allocation.StringFixed(2),
				"used", b.Used.StringFixed(2))
		}
	}

	slog.InfoContext(ctx, "Tenant reconciled",
		"tenant", tenant,
		"budgets", len(budgets),
		"overspent", overspent)
	return nil
}
