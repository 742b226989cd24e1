// Package batch implements the bulk entry engine: draft sessions, running
// aggregates, counterparty resolution, budget capacity validation and the
// atomic commit of a prepared batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"parishledger/internal/cache"
	"parishledger/internal/core"
)

var ErrEmptyBatch = errors.New("batch has no rows to commit")

// refData is the slow-moving reference slice of a snapshot. Budgets are
// always fetched fresh at submit so the capacity check sees current usage;
// members and categories can be served from cache.
type refData struct {
	Members    []core.Member
	Categories []core.Category
}

// Service orchestrates submits over the collaborator ports.
type Service struct {
	store      SnapshotReader
	inserter   BatchInserter
	notifier   CommitNotifier // optional, nil disables events
	refCache   *cache.Cache[refData]
	usageCache *cache.Cache[[]core.Budget]
	currency   string
}

// NewService wires the engine to its collaborators. notifier may be nil;
// commits then simply publish nothing.
func NewService(store SnapshotReader, inserter BatchInserter, notifier CommitNotifier, currency string, refTTL time.Duration) *Service {
	return &Service{
		store:      store,
		inserter:   inserter,
		notifier:   notifier,
		refCache:   cache.New[refData](64, refTTL),
		usageCache: cache.New[[]core.Budget](64, refTTL),
		currency:   currency,
	}
}

// CommitResult reports a successful batch commit.
type CommitResult struct {
	BatchID     string          `json:"batchId"`
	RowCount    int             `json:"rowCount"`
	Total       decimal.Decimal `json:"total"`
	CommittedAt time.Time       `json:"committedAt"`
}

// Submit runs the whole pipeline for one session: copy the drafts as they
// stand right now, take a single reference snapshot, resolve every row,
// validate capacity, then insert the batch atomically. On success the
// session resets to one empty row and dependent caches are invalidated; on
// any failure the drafts are left untouched so the operator can fix and
// retry without re-entering data.
//
// The capacity snapshot is a point-in-time read, not a lock: two operators
// submitting against the same budget can each pass validation and jointly
// overspend the allocation. Known gap; the reconciliation worker flags the
// overspend after the fact.
func (s *Service) Submit(ctx context.Context, tenant, actor string, sess *Session) (*CommitResult, error) {
	drafts := pruneEmpty(sess.Drafts())
	if len(drafts) == 0 {
		return nil, ErrEmptyBatch
	}

	snap, err := s.snapshot(ctx, tenant, sess.Kind())
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	if err := Resolve(drafts, snap); err != nil {
		return nil, err
	}
	if err := ValidateCapacity(drafts, snap, s.currency); err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	records := make([]core.Transaction, len(drafts))
	for i, d := range drafts {
		records[i] = core.Transaction{
			ID:             uuid.NewString(),
			BatchID:        batchID,
			Tenant:         tenant,
			Actor:          actor,
			Kind:           d.Kind,
			CounterpartyID: d.ResolvedID,
			CategoryID:     d.CategoryRef,
			Amount:         d.Amount.Decimal,
			Date:           d.Date,
			Description:    d.Description,
			CommittedAt:    now,
		}
	}

	committed, err := s.inserter.InsertTransactionBatch(ctx, records)
	if err != nil {
		return nil, &CommitError{BatchID: batchID, Err: err}
	}

	total := decimal.Zero
	for _, r := range committed {
		total = core.RoundMoney(total.Add(r.Amount))
	}

	sess.Reset()
	s.usageCache.Invalidate(tenant)

	slog.InfoContext(ctx, "Batch committed",
		"batch_id", batchID,
		"tenant", tenant,
		"actor", actor,
		"kind", sess.Kind(),
		"rows", len(committed),
		"total", total.StringFixed(2))

	if s.notifier != nil {
		event := CommittedEvent{
			BatchID:  batchID,
			Tenant:   tenant,
			Kind:     sess.Kind(),
			RowCount: len(committed),
			Total:    total.StringFixed(2),
		}
		if err := s.notifier.PublishBatchCommitted(ctx, event); err != nil {
			// The batch is already durable; a lost event only delays
			// downstream aggregate refresh until the next TTL expiry.
			slog.WarnContext(ctx, "Failed to publish commit event",
				"batch_id", batchID, "error", err)
		}
	}

	return &CommitResult{
		BatchID:     batchID,
		RowCount:    len(committed),
		Total:       total,
		CommittedAt: now,
	}, nil
}

// BudgetUsage returns the active budgets with derived usage for the list
// and detail views. Served from cache between commits.
func (s *Service) BudgetUsage(ctx context.Context, tenant string) ([]core.Budget, error) {
	if budgets, ok := s.usageCache.Get(tenant); ok {
		return budgets, nil
	}
	budgets, err := s.store.ActiveBudgets(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("fetch active budgets: %w", err)
	}
	s.usageCache.Set(tenant, budgets)
	return budgets, nil
}

// snapshot assembles the point-in-time state for one submit. Budgets are
// read fresh every time; members and categories come from the TTL cache.
func (s *Service) snapshot(ctx context.Context, tenant string, kind core.Kind) (Snapshot, error) {
	budgets, err := s.store.ActiveBudgets(ctx, tenant)
	if err != nil {
		return Snapshot{}, fmt.Errorf("active budgets: %w", err)
	}

	key := tenant + "|" + string(kind)
	ref, ok := s.refCache.Get(key)
	if !ok {
		members, err := s.store.Members(ctx, tenant)
		if err != nil {
			return Snapshot{}, fmt.Errorf("members: %w", err)
		}
		categories, err := s.store.Categories(ctx, tenant, kind)
		if err != nil {
			return Snapshot{}, fmt.Errorf("categories: %w", err)
		}
		ref = refData{Members: members, Categories: categories}
		s.refCache.Set(key, ref)
	}

	return TakeSnapshot(budgets, ref.Members, ref.Categories), nil
}

// pruneEmpty drops rows the operator never touched (the blank trailing row
// the form always shows). A row with any filled field is kept and must then
// pass validation.
func pruneEmpty(drafts []core.TransactionDraft) []core.TransactionDraft {
	out := drafts[:0]
	for _, d := range drafts {
		if !d.HasAmount() && d.CategoryRef == "" && d.CounterpartyRef == "" &&
			d.EnvelopeCode == "" && d.Date.IsZero() && d.Description == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}
