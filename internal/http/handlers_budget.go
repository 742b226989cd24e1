package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"parishledger/internal/core"
)

// budgetUsageRow is the list/detail view of one budget with derived usage,
// the same computation the capacity validator snapshots at submit.
type budgetUsageRow struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Allocation decimal.Decimal `json:"allocation"`
	Used       decimal.Decimal `json:"usedAmount"`
	Remaining  decimal.Decimal `json:"remaining"`
	ActiveFrom core.Date       `json:"activeFrom"`
	ActiveTill core.Date       `json:"activeUntil"`
}

func (s *Server) handleBudgetUsage(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := identity(w, r)
	if !ok {
		return
	}

	budgets, err := s.engine.BudgetUsage(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}

	rows := make([]budgetUsageRow, len(budgets))
	for i, b := range budgets {
		rows[i] = budgetUsageRow{
			ID:         b.ID,
			Name:       b.Name,
			Allocation: b.Allocation,
			Used:       b.Used,
			Remaining:  b.Remaining(),
			ActiveFrom: b.ActiveFrom,
			ActiveTill: b.ActiveUntil,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": rows})
}

// decodeBody reads a JSON request body with a sane size cap.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
