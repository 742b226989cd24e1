package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"parishledger/internal/batch"
	"parishledger/internal/importer"
)

const (
	headerTenant = "X-Tenant"
	headerActor  = "X-Actor"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Rows  []any  `json:"rows,omitempty"`
}

// writeError maps the engine's error taxonomy onto status codes and a typed
// payload. Messages go out verbatim; the operator needs the row context.
func writeError(w http.ResponseWriter, err error) {
	var (
		structural *importer.StructuralError
		rowErr     *importer.RowError
		resolution *batch.ResolutionErrors
		capacity   *batch.CapacityError
		commit     *batch.CommitError
	)
	switch {
	case errors.As(err, &structural):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: structural.Error(), Type: "structural_import_error"})
	case errors.As(err, &rowErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: rowErr.Error(), Type: "row_format_error"})
	case errors.As(err, &resolution):
		resp := errorResponse{Error: resolution.Error(), Type: "resolution_error"}
		for _, issue := range resolution.Issues {
			resp.Rows = append(resp.Rows, map[string]any{
				"row":   issue.Row,
				"value": issue.Value,
				"error": issue.Msg,
			})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &capacity):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: capacity.Error(), Type: "capacity_error"})
	case errors.As(err, &commit):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: commit.Error(), Type: "commit_error"})
	case errors.Is(err, batch.ErrEmptyBatch):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Type: "empty_batch"})
	case errors.Is(err, batch.ErrRowOutOfRange):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Type: "row_not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Type: "internal_error"})
	}
}

// identity pulls tenant and actor from headers; both are required on every
// engine route.
func identity(w http.ResponseWriter, r *http.Request) (tenant, actor string, ok bool) {
	tenant = r.Header.Get(headerTenant)
	actor = r.Header.Get(headerActor)
	if tenant == "" || actor == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "missing " + headerTenant + " or " + headerActor + " header",
			Type:  "missing_identity",
		})
		return "", "", false
	}
	return tenant, actor, true
}
