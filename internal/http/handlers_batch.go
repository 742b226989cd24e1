package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"parishledger/internal/batch"
	"parishledger/internal/core"
	"parishledger/internal/importer"
)

type batchResponse struct {
	Kind       core.Kind               `json:"kind"`
	Rows       []core.TransactionDraft `json:"rows"`
	Aggregates batch.Aggregates        `json:"aggregates"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*batch.Session, bool) {
	tenant, actor, ok := identity(w, r)
	if !ok {
		return nil, false
	}
	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Type: "invalid_kind"})
		return nil, false
	}
	return s.sessions.Session(tenant, actor, kind), true
}

// handleImport replaces the draft list from a tabular payload. The body is
// delimited text by default; ?format=xlsx reads an xlsx workbook and
// ?source=sheet pulls the configured spreadsheet range instead of the body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		table importer.Table
		err   error
	)
	switch {
	case r.URL.Query().Get("source") == "sheet":
		if s.sheetReader == nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "no spreadsheet source configured",
				Type:  "no_sheet_source",
			})
			return
		}
		table, err = s.sheetReader.ReadTable(r.Context(), s.sheetRange)
	case r.URL.Query().Get("format") == "xlsx":
		table, err = importer.ReadXLSX(r.Body)
	default:
		table, err = importer.ReadCSV(r.Body)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Type: "unreadable_payload"})
		return
	}

	drafts, err := importer.Parse(table, sess.Kind())
	if err != nil {
		writeError(w, err)
		return
	}

	sess.ReplaceAll(drafts)
	slog.InfoContext(r.Context(), "Import accepted",
		"kind", sess.Kind(),
		"rows", len(drafts))

	writeJSON(w, http.StatusOK, batchResponse{
		Kind:       sess.Kind(),
		Rows:       sess.Drafts(),
		Aggregates: sess.Aggregates(),
	})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{
		Kind:       sess.Kind(),
		Rows:       sess.Drafts(),
		Aggregates: sess.Aggregates(),
	})
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index := sess.AddRow()
	writeJSON(w, http.StatusCreated, map[string]any{
		"index":      index,
		"aggregates": sess.Aggregates(),
	})
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid row index", Type: "bad_request"})
		return
	}

	var patch batch.RowPatch
	if err := decodeBody(r, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Type: "bad_request"})
		return
	}

	if err := sess.UpdateRow(index, patch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"aggregates": sess.Aggregates(),
	})
}

func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid row index", Type: "bad_request"})
		return
	}
	if err := sess.RemoveRow(index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"aggregates": sess.Aggregates(),
	})
}

func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Aggregates())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	tenant, actor, ok := identity(w, r)
	if !ok {
		return
	}
	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Type: "invalid_kind"})
		return
	}
	sess := s.sessions.Session(tenant, actor, kind)

	result, err := s.engine.Submit(r.Context(), tenant, actor, sess)
	if err != nil {
		// Drafts stay as they were; the operator corrects and resubmits.
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":       sess.Drafts(),
		"aggregates": sess.Aggregates(),
	})
}
