package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/internal/journal"
	"github.com/BaSui01/toolflow/types"
)

// JournalReader is the read side of the envelope journal.
type JournalReader interface {
	Recent(ctx context.Context, f journal.Filter) ([]journal.Record, error)
	Get(ctx context.Context, id string) (*journal.Record, error)
	CountByType(ctx context.Context, agentName string) ([]journal.TypeCount, error)
}

// JournalHandler 提供信封日志查询
type JournalHandler struct {
	store  JournalReader
	logger *zap.Logger
}

// NewJournalHandler 创建 JournalHandler
func NewJournalHandler(store JournalReader, logger *zap.Logger) *JournalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalHandler{store: store, logger: logger.With(zap.String("component", "journal_handler"))}
}

// RecordView is a journal record with its decoded envelope.
type RecordView struct {
	journal.Record
	Envelope map[string]any `json:"envelope,omitempty"`
}

// HandleList 处理 GET /v1/journal?agent=&type=&error_code=&since=&limit=
func (h *JournalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := journal.Filter{
		Agent:     q.Get("agent"),
		Type:      q.Get("type"),
		ErrorCode: types.ErrorCode(q.Get("error_code")),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be a non-negative integer", h.logger)
			return
		}
		f.Limit = n
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "since must be an RFC3339 timestamp", h.logger)
			return
		}
		f.Since = since
	}

	records, err := h.store.Recent(r.Context(), f)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to query journal").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, records)
}

// HandleGet 处理 GET /v1/journal/{id}
func (h *JournalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "record id is required", h.logger)
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "journal record not found", h.logger)
		return
	}
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to load journal record").WithCause(err), h.logger)
		return
	}

	view := RecordView{Record: *rec}
	if env, err := rec.DecodeEnvelope(); err == nil {
		view.Envelope = env
	} else {
		h.logger.Warn("stored envelope is not decodable", zap.String("id", id), zap.Error(err))
	}
	WriteSuccess(w, view)
}

// HandleStats 处理 GET /v1/journal/stats?agent=
func (h *JournalHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByType(r.Context(), r.URL.Query().Get("agent"))
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to aggregate journal").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, counts)
}
