package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/skriva/internal/apperr"
	"github.com/halvard/skriva/internal/entry"
	"github.com/halvard/skriva/internal/journal"
	"github.com/halvard/skriva/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *journal.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when event
// broadcasting is disabled.
func NewHandler(svc *journal.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// entryDate extracts and parses the {date} URL parameter.
func entryDate(r *http.Request) (entry.Date, error) {
	return entry.ParseDate(chi.URLParam(r, "date"))
}

func (h *Handler) publish(kind string, d entry.Date) {
	if h.broker != nil {
		h.broker.PublishEntryEvent(kind, d)
	}
}

func (h *Handler) publishDirty(d entry.Date, dirty bool) {
	if h.broker != nil {
		h.broker.PublishDirty(d, dirty)
	}
}

// ListDates handles GET /api/entries.
//
//	@Summary		List all dates that have a journal entry
//	@Tags			entries
//	@Produce		json
//	@Success		200	{object}	DateListResponse
//	@Security		BearerAuth
//	@Router			/entries [get]
func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.svc.Dates(r.Context())
	if err != nil {
		slog.Error("list dates failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	writeJSON(w, http.StatusOK, DateListResponse{Dates: out})
}

// GetEntry handles GET /api/entries/{date}.
//
//	@Summary		Get the journal entry for a date
//	@Tags			entries
//	@Produce		json
//	@Param			date	path		string	true	"Entry date (YYYY-MM-DD)"
//	@Success		200		{object}	EntryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	d, err := entryDate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	detail, err := h.svc.Get(r.Context(), d)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get entry failed", slog.String("date", d.String()), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// PutEntry handles PUT /api/entries/{date}. The date has at most one
// entry, so PUT both creates and replaces.
//
//	@Summary		Save the journal entry for a date
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Entry date (YYYY-MM-DD)"
//	@Param			body	body		WriteEntryRequest	true	"Entry fields"
//	@Success		200		{object}	EntryDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [put]
func (h *Handler) PutEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	d, err := entryDate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	var req WriteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	detail, err := h.svc.Put(r.Context(), d, journal.EntryInput{
		Body:       req.Body,
		Title:      req.Title,
		Tags:       req.Tags,
		MoodRating: req.MoodRating,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalid) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("put entry failed", slog.String("date", d.String()), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish("saved", d)
	writeJSON(w, http.StatusOK, detail)
}

// DeleteEntry handles DELETE /api/entries/{date}.
//
//	@Summary		Delete the journal entry for a date
//	@Tags			entries
//	@Param			date	path	string	true	"Entry date (YYYY-MM-DD)"
//	@Success		204		"Entry deleted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	d, err := entryDate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	if err := h.svc.Delete(r.Context(), d); err != nil {
		slog.Error("delete entry failed", slog.String("date", d.String()), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish("deleted", d)
	w.WriteHeader(http.StatusNoContent)
}

// QueueDraft handles POST /api/entries/{date}/draft. The draft is
// debounced by the autosave scheduler rather than written immediately.
//
//	@Summary		Queue a draft for debounced autosave
//	@Tags			entries
//	@Accept			json
//	@Param			date	path	string				true	"Entry date (YYYY-MM-DD)"
//	@Param			body	body	WriteEntryRequest	true	"Draft fields"
//	@Success		202		"Draft queued"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/draft [post]
func (h *Handler) QueueDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	d, err := entryDate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	var req WriteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.QueueDraft(r.Context(), d, journal.EntryInput{
		Body:       req.Body,
		Title:      req.Title,
		Tags:       req.Tags,
		MoodRating: req.MoodRating,
	}); err != nil {
		slog.Error("queue draft failed", slog.String("date", d.String()), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publishDirty(d, true)
	w.WriteHeader(http.StatusAccepted)
}

// FlushEntry handles POST /api/entries/{date}/flush. Used when the editor
// switches dates or the client demands durability.
//
//	@Summary		Flush the pending draft for a date to disk
//	@Tags			entries
//	@Param			date	path	string	true	"Entry date (YYYY-MM-DD)"
//	@Success		204		"Draft flushed (or nothing pending)"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/flush [post]
func (h *Handler) FlushEntry(w http.ResponseWriter, r *http.Request) {
	d, err := entryDate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	if err := h.svc.Flush(r.Context(), d); err != nil {
		slog.Error("flush failed", slog.String("date", d.String()), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("flush failed"))
		return
	}
	h.publishDirty(d, false)
	w.WriteHeader(http.StatusNoContent)
}

// RenameEntry handles POST /api/entries/{date}/rename.
//
//	@Summary		Move an entry to a different date
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Source date (YYYY-MM-DD)"
//	@Param			body	body		RenameEntryRequest	true	"Target date"
//	@Success		200		{object}	EntryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/rename [post]
func (h *Handler) RenameEntry(w http.ResponseWriter, r *http.Request) {
	from, err := entryDate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	var req RenameEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	to, err := entry.ParseDate(req.To)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid target date"))
		return
	}
	detail, err := h.svc.Rename(r.Context(), from, to)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("target date already has an entry"))
		default:
			slog.Error("rename failed", slog.String("from", from.String()), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish("deleted", from)
	h.publish("saved", to)
	writeJSON(w, http.StatusOK, detail)
}

// AttachReflection handles POST /api/entries/{date}/reflection.
//
//	@Summary		Attach an AI reflection document to an entry
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string				true	"Entry date (YYYY-MM-DD)"
//	@Param			body	body		ReflectionRequest	true	"Reflection document"
//	@Success		200		{object}	EntryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{date}/reflection [post]
func (h *Handler) AttachReflection(w http.ResponseWriter, r *http.Request) {
	d, err := entryDate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date"))
		return
	}
	var req ReflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Reflection) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("reflection is required"))
		return
	}
	detail, err := h.svc.AttachReflection(r.Context(), d, req.Reflection)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("attach reflection failed", slog.String("date", d.String()), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish("saved", d)
	writeJSON(w, http.StatusOK, detail)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Date: res.Date.String(), Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Calendar handles GET /api/calendar/{year}/{month}.
//
//	@Summary		List entry dates within one month
//	@Tags			calendar
//	@Produce		json
//	@Param			year	path		int	true	"Year"
//	@Param			month	path		int	true	"Month (1-12)"
//	@Success		200		{object}	DateListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/{year}/{month} [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid year"))
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid month"))
		return
	}
	dates, err := h.svc.Calendar(r.Context(), year, time.Month(month))
	if err != nil {
		slog.Error("calendar failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	writeJSON(w, http.StatusOK, DateListResponse{Dates: out})
}

// Stats handles GET /api/stats.
//
//	@Summary		Vault-wide writing statistics
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	resp := StatsResponse{
		TotalEntries:   st.TotalEntries,
		TotalWords:     st.TotalWords,
		AvgWords:       st.AvgWords,
		WithReflection: st.WithReflection,
	}
	if !st.FirstDate.IsZero() {
		resp.FirstDate = st.FirstDate.String()
		resp.LastDate = st.LastDate.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reconcile handles POST /api/reconcile.
//
//	@Summary		Rescan the entries tree and converge the index on it
//	@Tags			vault
//	@Produce		json
//	@Success		200	{object}	ReconcileResponse
//	@Security		BearerAuth
//	@Router			/reconcile [post]
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reconcile(r.Context())
	if err != nil {
		slog.Error("reconcile failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{
		Scanned: res.Scanned,
		Indexed: res.Indexed,
		Removed: res.Removed,
	})
}
