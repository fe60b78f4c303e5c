package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"streakly/internal/models"
	"streakly/internal/services"
	"streakly/internal/store"
)

type JournalHandler struct {
	store    *store.Store
	encSvc   *services.EncryptionService
	notifier *JournalNotifier
	logger   *zap.Logger
}

func NewJournalHandler(st *store.Store, encSvc *services.EncryptionService, notifier *JournalNotifier, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{store: st, encSvc: encSvc, notifier: notifier, logger: logger}
}

type journalRequest struct {
	JournalDate    string `json:"journal_date"` // YYYY-MM-DD provided by the app
	Entry          string `json:"entry"`
	AITip          string `json:"ai_tip"`
	SentimentScore int    `json:"sentiment_score"`
}

func (req journalRequest) toJournal() (models.Journal, error) {
	if strings.TrimSpace(req.Entry) == "" {
		return models.Journal{}, errors.New("entry is required")
	}
	if req.SentimentScore < models.MinSentimentScore || req.SentimentScore > models.MaxSentimentScore {
		return models.Journal{}, errors.New("sentiment_score must be between 1 and 5")
	}
	date, err := models.ParseDate(req.JournalDate)
	if err != nil {
		return models.Journal{}, err
	}
	return models.Journal{JournalDate: date, Entry: req.Entry, AITip: req.AITip, SentimentScore: req.SentimentScore}, nil
}

// Upsert creates or overwrites the entry for the user's journal date and
// invalidates the user's cached history.
func (h *JournalHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	j, err := req.toJournal()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	j.UserID = userID

	if err := h.encSvc.EncryptJournal(&j); err != nil {
		http.Error(w, "could not encrypt entry", http.StatusInternalServerError)
		return
	}
	if err := h.store.UpsertJournal(r.Context(), j); err != nil {
		h.logger.Error("upsert journal", zap.Error(err))
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	h.notifier.JournalWritten(r.Context(), userID)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Entry saved successfully",
		"journal_date": j.JournalDate,
	})
}

// Delete removes the entry for the {date} path param.
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		http.Error(w, "invalid date; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteJournal(r.Context(), userID, date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("delete journal", zap.Error(err))
		http.Error(w, "could not delete", http.StatusInternalServerError)
		return
	}
	h.notifier.JournalWritten(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

type journalEntry struct {
	JournalDate    models.Date `json:"journal_date"`
	Entry          string      `json:"entry"`
	AITip          string      `json:"ai_tip"`
	SentimentScore int         `json:"sentiment_score"`
}

// List accepts optional start_date and end_date (YYYY-MM-DD) query params.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var start, end *models.Date
	for _, p := range []struct {
		name string
		dst  **models.Date
	}{{"start_date", &start}, {"end_date", &end}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid "+p.name+" format; expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		*p.dst = &d
	}

	entries, err := h.store.ListJournal(r.Context(), currentUser(r), start, end, 100)
	if err != nil {
		h.logger.Error("list journal", zap.Error(err))
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	out := make([]journalEntry, 0, len(entries))
	for _, j := range entries {
		if err := h.encSvc.DecryptJournal(&j); err != nil {
			h.logger.Warn("skipping undecryptable journal entry", zap.String("journal_date", j.JournalDate.String()), zap.Error(err))
			continue
		}
		out = append(out, journalEntry{
			JournalDate:    j.JournalDate,
			Entry:          j.Entry,
			AITip:          j.AITip,
			SentimentScore: j.SentimentScore,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
