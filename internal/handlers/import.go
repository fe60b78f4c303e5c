package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"streakly/internal/models"
	"streakly/internal/services"
	"streakly/internal/store"
)

type ImportHandler struct {
	store    *store.Store
	encSvc   *services.EncryptionService
	notifier *JournalNotifier
	logger   *zap.Logger
}

func NewImportHandler(st *store.Store, encSvc *services.EncryptionService, notifier *JournalNotifier, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{store: st, encSvc: encSvc, notifier: notifier, logger: logger}
}

type importedCompletion struct {
	HabitID string `json:"habit_id"`
	Date    string `json:"date"` // YYYY-MM-DD
}

type ImportRequest struct {
	Entries     []journalRequest     `json:"entries"`
	Completions []importedCompletion `json:"completions"`
}

// Import receives journal entries and habit completions exported from a
// previous install and upserts them for the authenticated user in one
// transaction.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if len(req.Entries) == 0 && len(req.Completions) == 0 {
		http.Error(w, "nothing to import", http.StatusBadRequest)
		return
	}

	journals := make([]models.Journal, 0, len(req.Entries))
	for i, e := range req.Entries {
		j, err := e.toJournal()
		if err != nil {
			http.Error(w, fmt.Sprintf("entries[%d]: %v", i, err), http.StatusBadRequest)
			return
		}
		if err := h.encSvc.EncryptJournal(&j); err != nil {
			http.Error(w, "could not encrypt entry", http.StatusInternalServerError)
			return
		}
		journals = append(journals, j)
	}

	completions := make([]models.Completion, 0, len(req.Completions))
	for i, c := range req.Completions {
		date, err := models.ParseDate(c.Date)
		if err != nil || c.HabitID == "" {
			http.Error(w, fmt.Sprintf("completions[%d]: habit_id and a YYYY-MM-DD date are required", i), http.StatusBadRequest)
			return
		}
		completions = append(completions, models.Completion{HabitID: c.HabitID, Date: date})
	}

	if err := h.store.Import(r.Context(), userID, journals, completions); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("import", zap.Int("user_id", userID), zap.Error(err))
		http.Error(w, "could not import", http.StatusInternalServerError)
		return
	}
	if len(journals) > 0 {
		h.notifier.JournalWritten(r.Context(), userID)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":         "Data imported successfully",
		"journal_entries": len(journals),
		"completions":     len(completions),
	})
}
