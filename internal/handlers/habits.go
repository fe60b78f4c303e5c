package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"streakly/internal/analytics"
	"streakly/internal/models"
	"streakly/internal/store"
)

type HabitHandler struct {
	store  *store.Store
	clock  Clock
	logger *zap.Logger
}

func NewHabitHandler(st *store.Store, clock Clock, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{store: st, clock: clock, logger: logger}
}

type createHabitRequest struct {
	Name      string  `json:"name"`
	StartDate string  `json:"start_date"` // defaults to today
	EndDate   *string `json:"end_date"`
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	var req createHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	now, err := h.clock.at(r)
	if err != nil {
		http.Error(w, "invalid local_date format; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	habit := models.Habit{UserID: userID, Name: strings.TrimSpace(req.Name), StartDate: models.DateOf(now)}
	if req.StartDate != "" {
		if habit.StartDate, err = models.ParseDate(req.StartDate); err != nil {
			http.Error(w, "invalid start_date; expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := models.ParseDate(*req.EndDate)
		if err != nil || end < habit.StartDate {
			http.Error(w, "invalid end_date; expected YYYY-MM-DD on or after start_date", http.StatusBadRequest)
			return
		}
		habit.EndDate = &end
	}

	created, err := h.store.CreateHabit(r.Context(), habit)
	if err != nil {
		h.logger.Error("create habit", zap.Error(err))
		http.Error(w, "could not save habit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	habits, err := h.store.ListHabits(r.Context(), currentUser(r))
	if err != nil {
		h.logger.Error("list habits", zap.Error(err))
		http.Error(w, "could not fetch habits", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

// Today lists the habits still open for the user's current day.
func (h *HabitHandler) Today(w http.ResponseWriter, r *http.Request) {
	now, err := h.clock.at(r)
	if err != nil {
		http.Error(w, "invalid local_date format; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	habits, err := h.store.RemainingHabits(r.Context(), currentUser(r), models.DateOf(now))
	if err != nil {
		h.logger.Error("remaining habits", zap.Error(err))
		http.Error(w, "could not fetch habits", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteHabit(r.Context(), currentUser(r), chi.URLParam(r, "habitID"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case err != nil:
		h.logger.Error("delete habit", zap.Error(err))
		http.Error(w, "could not delete", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Complete marks the habit done on the {date} path param. Repeating the call
// for the same day has no further effect.
func (h *HabitHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	habitID := chi.URLParam(r, "habitID")
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		http.Error(w, "invalid date; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	now, err := h.clock.at(r)
	if err != nil {
		http.Error(w, "invalid local_date format; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if date > models.DateOf(now) {
		http.Error(w, "cannot complete a habit in the future", http.StatusBadRequest)
		return
	}
	if _, err := h.store.GetHabit(r.Context(), userID, habitID); err != nil {
		h.habitLookupFailed(w, err)
		return
	}

	c, err := h.store.MarkComplete(r.Context(), userID, habitID, date)
	if err != nil {
		h.logger.Error("mark complete", zap.Error(err))
		http.Error(w, "could not save completion", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HabitHandler) Revert(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		http.Error(w, "invalid date; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	err = h.store.RevertCompletion(r.Context(), currentUser(r), chi.URLParam(r, "habitID"), date)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case err != nil:
		h.logger.Error("revert completion", zap.Error(err))
		http.Error(w, "could not revert", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type statsResponse struct {
	HabitID       string `json:"habit_id"`
	ReferenceDate string `json:"reference_date"`
	analytics.StreakResult
	Completions int `json:"completions"`
}

// Stats returns current and best streaks computed from the habit's full history.
func (h *HabitHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	habitID := chi.URLParam(r, "habitID")
	now, err := h.clock.at(r)
	if err != nil {
		http.Error(w, "invalid local_date format; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if _, err := h.store.GetHabit(r.Context(), userID, habitID); err != nil {
		h.habitLookupFailed(w, err)
		return
	}

	completions, err := h.store.QueryCompletions(r.Context(), userID, habitID)
	if err != nil {
		h.logger.Error("query completions", zap.Error(err))
		http.Error(w, "could not fetch completions", http.StatusInternalServerError)
		return
	}
	dates := make([]string, len(completions))
	for i, c := range completions {
		dates[i] = string(c.Date)
	}
	streaks, err := analytics.CalculateStreaks(dates, now)
	if err != nil {
		h.logger.Error("stored completion has malformed date", zap.String("habit_id", habitID), zap.Error(err))
		http.Error(w, "could not compute streaks", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		HabitID:       habitID,
		ReferenceDate: models.DateOf(now).String(),
		StreakResult:  streaks,
		Completions:   len(completions),
	})
}

func (h *HabitHandler) habitLookupFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "habit not found", http.StatusNotFound)
		return
	}
	h.logger.Error("get habit", zap.Error(err))
	http.Error(w, "server error", http.StatusInternalServerError)
}
