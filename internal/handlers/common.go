package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"streakly/internal/events"
	mw "streakly/internal/middleware"
	"streakly/internal/models"
)

// Clock supplies "now" in the users' time zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func SystemClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// at returns the current instant in the clock's zone. When the request has a
// local_date=YYYY-MM-DD query param, that date is used as the user's
// "today" with the current wall-clock time of day.
func (c Clock) at(r *http.Request) (time.Time, error) {
	now := c.Now()
	if c.Location != nil {
		now = now.In(c.Location)
	}
	raw := r.URL.Query().Get("local_date")
	if raw == "" {
		return now, nil
	}
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location()), nil
}

func currentUser(r *http.Request) int {
	id, _ := mw.UserID(r.Context())
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// JournalNotifier tells every history session that a user's journal changed.
// The bus invalidates this instance's session before PublishJournalWritten
// returns, so a failure here only affects other instances.
type JournalNotifier struct {
	bus    events.Bus
	logger *zap.Logger
}

func NewJournalNotifier(bus events.Bus, logger *zap.Logger) *JournalNotifier {
	return &JournalNotifier{bus: bus, logger: logger}
}

func (n *JournalNotifier) JournalWritten(ctx context.Context, userID int) {
	if err := n.bus.PublishJournalWritten(ctx, userID); err != nil {
		n.logger.Warn("could not publish journal write to other instances",
			zap.Int("user_id", userID), zap.Error(err))
	}
}
