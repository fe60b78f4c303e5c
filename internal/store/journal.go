package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"streakly/internal/models"
)

const journalColumns = `id, user_id, journal_date, entry, ai_tip, sentiment_score, created_at, updated_at`

// UpsertJournal creates or overwrites the entry for (user, journal date).
// Entry and AITip are stored as given; callers encrypt them first.
func (s *Store) UpsertJournal(ctx context.Context, j models.Journal) error {
	return upsertJournal(ctx, s.db, s.q, j)
}

func upsertJournal(ctx context.Context, ex sqlx.ExecerContext, q func(string) string, j models.Journal) error {
	_, err := ex.ExecContext(ctx, q(`INSERT INTO journal_entries (user_id, journal_date, entry, ai_tip, sentiment_score, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, journal_date)
		DO UPDATE SET
			entry = EXCLUDED.entry,
			ai_tip = EXCLUDED.ai_tip,
			sentiment_score = EXCLUDED.sentiment_score,
			updated_at = CURRENT_TIMESTAMP`),
		j.UserID, j.JournalDate, j.Entry, j.AITip, j.SentimentScore)
	if err != nil {
		return fmt.Errorf("could not save journal entry: %w", err)
	}
	return nil
}

func (s *Store) DeleteJournal(ctx context.Context, userID int, date models.Date) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM journal_entries WHERE user_id = ? AND journal_date = ?`), userID, date)
	if err != nil {
		return fmt.Errorf("could not delete journal entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJournal returns up to limit entries, newest first, optionally bounded
// by start and end (inclusive).
func (s *Store) ListJournal(ctx context.Context, userID int, start, end *models.Date, limit int) ([]models.Journal, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if start != nil {
		where = append(where, "journal_date >= ?")
		args = append(args, *start)
	}
	if end != nil {
		where = append(where, "journal_date <= ?")
		args = append(args, *end)
	}
	args = append(args, limit)

	out := []models.Journal{}
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE ` + strings.Join(where, " AND ") + ` ORDER BY journal_date DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &out, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("could not fetch journal: %w", err)
	}
	return out, nil
}

// QueryMoodRecordsInRange returns the sentiment scores of [start, end] in ascending date order.
func (s *Store) QueryMoodRecordsInRange(ctx context.Context, userID int, start, end models.Date) ([]models.MoodRecord, error) {
	out := []models.MoodRecord{}
	err := s.db.SelectContext(ctx, &out, s.q(`SELECT journal_date, sentiment_score FROM journal_entries
		WHERE user_id = ? AND journal_date >= ? AND journal_date <= ? ORDER BY journal_date`), userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("could not fetch mood records: %w", err)
	}
	return out, nil
}

// Import writes journal entries and completions in one transaction.
// Completions must reference habits owned by userID.
func (s *Store) Import(ctx context.Context, userID int, journals []models.Journal, completions []models.Completion) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range journals {
		j.UserID = userID
		if err := upsertJournal(ctx, tx, s.q, j); err != nil {
			return err
		}
	}
	for _, c := range completions {
		var owned int
		if err := tx.GetContext(ctx, &owned, s.q(`SELECT COUNT(*) FROM habits WHERE id = ? AND user_id = ?`), c.HabitID, userID); err != nil {
			return err
		}
		if owned == 0 {
			return fmt.Errorf("habit %s: %w", c.HabitID, ErrNotFound)
		}
		if _, err := markComplete(ctx, tx, s.q, userID, c.HabitID, c.Date); err != nil {
			return err
		}
	}
	return tx.Commit()
}
