package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"streakly/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the adapter between the analytics core and the SQL database.
// Queries are written with ? placeholders and rebound for the open driver.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) q(query string) string { return s.db.Rebind(query) }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Users

func (s *Store) CreateUser(ctx context.Context, email, blindIndex, passwordHash string) (models.User, error) {
	u := models.User{Email: email, EmailBlindIndex: blindIndex, PasswordHash: passwordHash}
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO users (email, email_blind_index, password_hash) VALUES (?, ?, ?) RETURNING id`),
		email, blindIndex, passwordHash).Scan(&u.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("could not create user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByBlindIndex(ctx context.Context, blindIndex string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT id, email, email_blind_index, password_hash, created_at FROM users WHERE email_blind_index = ?`), blindIndex)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

// Habits

const habitColumns = `id, user_id, name, start_date, end_date, created_at`

func (s *Store) CreateHabit(ctx context.Context, h models.Habit) (models.Habit, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO habits (id, user_id, name, start_date, end_date) VALUES (?, ?, ?, ?, ?)`),
		h.ID, h.UserID, h.Name, h.StartDate, h.EndDate)
	if err != nil {
		return models.Habit{}, fmt.Errorf("could not create habit: %w", err)
	}
	return s.GetHabit(ctx, h.UserID, h.ID)
}

func (s *Store) GetHabit(ctx context.Context, userID int, habitID string) (models.Habit, error) {
	var h models.Habit
	err := s.db.GetContext(ctx, &h, s.q(`SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`), habitID, userID)
	if err != nil {
		return models.Habit{}, notFound(err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID int) ([]models.Habit, error) {
	habits := []models.Habit{}
	err := s.db.SelectContext(ctx, &habits, s.q(`SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY created_at, name`), userID)
	if err != nil {
		return nil, fmt.Errorf("could not list habits: %w", err)
	}
	return habits, nil
}

// DeleteHabit removes a habit together with all of its completions.
func (s *Store) DeleteHabit(ctx context.Context, userID int, habitID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM habit_completions WHERE habit_id = ? AND user_id = ?`), habitID, userID); err != nil {
		return fmt.Errorf("could not delete completions: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM habits WHERE id = ? AND user_id = ?`), habitID, userID)
	if err != nil {
		return fmt.Errorf("could not delete habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// RemainingHabits lists the habits active on date that have no completion yet.
func (s *Store) RemainingHabits(ctx context.Context, userID int, date models.Date) ([]models.Habit, error) {
	habits := []models.Habit{}
	err := s.db.SelectContext(ctx, &habits, s.q(`SELECT `+habitColumns+` FROM habits h
		WHERE h.user_id = ? AND h.start_date <= ? AND (h.end_date IS NULL OR h.end_date >= ?)
		  AND NOT EXISTS (SELECT 1 FROM habit_completions c WHERE c.habit_id = h.id AND c.completed_on = ?)
		ORDER BY h.created_at, h.name`), userID, date, date, date)
	if err != nil {
		return nil, fmt.Errorf("could not list remaining habits: %w", err)
	}
	return habits, nil
}

// Completions

// MarkComplete records habitID as done on date. The row key is
// CompletionKey(habitID, date), so repeating the call is a no-op.
func (s *Store) MarkComplete(ctx context.Context, userID int, habitID string, date models.Date) (models.Completion, error) {
	return markComplete(ctx, s.db, s.q, userID, habitID, date)
}

func markComplete(ctx context.Context, ex sqlx.ExecerContext, q func(string) string, userID int, habitID string, date models.Date) (models.Completion, error) {
	c := models.Completion{ID: models.CompletionKey(habitID, date), UserID: userID, HabitID: habitID, Date: date}
	_, err := ex.ExecContext(ctx, q(`INSERT INTO habit_completions (id, user_id, habit_id, completed_on) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`), c.ID, c.UserID, c.HabitID, c.Date)
	if err != nil {
		return models.Completion{}, fmt.Errorf("could not save completion: %w", err)
	}
	return c, nil
}

func (s *Store) RevertCompletion(ctx context.Context, userID int, habitID string, date models.Date) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM habit_completions WHERE id = ? AND user_id = ?`), models.CompletionKey(habitID, date), userID)
	if err != nil {
		return fmt.Errorf("could not revert completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// QueryCompletions returns every completion of one habit in ascending date order.
func (s *Store) QueryCompletions(ctx context.Context, userID int, habitID string) ([]models.Completion, error) {
	out := []models.Completion{}
	err := s.db.SelectContext(ctx, &out, s.q(`SELECT id, user_id, habit_id, completed_on FROM habit_completions
		WHERE user_id = ? AND habit_id = ? ORDER BY completed_on`), userID, habitID)
	if err != nil {
		return nil, fmt.Errorf("could not fetch completions: %w", err)
	}
	return out, nil
}
