package models

import "time"

type User struct {
	ID              int       `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`         // Encrypted in DB
	EmailBlindIndex string    `db:"email_blind_index" json:"-"` // HMAC hash for searching
	PasswordHash    string    `db:"password_hash" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Habit is a recurring activity tracked between StartDate and an optional EndDate.
type Habit struct {
	ID        string    `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	StartDate Date      `db:"start_date" json:"start_date"`
	EndDate   *Date     `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Completion records that a habit was done on one calendar day.
// ID is always CompletionKey(HabitID, Date).
type Completion struct {
	ID      string `db:"id" json:"id"`
	UserID  int    `db:"user_id" json:"user_id"`
	HabitID string `db:"habit_id" json:"habit_id"`
	Date    Date   `db:"completed_on" json:"date"`
}

// CompletionKey derives the store key of a completion so that marking the
// same habit twice on one day overwrites instead of duplicating.
func CompletionKey(habitID string, date Date) string {
	return habitID + "_" + string(date)
}

type Journal struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	JournalDate    Date      `db:"journal_date" json:"journal_date"`
	Entry          string    `db:"entry" json:"entry"`   // Encrypted in DB
	AITip          string    `db:"ai_tip" json:"ai_tip"` // Encrypted in DB
	SentimentScore int       `db:"sentiment_score" json:"sentiment_score"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// MoodRecord is the analytics projection of a journal entry.
type MoodRecord struct {
	Date  Date `db:"journal_date"`
	Score int  `db:"sentiment_score"`
}

const (
	MinSentimentScore = 1 // very positive
	MaxSentimentScore = 5 // very negative
)
