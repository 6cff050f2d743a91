package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/model/turn"
)

// TurnStore persists conversation turns in the health_sessions table.
type TurnStore struct {
	DB *sql.DB
}

// NewTurnStore constructs a TurnStore over an open database.
func NewTurnStore(db *sql.DB) *TurnStore { return &TurnStore{DB: db} }

var _ turn.Store = (*TurnStore)(nil)

// Create inserts one turn and returns its generated reference.
func (s *TurnStore) Create(ctx context.Context, userID string, t turn.Turn) (turn.Ref, error) {
	followUps := t.FollowUpQuestions
	if followUps == nil {
		followUps = []turn.FollowUp{}
	}
	payload, err := json.Marshal(followUps)
	if err != nil {
		return turn.Ref{}, fmt.Errorf("encode follow-ups: %w", err)
	}

	ref := turn.Ref{ID: uuid.NewString()}
	err = s.DB.QueryRowContext(ctx,
		`INSERT INTO health_sessions
             (id, user_id, user_message, bot_response, language, severity_assessment, session_type, follow_up_questions)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING created_at`,
		ref.ID, userID, t.UserMessage, t.BotResponse, t.Language,
		nullString(string(t.SeverityAssessment)), nullString(string(t.SessionType)), payload,
	).Scan(&ref.CreatedAt)
	if err != nil {
		return turn.Ref{}, fmt.Errorf("insert turn: %w", err)
	}
	return ref, nil
}

// List returns a user's turns newest first. limit <= 0 means no limit.
func (s *TurnStore) List(ctx context.Context, userID string, limit int) ([]turn.Record, error) {
	query := `SELECT id, created_at, user_message, bot_response, language,
                     COALESCE(severity_assessment, ''), COALESCE(session_type, ''), follow_up_questions
              FROM health_sessions
              WHERE user_id = $1
              ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]turn.Record, 0)
	for rows.Next() {
		var (
			rec      turn.Record
			severity string
			kind     string
			payload  []byte
		)
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.UserMessage, &rec.BotResponse,
			&rec.Language, &severity, &kind, &payload); err != nil {
			return nil, err
		}
		rec.UserID = userID
		rec.SeverityAssessment = chat.Severity(severity)
		rec.SessionType = turn.SessionType(kind)
		if err := json.Unmarshal(payload, &rec.FollowUpQuestions); err != nil {
			return nil, fmt.Errorf("decode follow-ups for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
