package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/healbuddy/backend/internal/model/profile"
)

// ProfileStore reads and updates rows of user_profiles.
type ProfileStore struct {
	DB *sql.DB
}

// NewProfileStore constructs a ProfileStore over an open database.
func NewProfileStore(db *sql.DB) *ProfileStore { return &ProfileStore{DB: db} }

var _ profile.Store = (*ProfileStore)(nil)

// Read loads a profile, returning profile.ErrNotFound when absent.
func (s *ProfileStore) Read(ctx context.Context, userID string) (profile.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return profile.Profile{}, profile.ErrNotFound
	}

	var (
		p   = profile.Profile{UserID: userID}
		age sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT age, gender, preferred_language, location_state, medical_conditions, emergency_contact
         FROM user_profiles
         WHERE user_id = $1`,
		userID,
	).Scan(&age, &p.Gender, &p.PreferredLanguage, &p.LocationState, pq.Array(&p.MedicalConditions), &p.EmergencyContact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, err
	}
	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	p.MedicalConditions = profile.Conditions(p.MedicalConditions)
	return p, nil
}

// Update applies a partial change inside a transaction, creating the row on
// first write.
func (s *ProfileStore) Update(ctx context.Context, userID string, u profile.Update) error {
	if strings.TrimSpace(userID) == "" {
		return profile.ErrNotFound
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return err
	}

	var (
		current = profile.Profile{UserID: userID}
		age     sql.NullInt64
	)
	if err := tx.QueryRowContext(ctx,
		`SELECT age, gender, preferred_language, location_state, medical_conditions, emergency_contact
         FROM user_profiles
         WHERE user_id = $1
         FOR UPDATE`,
		userID,
	).Scan(&age, &current.Gender, &current.PreferredLanguage, &current.LocationState,
		pq.Array(&current.MedicalConditions), &current.EmergencyContact); err != nil {
		return err
	}
	if age.Valid {
		v := int(age.Int64)
		current.Age = &v
	}

	next := current.Apply(u)
	var nextAge sql.NullInt64
	if next.Age != nil {
		nextAge = sql.NullInt64{Int64: int64(*next.Age), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_profiles
         SET age = $2, gender = $3, preferred_language = $4, location_state = $5,
             medical_conditions = $6, emergency_contact = $7, updated_at = NOW()
         WHERE user_id = $1`,
		userID, nextAge, next.Gender, next.PreferredLanguage, next.LocationState,
		pq.Array(profile.Conditions(next.MedicalConditions)), next.EmergencyContact,
	); err != nil {
		return err
	}
	return tx.Commit()
}
