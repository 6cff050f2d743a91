package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/reference"
)

var (
	// ErrNotFound is returned when no profile exists for a user.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalid wraps field validation failures.
	ErrInvalid = errors.New("invalid profile")
)

// Genders accepted on the profile form. Empty means undisclosed.
var Genders = []string{"male", "female", "other"}

// Profile holds the per-user data read at session start.
type Profile struct {
	UserID            string   `json:"userId"`
	Age               *int     `json:"age"`
	Gender            string   `json:"gender"`
	PreferredLanguage string   `json:"preferredLanguage"`
	LocationState     string   `json:"locationState"`
	MedicalConditions []string `json:"medicalConditions"`
	EmergencyContact  string   `json:"emergencyContact"`
}

// Update is a partial profile change; nil fields are left untouched.
type Update struct {
	Age               *int      `json:"age,omitempty"`
	Gender            *string   `json:"gender,omitempty"`
	PreferredLanguage *string   `json:"preferredLanguage,omitempty"`
	LocationState     *string   `json:"locationState,omitempty"`
	MedicalConditions *[]string `json:"medicalConditions,omitempty"`
	EmergencyContact  *string   `json:"emergencyContact,omitempty"`
}

// LanguageUpdate is the update issued when the user switches language.
func LanguageUpdate(id string) Update {
	return Update{PreferredLanguage: &id}
}

// Validate checks the supplied fields and normalises them in place.
func (u *Update) Validate() error {
	if u.Age != nil && (*u.Age < 1 || *u.Age > 120) {
		return fmt.Errorf("%w: age must be between 1 and 120", ErrInvalid)
	}
	if u.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*u.Gender))
		if g != "" && !contains(Genders, g) {
			return fmt.Errorf("%w: unknown gender %q", ErrInvalid, *u.Gender)
		}
		u.Gender = &g
	}
	if u.PreferredLanguage != nil {
		id := strings.ToLower(strings.TrimSpace(*u.PreferredLanguage))
		if !language.Known(id) {
			return fmt.Errorf("%w: unknown language %q", ErrInvalid, *u.PreferredLanguage)
		}
		u.PreferredLanguage = &id
	}
	if u.LocationState != nil {
		state := strings.TrimSpace(*u.LocationState)
		if state != "" && !reference.KnownState(state) {
			return fmt.Errorf("%w: unknown state %q", ErrInvalid, *u.LocationState)
		}
		u.LocationState = &state
	}
	if u.MedicalConditions != nil {
		cleaned := Conditions(nil)
		for _, c := range *u.MedicalConditions {
			cleaned = AddCondition(cleaned, c)
		}
		u.MedicalConditions = &cleaned
	}
	if u.EmergencyContact != nil {
		contact := strings.TrimSpace(*u.EmergencyContact)
		u.EmergencyContact = &contact
	}
	return nil
}

// Apply returns p with every non-nil field of u applied.
func (p Profile) Apply(u Update) Profile {
	if u.Age != nil {
		age := *u.Age
		p.Age = &age
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.PreferredLanguage != nil {
		p.PreferredLanguage = *u.PreferredLanguage
	}
	if u.LocationState != nil {
		p.LocationState = *u.LocationState
	}
	if u.MedicalConditions != nil {
		p.MedicalConditions = append([]string(nil), (*u.MedicalConditions)...)
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = *u.EmergencyContact
	}
	return p
}

// Conditions returns a non-nil copy of items.
func Conditions(items []string) []string {
	return append([]string{}, items...)
}

// AddCondition appends a trimmed condition unless it is empty or already present.
func AddCondition(items []string, condition string) []string {
	c := strings.TrimSpace(condition)
	if c == "" {
		return items
	}
	for _, existing := range items {
		if strings.EqualFold(existing, c) {
			return items
		}
	}
	return append(items, c)
}

// RemoveCondition drops condition from items, ignoring case.
func RemoveCondition(items []string, condition string) []string {
	c := strings.TrimSpace(condition)
	out := make([]string, 0, len(items))
	for _, existing := range items {
		if strings.EqualFold(existing, c) {
			continue
		}
		out = append(out, existing)
	}
	return out
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
