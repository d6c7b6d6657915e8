package types

import (
	"encoding/json"
	"strings"
	"time"
)

// MealType is the meal an utterance is logged against.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists the meal types in classifier precedence order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// Glyph returns the emoji shown next to a meal type.
func (m MealType) Glyph() string {
	switch MealType(strings.ToLower(string(m))) {
	case MealBreakfast:
		return "🌅"
	case MealLunch:
		return "☀️"
	case MealDinner:
		return "🌙"
	case MealSnack:
		return "🍿"
	default:
		return "🍽️"
	}
}

// Valid reports whether m is one of the known meal types.
func (m MealType) Valid() bool {
	for _, known := range MealTypes {
		if m == known {
			return true
		}
	}
	return false
}

// FoodLogEntry is the outbound submission body for POST /api/food-logs.
type FoodLogEntry struct {
	UserID    string   `json:"userId"`
	MealType  MealType `json:"mealType"`
	FoodItems []string `json:"foodItems"`
	Notes     *string  `json:"notes"`
}

// FoodLog is a stored food-log record returned by the backend.
type FoodLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	MealType  MealType  `json:"mealType"`
	FoodItems FoodItems `json:"foodItems"`
	Notes     *string   `json:"notes"`
	LoggedAt  time.Time `json:"loggedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// FoodItems decodes the backend's foodItems field. The backend stores the
// list as a JSON-encoded string; anything that does not decode to a string
// array is kept as a single item.
type FoodItems []string

// UnmarshalJSON accepts a JSON array, a JSON-encoded array inside a string,
// or a plain string.
func (f *FoodItems) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		*f = list
		return nil
	}
	*f = FoodItems{raw}
	return nil
}

// User is the signed-in account.
type User struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	Email string  `json:"email"`
}

// DisplayName returns the name when set, otherwise the email.
func (u User) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return strings.TrimSpace(*u.Name)
	}
	return u.Email
}

// Credentials is a successful login.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
