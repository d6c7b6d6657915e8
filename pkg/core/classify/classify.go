// Package classify turns a free-form utterance into a food-log entry.
//
// Classification is a fixed, case-insensitive keyword scan. When no meal
// keyword is present the caller asks the user which meal it was instead of
// guessing.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/types"
)

type rule struct {
	meal     types.MealType
	keywords []string
}

// Order is precedence: the first rule with a matching keyword wins.
var rules = []rule{
	{types.MealBreakfast, []string{"breakfast", "morning"}},
	{types.MealLunch, []string{"lunch", "noon", "midday"}},
	{types.MealDinner, []string{"dinner", "evening", "night"}},
	{types.MealSnack, []string{"snack"}},
}

// Classify returns the meal type named by text, if any.
func Classify(text string) (types.MealType, bool) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.meal, true
			}
		}
	}
	return "", false
}

// Keywords returns the keywords that select meal.
func Keywords(meal types.MealType) []string {
	for _, r := range rules {
		if r.meal == meal {
			return append([]string(nil), r.keywords...)
		}
	}
	return nil
}

// Entry wraps the whole utterance as a single food item.
func Entry(userID, text string, meal types.MealType) types.FoodLogEntry {
	return types.FoodLogEntry{
		UserID:    userID,
		MealType:  meal,
		FoodItems: []string{text},
	}
}

// ClarifyReply asks the user which meal an utterance belongs to.
const ClarifyReply = "I'd love to log that for you! Was this for breakfast, lunch, dinner, or a snack? 🍽️"

// SoftAckReply acknowledges an utterance whose submission failed.
const SoftAckReply = "I've noted that down for you! 💪"

// LoggedReply confirms a logged meal.
func LoggedReply(meal types.MealType) string {
	return fmt.Sprintf("Got it! I've logged your %s %s. Keep tracking to understand how food affects how you feel!", meal, meal.Glyph())
}

// Submitter hands a food-log entry to the backend.
type Submitter interface {
	SubmitFoodLog(ctx context.Context, entry types.FoodLogEntry) error
}

// Outcome is the result of responding to one utterance.
type Outcome struct {
	Reply    string
	MealType types.MealType
	Logged   bool

	// Err is the submission failure, if any. It never changes Reply beyond
	// the soft acknowledgement.
	Err error
}

// Responder classifies utterances, submits entries and composes replies.
type Responder struct {
	submitter Submitter
	logger    zerolog.Logger
}

// NewResponder creates a Responder.
func NewResponder(submitter Submitter, logger zerolog.Logger) *Responder {
	return &Responder{submitter: submitter, logger: logger}
}

// Respond processes text for userID.
func (r *Responder) Respond(ctx context.Context, userID, text string) Outcome {
	meal, ok := Classify(text)
	if !ok {
		return Outcome{Reply: ClarifyReply}
	}

	out := Outcome{MealType: meal}
	if r.submitter == nil {
		out.Err = core.NewSubmissionError("no food-log submitter configured", nil)
	} else if err := r.submitter.SubmitFoodLog(ctx, Entry(userID, text, meal)); err != nil {
		out.Err = core.NewSubmissionError("submit food log", err)
	}
	if out.Err != nil {
		r.logger.Warn().Err(out.Err).Str("user_id", userID).Str("meal_type", string(meal)).Msg("food log not saved")
		out.Reply = SoftAckReply
		return out
	}

	out.Logged = true
	out.Reply = LoggedReply(meal)
	return out
}
