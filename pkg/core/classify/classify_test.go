package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/types"
)

func TestClassify_Keywords(t *testing.T) {
	tests := []struct {
		text string
		want types.MealType
	}{
		{"I had oatmeal for breakfast", types.MealBreakfast},
		{"coffee this MORNING", types.MealBreakfast},
		{"Lunch was a chicken salad", types.MealLunch},
		{"ate a sandwich at noon", types.MealLunch},
		{"midday smoothie", types.MealLunch},
		{"pasta for dinner", types.MealDinner},
		{"a light evening meal", types.MealDinner},
		{"pizza last night", types.MealDinner},
		{"a quick SNACK of almonds", types.MealSnack},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := Classify(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Precedence(t *testing.T) {
	tests := []struct {
		text string
		want types.MealType
	}{
		{"breakfast leftovers for dinner", types.MealBreakfast},
		{"a snack before lunch", types.MealLunch},
		{"late night snack", types.MealDinner},
		{"morning snack", types.MealBreakfast},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.text)
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestClassify_NoKeyword(t *testing.T) {
	for _, text := range []string{"just ate something", "", "a bowl of rice", "brunch"} {
		_, ok := Classify(text)
		assert.False(t, ok, "text %q", text)
	}
}

func TestClassify_EveryKeywordSelectsItsMeal(t *testing.T) {
	for _, meal := range types.MealTypes {
		for _, kw := range Keywords(meal) {
			got, ok := Classify("had food " + strings.ToUpper(kw))
			require.True(t, ok)
			assert.Equal(t, meal, got, "keyword %q", kw)
		}
	}
	assert.Nil(t, Keywords("brunch"))
}

func TestEntry_WrapsWholeUtterance(t *testing.T) {
	entry := Entry("u_1", "I had oatmeal for breakfast", types.MealBreakfast)
	assert.Equal(t, "u_1", entry.UserID)
	assert.Equal(t, types.MealBreakfast, entry.MealType)
	assert.Equal(t, []string{"I had oatmeal for breakfast"}, entry.FoodItems)
	assert.Nil(t, entry.Notes)
}

type recordingSubmitter struct {
	entries []types.FoodLogEntry
	err     error
}

func (s *recordingSubmitter) SubmitFoodLog(_ context.Context, entry types.FoodLogEntry) error {
	s.entries = append(s.entries, entry)
	return s.err
}

func TestRespond_Breakfast(t *testing.T) {
	sub := &recordingSubmitter{}
	r := NewResponder(sub, zerolog.Nop())

	out := r.Respond(context.Background(), "u_1", "I had oatmeal for breakfast")

	require.NoError(t, out.Err)
	assert.True(t, out.Logged)
	assert.Equal(t, types.MealBreakfast, out.MealType)
	assert.Contains(t, out.Reply, "breakfast")
	assert.Contains(t, out.Reply, "🌅")
	require.Len(t, sub.entries, 1)
	assert.Equal(t, []string{"I had oatmeal for breakfast"}, sub.entries[0].FoodItems)
}

func TestRespond_NoMealAsksForClarification(t *testing.T) {
	sub := &recordingSubmitter{}
	r := NewResponder(sub, zerolog.Nop())

	out := r.Respond(context.Background(), "u_1", "just ate something")

	assert.Equal(t, ClarifyReply, out.Reply)
	for _, meal := range []string{"breakfast", "lunch", "dinner", "snack"} {
		assert.Contains(t, out.Reply, meal)
	}
	assert.False(t, out.Logged)
	assert.Empty(t, sub.entries)
}

func TestRespond_SubmissionFailureIsSoft(t *testing.T) {
	sub := &recordingSubmitter{err: errors.New("503")}
	r := NewResponder(sub, zerolog.Nop())

	out := r.Respond(context.Background(), "u_1", "soup for lunch")

	assert.Equal(t, SoftAckReply, out.Reply)
	assert.False(t, out.Logged)
	assert.True(t, core.IsType(out.Err, core.ErrSubmission))
	assert.Len(t, sub.entries, 1)
}

func TestRespond_NilSubmitter(t *testing.T) {
	out := NewResponder(nil, zerolog.Nop()).Respond(context.Background(), "u_1", "dinner")
	assert.Equal(t, SoftAckReply, out.Reply)
	assert.True(t, core.IsType(out.Err, core.ErrSubmission))
}
