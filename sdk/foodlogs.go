package foodtrack

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/types"
)

// FoodLogsService submits and lists food-log entries.
type FoodLogsService struct {
	client *Client
}

// Submit posts one food-log entry.
func (s *FoodLogsService) Submit(ctx context.Context, entry types.FoodLogEntry) error {
	if strings.TrimSpace(entry.UserID) == "" {
		return core.NewInvalidRequestError("userId is required")
	}
	if !entry.MealType.Valid() {
		return core.NewInvalidRequestError("unknown meal type " + string(entry.MealType))
	}
	if entry.FoodItems == nil {
		entry.FoodItems = []string{}
	}
	return s.client.doJSON(ctx, http.MethodPost, "/api/food-logs", entry, nil)
}

// SubmitFoodLog lets the service act as a classify.Submitter.
func (s *FoodLogsService) SubmitFoodLog(ctx context.Context, entry types.FoodLogEntry) error {
	return s.Submit(ctx, entry)
}

// List returns the stored logs for userID in backend order.
func (s *FoodLogsService) List(ctx context.Context, userID string) ([]types.FoodLog, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, core.NewInvalidRequestError("userId is required")
	}
	q := url.Values{}
	q.Set("userId", userID)

	var logs []types.FoodLog
	if err := s.client.doJSON(ctx, http.MethodGet, "/api/food-logs?"+q.Encode(), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
