package client

import (
	"community-pulse/domain"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ScheduleClient performs the initial schedule fetch against the server API.
type ScheduleClient struct {
	baseURL string
	http    *http.Client
}

func NewScheduleClient(baseURL string) *ScheduleClient {
	return &ScheduleClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *ScheduleClient) FetchSchedule(ctx context.Context) (domain.DailySchedule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/schedule", nil)
	if err != nil {
		return domain.DailySchedule{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.DailySchedule{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.DailySchedule{}, fmt.Errorf("fetch schedule: unexpected status %s", resp.Status)
	}
	var envelope struct {
		Data domain.DailySchedule `json:"data"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.DailySchedule{}, fmt.Errorf("fetch schedule: %w", err)
	}
	if err = envelope.Data.Validate(); err != nil {
		return domain.DailySchedule{}, err
	}
	return envelope.Data, nil
}
