package client_test

import (
	"community-pulse/client"
	"community-pulse/domain"
	"community-pulse/errors"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func scheduleServer(t *testing.T, status int, body string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/schedule", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScheduleClient_FetchSchedule(t *testing.T) {
	req := require.New(t)
	server := scheduleServer(t, http.StatusOK,
		`{"data":{"location":"Lyon","fajr":"05:10","dhuhr":"13:30","asr":"16:45","maghrib":"19:55","isha":"21:30"}}`)

	schedule, err := client.NewScheduleClient(server.URL).FetchSchedule(context.Background())

	req.NoError(err)
	req.Equal("Lyon", schedule.Location)
	req.Equal(domain.Clock(5*60+10), schedule.Fajr)
	req.Equal(domain.Clock(21*60+30), schedule.Isha)
}

func TestScheduleClient_FetchSchedule_Failures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := scheduleServer(t, http.StatusInternalServerError, `{"error":{"code":"internal","message":"boom"}}`)
		_, err := client.NewScheduleClient(server.URL).FetchSchedule(context.Background())
		require.Error(t, err)
	})

	t.Run("malformed clock", func(t *testing.T) {
		server := scheduleServer(t, http.StatusOK, `{"data":{"fajr":"5h10"}}`)
		_, err := client.NewScheduleClient(server.URL).FetchSchedule(context.Background())
		require.ErrorIs(t, err, errors.ErrInvalidClock)
	})

	t.Run("empty schedule", func(t *testing.T) {
		server := scheduleServer(t, http.StatusOK, `{"data":{}}`)
		_, err := client.NewScheduleClient(server.URL).FetchSchedule(context.Background())
		require.ErrorIs(t, err, errors.ErrInvalidSchedule)
	})
}
