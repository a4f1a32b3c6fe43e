package e2e

import (
	"community-pulse/auth"
	"community-pulse/client"
	"community-pulse/domain"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type NotificationsSuite struct {
	BaseSuite
}

func TestNotificationsSuite(t *testing.T) {
	suite.Run(t, new(NotificationsSuite))
}

func (s *NotificationsSuite) session(userID string, topics ...string) *client.Session {
	token := s.Token(userID, auth.RoleSubscriber)
	wsURL := "ws" + strings.TrimPrefix(strings.TrimSuffix(s.Config.ServerURL, "/"), "http") + "/ws"
	cfg := client.DefaultSessionConfig(userID)
	cfg.Topics = topics
	session, err := client.NewSession(logs.GetLoggerFromLevel(slog.LevelInfo),
		client.NewWSDialer(wsURL, token), client.NewScheduleClient(s.Config.ServerURL), cfg)
	s.Require().NoError(err)
	s.Require().NoError(session.Start(context.Background()))
	s.T().Cleanup(session.Close)
	s.Require().Eventually(func() bool { return session.ConnectionState() == client.Joined }, 5*time.Second, 20*time.Millisecond)
	return session
}

func (s *NotificationsSuite) TestTargetedAndTopicEvents() {
	alice, bob := uuid.NewString(), uuid.NewString()
	publisher := s.Token("publisher-"+alice, auth.RolePublisher)

	s.Step("Connect two subscribers")
	aliceSession := s.session(alice, "tajweed")
	bobSession := s.session(bob)
	// Topic joins are acknowledged after the user room
	time.Sleep(200 * time.Millisecond)

	s.Step("Publish a user event and a topic announcement")
	s.Equal(http.StatusAccepted, s.Call(http.MethodPost, "/api/v1/events", publisher, map[string]any{
		"type":    "progress-updated",
		"payload": map[string]any{"userId": alice, "sector": "Quran", "percent": 62},
		"scope":   map[string]any{"kind": "user", "value": alice},
	}))
	s.Equal(http.StatusAccepted, s.Call(http.MethodPost, "/api/v1/events", publisher, map[string]any{
		"type":    "announcement-received",
		"payload": map[string]any{"title": "Tajweed class moved", "audience": "tajweed"},
		"scope":   map[string]any{"kind": "topic", "value": "tajweed"},
	}))

	s.Step("Only alice is notified")
	s.Eventually(func() bool { return aliceSession.GetUnreadCount() == 2 }, 5*time.Second, 20*time.Millisecond)
	s.Equal("Tajweed class moved", aliceSession.GetNotifications()[0].Message)
	s.Never(func() bool { return bobSession.GetUnreadCount() > 0 }, 500*time.Millisecond, 50*time.Millisecond)
}

func (s *NotificationsSuite) TestScheduleUpdateReachesEverybody() {
	publisher := s.Token("publisher", auth.RolePublisher)
	session := s.session(uuid.NewString())

	s.Step("Publish a new daily schedule")
	schedule := domain.DailySchedule{Location: "e2e-" + uuid.NewString()[:8], Fajr: 301, Dhuhr: 781, Asr: 1001, Maghrib: 1191, Isha: 1291}
	s.Equal(http.StatusOK, s.Call(http.MethodPut, "/api/v1/schedule", publisher, schedule))

	s.Step("Subscriber switches to it")
	s.Eventually(func() bool { return session.GetSchedule() == schedule }, 5*time.Second, 20*time.Millisecond)
	s.Equal(http.StatusUnauthorized, s.Call(http.MethodPut, "/api/v1/schedule", "", schedule))
}
