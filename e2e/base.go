package e2e

import (
	"bytes"
	"community-pulse/auth"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

// BaseSuite talks to a running server. Scenarios are skipped when
// PULSE_SERVER_URL is not set.
type BaseSuite struct {
	suite.Suite
	Config Config
	tokens *auth.Tokens
	http   *http.Client
}

func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" || s.Config.JWTSecret == "" {
		s.T().Skip("PULSE_SERVER_URL and E2E_JWT_SECRET are required for e2e scenarios")
	}
	s.tokens = auth.NewTokens(s.Config.JWTSecret, s.Config.JWTIssuer)
	s.http = &http.Client{Timeout: 10 * time.Second}
}

func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

func (s *BaseSuite) Token(userID string, roles ...string) string {
	token, err := s.tokens.GenerateToken(userID, roles, time.Hour)
	s.Require().NoError(err)
	return token
}

// Call sends a JSON request and returns the status code, logging bodies when E2E_DEBUG_JSON is set.
func (s *BaseSuite) Call(method, path, token string, body any) int {
	var reader io.Reader
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.Config.ServerURL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.http.Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	respBody, _ := io.ReadAll(resp.Body)

	s.T().Logf("HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("request: %s\nresponse: %s", raw, respBody)
	}
	return resp.StatusCode
}
