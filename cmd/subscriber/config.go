package main

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Config defines the subscriber-side environment variables.
type Config struct {
	ServerURL        string        `env:"PULSE_SERVER_URL,default=http://localhost:8080"`
	Token            string        `env:"PULSE_TOKEN,required=true"`
	Topics           string        `env:"PULSE_TOPICS"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT,default=5s"`
	ToastTTL         time.Duration `env:"TOAST_TTL,default=5s"`
	LogLevel         string        `env:"LOG_LEVEL,default=WARN"`
	Colours          bool          `env:"PULSE_COLOURS,default=true"`
}

// TopicList splits the comma separated PULSE_TOPICS, ignoring blanks and duplicates.
func (c Config) TopicList() []string {
	topics := lo.Map(strings.Split(c.Topics, ","), func(topic string, _ int) string {
		return strings.TrimSpace(topic)
	})
	return lo.Uniq(lo.Compact(topics))
}

// WebsocketURL maps the http(s) base url to the ws(s) endpoint.
func (c Config) WebsocketURL() string {
	base := strings.TrimSuffix(c.ServerURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}
