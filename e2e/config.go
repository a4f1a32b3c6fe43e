package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"PULSE_SERVER_URL"`
	// E2E_JWT_SECRET must match the server JWT_SECRET to mint test tokens
	JWTSecret string `envconfig:"E2E_JWT_SECRET"`
	JWTIssuer string `envconfig:"E2E_JWT_ISSUER" default:"community-pulse"`
	// E2E_DEBUG_JSON dumps full HTTP request/response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
