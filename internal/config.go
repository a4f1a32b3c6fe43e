package internal

import (
	"community-pulse/errors"
	"community-pulse/transport/ws"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=8080" validate:"gt=0,lt=65536"`
	DebugPort int    `env:"DEBUG_PORT,default=8081" validate:"gt=0,lt=65536"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true" validate:"required"`
	JWTSecret      string `env:"JWT_SECRET,required=true" validate:"min=16"`
	JWTIssuer      string `env:"JWT_ISSUER,default=community-pulse"`

	DispatchBufferSize   int           `env:"DISPATCH_BUFFER_SIZE,default=1024" validate:"gt=0"`
	SendBufferSize       int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096" validate:"gt=0"`
	WriteWait            time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	LowCapacityThreshold float64       `env:"LOW_CAPACITY_THRESHOLD,default=0.1" validate:"gte=0,lte=1"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`

	// CENSORED_WORDS is a comma separated dictionary applied to message previews and announcement titles
	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	_, err := CharacterRune(c.CharReplacement)
	return err
}

// CensoredWordList splits CENSORED_WORDS, dropping blanks.
func (c Config) CensoredWordList() []string {
	words := lo.Map(strings.Split(c.CensoredWords, ","), func(word string, _ int) string {
		return strings.TrimSpace(word)
	})
	return lo.Compact(words)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("%w: CHARACTER_REPLACEMENT must be a single character, got %q",
			errors.ErrInvalidConfig, str)
	}
	return r[0], nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Websocket derives the connection options. Pings go out at 90% of the pong wait
// so a healthy peer always answers before the read deadline.
func (c Config) Websocket() ws.Options {
	return ws.Options{
		SendBuffer:     c.SendBufferSize,
		MaxMessageSize: c.MaxMessageSize,
		WriteWait:      c.WriteWait,
		PongWait:       c.PongWait,
		PingPeriod:     c.PongWait * 9 / 10,
	}
}
