// Command token issues signed tokens for subscribers and publishers.
package main

import (
	"community-pulse/auth"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	JWTSecret string `env:"JWT_SECRET,required=true"`
	JWTIssuer string `env:"JWT_ISSUER,default=community-pulse"`
}

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Token error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	flags := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := flags.String("user", "", "User id bound to the token")
	roles := flags.String("roles", auth.RoleSubscriber, "Comma separated roles: subscriber, publisher")
	ttl := flags.Duration("ttl", 24*time.Hour, "Token lifetime")
	if err := flags.Parse(args); err != nil {
		return exitConfig, err
	}
	if *userID == "" {
		return exitConfig, fmt.Errorf("-user is required")
	}

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	roleList := lo.Compact(lo.Map(strings.Split(*roles, ","), func(role string, _ int) string {
		return strings.TrimSpace(role)
	}))
	token, err := auth.NewTokens(config.JWTSecret, config.JWTIssuer).GenerateToken(*userID, roleList, *ttl)
	if err != nil {
		return exitRuntime, err
	}
	fmt.Println(token)
	return exitOK, nil
}
