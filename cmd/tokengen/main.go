// Command tokengen signs a pro-user bearer token with JWT_SECRET, for
// accounts created outside the /v2/user routes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"rest-gateway/internal/token"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	id := flag.String("id", "", "account id (required)")
	email := flag.String("email", "", "account email")
	ttl := flag.Duration("ttl", token.DefaultTTL, "token lifetime")
	flag.Parse()

	if err := run(os.Getenv("JWT_SECRET"), *id, *email, *ttl); err != nil {
		logrus.Fatal(err)
	}
}

func run(secret, id, email string, ttl time.Duration) error {
	if id == "" {
		return errors.New("-id is required")
	}
	iss, err := token.NewIssuer(secret, ttl)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}
	raw, err := iss.Sign(id, email)
	if err != nil {
		return err
	}
	fmt.Println(raw)
	return nil
}
