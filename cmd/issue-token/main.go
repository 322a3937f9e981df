// Command issue-token mints a sync token for a user so a device can sign in
// with `myquran sync login <token>`. Without --user a new user id is created.
//
// Usage:
//
//	issue-token --user=2f1c... --device=phone
//
// Requires AUTH_JWT_SECRET (and optionally AUTH_JWT_ISSUER, AUTH_TOKEN_TTL).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/heartmarshall/myquran/internal/auth"
	"github.com/heartmarshall/myquran/internal/config"
)

func main() {
	user := flag.String("user", "", "user id (uuid); empty creates a new user")
	device := flag.String("device", "", "device name recorded in the token")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		log.Fatal("AUTH_JWT_SECRET must be at least 32 characters")
	}

	userID := uuid.New()
	if *user != "" {
		userID, err = uuid.Parse(*user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --user %q: %v\n", *user, err)
			os.Exit(1)
		}
	}

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	token, err := tokens.GenerateSyncToken(userID, *device)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "user %s, valid for %s\n", userID, cfg.Auth.TokenTTL)
	fmt.Println(token)
}
