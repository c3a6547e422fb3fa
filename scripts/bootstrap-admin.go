package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/loanwise/loanwise/internal/repository"
	"github.com/loanwise/loanwise/internal/service"
)

type output struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", envOr("FIRST_SUPERUSER_EMAIL", "admin@loanwise.local"), "Superuser email")
		fullName    = flag.String("full-name", "Administrator", "Superuser full name")
		migrate     = flag.Bool("migrate", false, "Apply database migrations first")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	password := os.Getenv("FIRST_SUPERUSER_PASSWORD")
	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "FIRST_SUPERUSER_PASSWORD is required")
		os.Exit(1)
	}

	if *migrate {
		if err := repository.Migrate(*databaseURL); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := service.NewUserService(repo, nil, nil, nil, logger)

	user, created, err := users.EnsureSuperuser(ctx, service.RegisterInput{
		Email:    *email,
		Password: password,
		FullName: *fullName,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ensure superuser:", err)
		os.Exit(1)
	}
	if !created && !user.IsSuperuser {
		fmt.Fprintf(os.Stderr, "user %s exists but is not a superuser\n", user.Email)
		os.Exit(1)
	}

	out := output{UserID: user.ID, Email: user.Email, Created: created}
	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.UserID)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
