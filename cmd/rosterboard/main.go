package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"checkin-app-go/internal/board"
	"checkin-app-go/internal/pollclient"
	"checkin-app-go/pkg/logger"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("ROSTERBOARD_API_URL", "http://localhost:8080/api"), "API base url")
	program := flag.String("program", envOr("ROSTERBOARD_PROGRAM", "daycare"), "program to display")
	date := flag.String("date", "", "service date (YYYY-MM-DD), defaults to today")
	sessionEvery := flag.Duration("session-interval", pollclient.DefaultSessionInterval, "session poll interval")
	rosterEvery := flag.Duration("roster-interval", pollclient.DefaultRosterInterval, "roster poll interval")
	logPath := flag.String("log", "", "write poll warnings to this file")
	flag.Parse()

	token := os.Getenv("ROSTERBOARD_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "ROSTERBOARD_TOKEN is required")
		return 2
	}

	log, closeLog, err := openLog(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := pollclient.NewClient(*apiURL, pollclient.Credentials{Token: token})
	sessions := client.WatchProgramSession(*program, *sessionEvery, log)
	roster := client.WatchRoster(pollclient.RosterQuery{Program: *program, Date: *date}, *rosterEvery, log)

	go func() { _ = sessions.Run(ctx) }()
	go func() { _ = roster.Run(ctx) }()

	p := tea.NewProgram(board.New(*program, sessions, roster), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	sessions.Stop()
	roster.Stop()
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "rosterboard: %v\n", err)
		return 1
	}
	return 0
}

// openLog returns a warn-level logger writing to path, or a nop logger when
// path is empty. The returned func closes the file.
func openLog(path string) (logger.Logger, func() error, error) {
	if path == "" {
		return logger.NewNop(), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return logger.New(f, slog.LevelWarn, "text"), f.Close, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
