package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL  string
	HTTPAddr     string
	LogLevel     string
	Env          string // dev|prod
	Location     *time.Location
	SentryDSN    string
	BotToken     string // optional, leave notifications
	NotifyChatID int64  // telegram chat for staff notifications
	AutoMarkAt   string // HH:MM local time for the daily auto-mark run
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Asia/Shanghai")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	chatID, err := parseChatID(os.Getenv("NOTIFY_CHAT_ID"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_CHAT_ID: %w", err)
	}

	cfg := &Config{
		DatabaseURL:  mustEnv("DATABASE_URL"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		Env:          getenv("ENV", "dev"),
		Location:     loc,
		SentryDSN:    os.Getenv("SENTRY_DSN"),
		BotToken:     os.Getenv("BOT_TOKEN"),
		NotifyChatID: chatID,
		AutoMarkAt:   getenv("AUTO_MARK_AT", "09:00"),
	}
	if _, err := ParseClock(cfg.AutoMarkAt); err != nil {
		return nil, fmt.Errorf("AUTO_MARK_AT: %w", err)
	}
	return cfg, nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", parts[1])
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseChatID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad chat id %q: %w", s, err)
	}
	return n, nil
}
