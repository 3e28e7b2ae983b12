package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath      string
	DatabaseURL string
	RawMailDir  string
	OutputDir   string
	ArchiveRaw  bool

	LogFile  string
	LogLevel string

	SourcesFile   string
	MessageSource string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	GmailRateLimitRPS float64

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMailbox  string

	OrderProcessedLabel    string
	OrderErrorLabel        string
	ShipmentProcessedLabel string
	ShipmentErrorLabel     string

	BatchMax         int
	MaxErrorMessages int

	ListenerIntervalSec int
	ListenerSources     []string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RawMailDir:  getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		ArchiveRaw:  getEnvBool("ARCHIVE_RAW", false),

		LogFile:  getEnv("LOG_FILE", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SourcesFile:   getEnv("SOURCES_FILE", filepath.Join(cwd, "sources.yaml")),
		MessageSource: strings.ToLower(strings.TrimSpace(getEnv("MESSAGE_SOURCE", "gmail"))),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailRateLimitRPS: getEnvFloat("GMAIL_RATE_LIMIT_RPS", 10),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMailbox:  getEnv("IMAP_MAILBOX", "INBOX"),

		OrderProcessedLabel:    getEnv("ORDER_PROCESSED_LABEL", "Retailer-Orders/Processed"),
		OrderErrorLabel:        getEnv("ORDER_ERROR_LABEL", "Retailer-Orders/Error"),
		ShipmentProcessedLabel: getEnv("SHIPMENT_PROCESSED_LABEL", "PrepWorx/Processed"),
		ShipmentErrorLabel:     getEnv("SHIPMENT_ERROR_LABEL", "PrepWorx/Error"),

		BatchMax:         getEnvInt("BATCH_MAX", 50),
		MaxErrorMessages: getEnvInt("MAX_ERROR_MESSAGES", 50),

		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 300),
		ListenerSources:     getEnvList("LISTENER_SOURCES"),
	}

	return cfg, nil
}

// DSN is the storage connection string: DATABASE_URL when set, the SQLite
// file otherwise.
func (c Config) DSN() string {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return c.DatabaseURL
	}
	return c.DBPath
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
