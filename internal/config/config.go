package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// FileName is the record file.
	FileName   string
	MaxRecords int
	NoSync     bool

	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Users holds the accepted credentials, empty means no login.
	Users []User
}

type User struct {
	Name string
	Role string
	Hash string
}

// Load reads an optional .env file, then the environment. Variables already
// present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("env file %s: %w", f, err)
		}
	}

	users, err := parseUsers(getEnv("ROLLBOOK_USERS", ""))
	if err != nil {
		return nil, fmt.Errorf("ROLLBOOK_USERS: %w", err)
	}

	cfg := &Config{
		FileName:   getEnv("ROLLBOOK_FILE", "student.txt"),
		MaxRecords: getEnvInt("ROLLBOOK_MAX_RECORDS", 2000),
		NoSync:     getEnvBool("ROLLBOOK_NO_SYNC", false),
		LogLevel:   getEnv("ROLLBOOK_LOG_LEVEL", "warn"),
		LogFormat:  getEnv("ROLLBOOK_LOG_FORMAT", "text"),
		Users:      users,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.FileName) == "" {
		errs = append(errs, "ROLLBOOK_FILE must not be empty")
	}

	if c.MaxRecords == 0 {
		errs = append(errs, "ROLLBOOK_MAX_RECORDS must be positive, or negative for no limit")
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, "ROLLBOOK_LOG_FORMAT must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// parseUsers reads "name:role:hash" entries separated by commas. Bcrypt
// hashes contain '$' but never ':' or ','.
func parseUsers(v string) ([]User, error) {
	var users []User
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("entry %q is not name:role:hash", entry)
		}

		users = append(users, User{Name: parts[0], Role: parts[1], Hash: parts[2]})
	}

	return users, nil
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
