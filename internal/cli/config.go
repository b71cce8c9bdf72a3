package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	SessionFile string
	Output      string
	Verbose     bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   getEnvOrDefault("KEYQUEST_SERVER", "http://localhost:8080"),
		SessionFile: getEnvOrDefault("KEYQUEST_SESSION_FILE", defaultSessionFile()),
		Output:      "text",
		Verbose:     false,
	}
}

// LoadSession returns the last saved game session ID, or "" if none
func (c *Config) LoadSession() (string, error) {
	data, err := os.ReadFile(c.SessionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // No session file is fine
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveSession saves the game session ID to the session file
func (c *Config) SaveSession(id string) error {
	dir := filepath.Dir(c.SessionFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.SessionFile, []byte(id), 0600)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keyquest/session"
	}
	return filepath.Join(home, ".keyquest", "session")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
