package sheets

import "time"

// Config holds connection settings for the remote spreadsheet API
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.com/v0/appXXXX
	BaseURL string
	// Token is sent as a bearer token on every request
	Token string
	// Table is the table (sheet) name appended to BaseURL
	Table string

	// RequestsPerSecond paces outgoing calls below the store's shared quota
	RequestsPerSecond float64
	Burst             int

	Timeout  time.Duration
	PageSize int
}

// DefaultConfig returns defaults matching the store's documented limit of 5 req/s
func DefaultConfig() Config {
	return Config{
		Table:             "attendees",
		RequestsPerSecond: 5,
		Burst:             1,
		Timeout:           10 * time.Second,
		PageSize:          100,
	}
}
