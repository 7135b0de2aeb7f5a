package models

import "time"

type FetchStatus string

const (
	FetchStatusOK    FetchStatus = "ok"
	FetchStatusError FetchStatus = "error"
	FetchStatusStale FetchStatus = "stale"
)

func (s FetchStatus) Valid() bool {
	switch s {
	case FetchStatusOK, FetchStatusError, FetchStatusStale:
		return true
	}
	return false
}

// FetchRecord is one journaled feed fetch made on behalf of a session.
type FetchRecord struct {
	ID           string        `json:"id"`
	SessionID    string        `json:"session_id"`
	Period       string        `json:"period"`
	URL          string        `json:"url"`
	Generation   uint64        `json:"generation"`
	Status       FetchStatus   `json:"status"`
	FeatureCount int           `json:"feature_count"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
	FetchedAt    time.Time     `json:"fetched_at"`
}
