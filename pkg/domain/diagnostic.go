package domain

import "time"

// DiagnosticRecord is a best-effort trace of a single answered query.
type DiagnosticRecord struct {
	Timestamp       time.Time        `json:"timestamp"`
	SessionID       string           `json:"session_id"`
	Language        Language         `json:"language"`
	Resolution      Resolution       `json:"resolution"`
	Query           string           `json:"query"`
	History         []ChatTurn       `json:"history"`
	Matches         []RetrievedMatch `json:"matches"`
	RelatedLinks    []string         `json:"related_links"`
	AdditionalLinks []string         `json:"additional_links"`
	Prompt          string           `json:"prompt"`
	Answer          string           `json:"answer"`
}
