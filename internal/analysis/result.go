// Package analysis talks to the external mood scoring service and turns its
// loosely shaped responses into typed results.
package analysis

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	NoDataMessage      = "Not enough data yet. Keep journaling!"
	FailedMessage      = "Unable to analyze"
	UnavailableMessage = "API is waking up... Pull to refresh."
)

// Result is one of Success, NoData, Failed or Unavailable.
type Result interface {
	Outcome() string
}

type Success struct {
	Analysis Analysis
}

// NoData is the normal state for accounts without enough journal history.
type NoData struct{}

type Failed struct {
	Message string
}

type Unavailable struct {
	Reason string
}

func (Success) Outcome() string     { return "success" }
func (NoData) Outcome() string      { return "no_data" }
func (Failed) Outcome() string      { return "failed" }
func (Unavailable) Outcome() string { return "unavailable" }

type Analysis struct {
	DepressionLevel   Level  `json:"depression_level"`
	AnxietyLevel      Level  `json:"anxiety_level"`
	TotalDaysAnalyzed int    `json:"total_days_analyzed"`
	NegativeDays      int    `json:"negative_days"`
	TotalEntries      int    `json:"total_entries"`
	CrisisDetected    bool   `json:"crisis_detected"`
	AnalyzedAt        string `json:"analyzed_at"`
}

// Level is a severity label. The service sends words; a numeric score is
// mapped onto its band.
type Level string

func (level *Level) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*level = ""
		return nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		*level = Level(strings.ToLower(strings.TrimSpace(text)))
		return nil
	}
	score, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("level must be a string or number: %w", err)
	}
	*level = Level(BandOf(score).String())
	return nil
}

type MoodTrendPoint struct {
	Date            string  `json:"date"`
	DepressionScore float64 `json:"depression_score"`
	AnxietyScore    float64 `json:"anxiety_score"`
}
