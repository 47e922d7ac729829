package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/terraincognita07/liberate/internal/breaker"
	"github.com/terraincognita07/liberate/internal/logging"
	"github.com/terraincognita07/liberate/internal/metrics"
)

const maxResponseBytes = 1 << 20

var (
	errHTMLBody = errors.New("service returned an HTML page")
	errStatus   = errors.New("unexpected HTTP status")
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    breaker.Settings
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	settings := cfg.Breaker
	if settings.Name == "" {
		settings = breaker.DefaultSettings("analysis-api")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		cb:      breaker.New[[]byte](settings),
	}
}

type analysisEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Analysis
}

// FetchAnalysis never returns an error: every failure is folded into the
// Result variants.
func (client *Client) FetchAnalysis(ctx context.Context, userID string) Result {
	result := client.fetchAnalysis(ctx, userID)
	metrics.AnalysisOutcomes.WithLabelValues("analyze", result.Outcome()).Inc()
	return result
}

func (client *Client) fetchAnalysis(ctx context.Context, userID string) Result {
	body, err := client.get(ctx, "/analyze/"+url.PathEscape(userID))
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("analysis fetch failed")
		return Unavailable{Reason: err.Error()}
	}

	var envelope analysisEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("analysis response is not valid JSON")
		return Unavailable{Reason: "invalid JSON response"}
	}

	switch strings.ToLower(strings.TrimSpace(envelope.Status)) {
	case "success":
		return Success{Analysis: envelope.Analysis}
	case "no_data":
		return NoData{}
	default:
		message := strings.TrimSpace(envelope.Message)
		if message == "" {
			message = FailedMessage
		}
		return Failed{Message: message}
	}
}

type historyEnvelope struct {
	Status  string         `json:"status"`
	History []historyPoint `json:"history"`
}

type historyPoint struct {
	Date            string   `json:"date"`
	DepressionScore *float64 `json:"depression_score"`
	AnxietyScore    *float64 `json:"anxiety_score"`
}

// FetchHistory returns trend points ascending by date. Any failure yields
// an empty slice.
func (client *Client) FetchHistory(ctx context.Context, userID string) []MoodTrendPoint {
	points, outcome := client.fetchHistory(ctx, userID)
	metrics.AnalysisOutcomes.WithLabelValues("history", outcome).Inc()
	return points
}

func (client *Client) fetchHistory(ctx context.Context, userID string) ([]MoodTrendPoint, string) {
	body, err := client.get(ctx, "/history/"+url.PathEscape(userID))
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("history fetch failed")
		return []MoodTrendPoint{}, "unavailable"
	}

	var envelope historyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("history response is not valid JSON")
		return []MoodTrendPoint{}, "unavailable"
	}
	if !strings.EqualFold(strings.TrimSpace(envelope.Status), "success") || envelope.History == nil {
		return []MoodTrendPoint{}, "no_data"
	}

	points := make([]MoodTrendPoint, 0, len(envelope.History))
	for _, raw := range envelope.History {
		point := MoodTrendPoint{Date: strings.TrimSpace(raw.Date)}
		if raw.DepressionScore != nil {
			point.DepressionScore = *raw.DepressionScore
		}
		if raw.AnxietyScore != nil {
			point.AnxietyScore = *raw.AnxietyScore
		}
		points = append(points, point)
	}
	sortByDate(points)
	return points, "success"
}

func (client *Client) get(ctx context.Context, path string) ([]byte, error) {
	return client.cb.Execute(func() ([]byte, error) {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		request.Header.Set("Accept", "application/json")

		response, err := client.http.Do(request)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", path, err)
		}
		defer response.Body.Close()

		if response.StatusCode < 200 || response.StatusCode > 299 {
			return nil, fmt.Errorf("%w: %d", errStatus, response.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
			return nil, errHTMLBody
		}
		return body, nil
	})
}
