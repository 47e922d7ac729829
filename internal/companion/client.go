// Package companion calls the generative language API that voices the
// chat companion.
package companion

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
	"golang.org/x/time/rate"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

var (
	ErrNotConfigured = errors.New("companion api key is not configured")
	ErrEmptyReply    = errors.New("companion returned no text")
)

type Part struct {
	Text string `json:"text"`
}

type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func TextTurn(role string, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}

type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	SystemPrompt      string
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
	Breaker           breaker.Settings
}

type Client struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	http         *http.Client
	limiter      *rate.Limiter
	cb           *gobreaker.CircuitBreaker[string]
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
		burst = max(1, cfg.RequestsPerMinute/6)
	}

	settings := cfg.Breaker
	if settings.Name == "" {
		settings = breaker.DefaultSettings("companion-api")
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        strings.TrimSpace(cfg.Model),
		systemPrompt: cfg.SystemPrompt,
		http:         httpClient,
		limiter:      rate.NewLimiter(limit, burst),
		cb:           breaker.New[string](settings),
	}
}

type generateRequest struct {
	SystemInstruction *Turn  `json:"systemInstruction,omitempty"`
	Contents          []Turn `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content Turn `json:"content"`
	} `json:"candidates"`
}

// Reply continues the conversation in history with message and returns the
// model's text.
func (client *Client) Reply(ctx context.Context, history []Turn, message string) (string, error) {
	if client.apiKey == "" {
		return "", ErrNotConfigured
	}
	if err := client.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("companion throttled: %w", err)
	}

	contents := make([]Turn, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, TextTurn(RoleUser, message))

	payload := generateRequest{Contents: contents}
	if strings.TrimSpace(client.systemPrompt) != "" {
		instruction := Turn{Parts: []Part{{Text: client.systemPrompt}}}
		payload.SystemInstruction = &instruction
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	return client.cb.Execute(func() (string, error) {
		return client.generate(ctx, body)
	})
}

func (client *Client) generate(ctx context.Context, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", client.baseURL, url.PathEscape(client.model))
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-goog-api-key", client.apiKey)

	response, err := client.http.Do(request)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("generate content: status %d", response.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	for _, candidate := range decoded.Candidates {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	reply := strings.TrimSpace(text.String())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
