package services

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/terraincognita07/liberate/internal/breaker"
	"github.com/terraincognita07/liberate/internal/logging"
)

const (
	AffirmationSourceRemote = "remote"
	AffirmationSourceBackup = "backup"
)

type Affirmation struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Source string `json:"source"`
}

// ShareText is the message handed to the share sheet.
func (affirmation Affirmation) ShareText() string {
	return fmt.Sprintf("\"%s\" - %s | Found on Liberate Me ✨", affirmation.Text, affirmation.Author)
}

var backupAffirmations = []Affirmation{
	{Text: "I am exactly where I need to be.", Author: "Self"},
	{Text: "My peace is my power.", Author: "Self"},
	{Text: "I choose to be kind to myself today.", Author: "Self"},
	{Text: "I am worthy of all the good things coming my way.", Author: "Self"},
	{Text: "I breathe in calm, I breathe out stress.", Author: "Self"},
	{Text: "Every day is a fresh start.", Author: "Self"},
	{Text: "I have the power to create change.", Author: "Self"},
	{Text: "I trust the timing of my life.", Author: "Self"},
}

func BackupAffirmations() []Affirmation {
	out := make([]Affirmation, len(backupAffirmations))
	for index, item := range backupAffirmations {
		item.Source = AffirmationSourceBackup
		out[index] = item
	}
	return out
}

type AffirmationService struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[Affirmation]
	pick   func(n int) int
}

func NewAffirmationService(url string, timeout time.Duration) *AffirmationService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AffirmationService{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
		cb:     breaker.New[Affirmation](breaker.DefaultSettings("affirmation-api")),
		pick:   rand.IntN,
	}
}

type quotePayload struct {
	Quote  string `json:"q"`
	Author string `json:"a"`
}

// Random returns a quote from the remote feed, or a backup affirmation when
// the feed cannot be reached or returns nothing usable.
func (service *AffirmationService) Random(ctx context.Context) Affirmation {
	if service.url != "" {
		affirmation, err := service.cb.Execute(func() (Affirmation, error) {
			return service.fetch(ctx)
		})
		if err == nil {
			return affirmation
		}
		logging.Debug().Err(err).Msg("affirmation feed unavailable, using backup")
	}

	backups := BackupAffirmations()
	return backups[service.pick(len(backups))]
}

func (service *AffirmationService) fetch(ctx context.Context) (Affirmation, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, service.url, nil)
	if err != nil {
		return Affirmation{}, err
	}
	response, err := service.client.Do(request)
	if err != nil {
		return Affirmation{}, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return Affirmation{}, fmt.Errorf("affirmation feed status %d", response.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, 64<<10))
	if err != nil {
		return Affirmation{}, err
	}

	var quotes []quotePayload
	if err := json.Unmarshal(body, &quotes); err != nil {
		return Affirmation{}, fmt.Errorf("decode affirmation feed: %w", err)
	}
	if len(quotes) == 0 || strings.TrimSpace(quotes[0].Quote) == "" {
		return Affirmation{}, fmt.Errorf("affirmation feed returned no quote")
	}
	author := strings.TrimSpace(quotes[0].Author)
	if author == "" {
		author = "Unknown"
	}
	return Affirmation{
		Text:   strings.TrimSpace(quotes[0].Quote),
		Author: author,
		Source: AffirmationSourceRemote,
	}, nil
}
