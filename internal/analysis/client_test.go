package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/terraincognita07/liberate/internal/breaker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	settings := breaker.DefaultSettings("analysis-test-" + t.Name())
	settings.MinRequests = 100
	return NewClient(Config{BaseURL: server.URL + "/", Timeout: 2 * time.Second, Breaker: settings})
}

func TestFetchAnalysisSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze/u1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","depression_level":"Moderate","anxiety_level":1.5,"total_days_analyzed":12,"negative_days":3,"total_entries":20,"crisis_detected":true,"analyzed_at":"2024-03-01T10:00:00Z"}`))
	})

	result := client.FetchAnalysis(context.Background(), "u1")
	success, ok := result.(Success)
	if !ok {
		t.Fatalf("expected Success, got %#v", result)
	}
	analysis := success.Analysis
	if analysis.DepressionLevel != "moderate" || analysis.AnxietyLevel != "good" {
		t.Fatalf("unexpected levels %q / %q", analysis.DepressionLevel, analysis.AnxietyLevel)
	}
	if analysis.TotalDaysAnalyzed != 12 || analysis.NegativeDays != 3 || analysis.TotalEntries != 20 || !analysis.CrisisDetected {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
}

func TestFetchAnalysisClassifiesOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   Result
	}{
		{name: "no data", status: http.StatusOK, body: `{"status":"no_data"}`, want: NoData{}},
		{name: "error with message", status: http.StatusOK, body: `{"status":"error","message":"model offline"}`, want: Failed{Message: "model offline"}},
		{name: "error without message", status: http.StatusOK, body: `{"status":"weird"}`, want: Failed{Message: FailedMessage}},
		{name: "missing status", status: http.StatusOK, body: `{}`, want: Failed{Message: FailedMessage}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			})
			if got := client.FetchAnalysis(context.Background(), "u1"); got != test.want {
				t.Fatalf("FetchAnalysis() = %#v, want %#v", got, test.want)
			}
		})
	}
}

func TestFetchAnalysisUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "html page", status: http.StatusOK, body: "  \n<html><body>Bad gateway</body></html>"},
		{name: "server error", status: http.StatusServiceUnavailable, body: `{"status":"success"}`},
		{name: "broken json", status: http.StatusOK, body: `{"status":`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			})
			if _, ok := client.FetchAnalysis(context.Background(), "u1").(Unavailable); !ok {
				t.Fatal("expected Unavailable")
			}
		})
	}
}

func TestFetchAnalysisUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: baseURL, Timeout: time.Second})
	if _, ok := client.FetchAnalysis(context.Background(), "u1").(Unavailable); !ok {
		t.Fatal("expected Unavailable for a closed server")
	}
}

func TestFetchHistorySortsAndDefaultsScores(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history/u1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","history":[
			{"date":"2024-03-03","depression_score":4.5,"anxiety_score":2},
			{"date":"2024-03-01","depression_score":1},
			{"date":"2024-03-02","anxiety_score":9.5}
		]}`))
	})

	history := client.FetchHistory(context.Background(), "u1")
	if len(history) != 3 {
		t.Fatalf("expected 3 points, got %d", len(history))
	}
	for index, date := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		if history[index].Date != date {
			t.Fatalf("point %d date = %s, want %s", index, history[index].Date, date)
		}
	}
	if history[0].AnxietyScore != 0 || history[1].DepressionScore != 0 || history[1].AnxietyScore != 9.5 {
		t.Fatalf("expected missing scores to default to zero, got %+v", history)
	}
}

func TestFetchHistoryFailuresYieldEmpty(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"html":        "<!DOCTYPE html><html></html>",
		"bad status":  `{"status":"error","history":[{"date":"2024-01-01"}]}`,
		"no history":  `{"status":"success"}`,
		"broken json": `[`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			history := client.FetchHistory(context.Background(), "u1")
			if history == nil || len(history) != 0 {
				t.Fatalf("expected empty non-nil history, got %#v", history)
			}
		})
	}
}

func TestOpenCircuitIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	settings := breaker.DefaultSettings("analysis-open-test")
	settings.MinRequests = 1
	client := NewClient(Config{BaseURL: server.URL, Breaker: settings})

	client.FetchAnalysis(context.Background(), "u1")
	result, ok := client.FetchAnalysis(context.Background(), "u1").(Unavailable)
	if !ok || result.Reason == "" {
		t.Fatalf("expected Unavailable from the open circuit, got %#v", result)
	}
}
