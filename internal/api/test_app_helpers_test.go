package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/liberate/internal/analysis"
	"github.com/terraincognita07/liberate/internal/companion"
	"github.com/terraincognita07/liberate/internal/db"
	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/localstore"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type recordingMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (mailer *recordingMailer) SendVerification(_ context.Context, email string, token string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	mailer.tokens[email] = token
	return nil
}

func (mailer *recordingMailer) token(email string) string {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return mailer.tokens[email]
}

type fakeCompanion struct {
	reply string
	err   error
}

func (fake fakeCompanion) Reply(context.Context, []companion.Turn, string) (string, error) {
	return fake.reply, fake.err
}

type fakeAnalysis struct {
	result  analysis.Result
	history []analysis.MoodTrendPoint
}

func (fake fakeAnalysis) FetchAnalysis(context.Context, string) analysis.Result {
	return fake.result
}

func (fake fakeAnalysis) FetchHistory(context.Context, string) []analysis.MoodTrendPoint {
	return fake.history
}

type testApp struct {
	app     *fiber.App
	handler *Handler
	mailer  *recordingMailer
	local   localstore.Store
}

func newTestApp(t *testing.T, deps Dependencies) *testApp {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "liberate-api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	repositories := db.NewRepositories(database)
	mailer := &recordingMailer{tokens: map[string]string{}}
	local := localstore.NewMemoryStore()

	deps.Users = repositories.Users
	deps.Documents = docstore.NewHub(repositories.Documents)
	deps.Local = local
	deps.Mailer = mailer
	deps.SecretKey = testSecretKey

	handler, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}
	t.Cleanup(handler.Close)

	app := fiber.New()
	RegisterRoutes(app, handler)
	return &testApp{app: app, handler: handler, mailer: mailer, local: local}
}

func (fixture *testApp) do(t *testing.T, method string, path string, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := fixture.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return response
}

// signedInToken registers, verifies and signs in email.
func (fixture *testApp) signedInToken(t *testing.T, email string) string {
	t.Helper()

	credentials := map[string]string{"email": email, "password": "StrongPass1"}
	if response := fixture.do(t, http.MethodPost, "/api/auth/register", "", credentials); response.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", response.StatusCode)
	}
	verify := map[string]string{"token": fixture.mailer.token(email)}
	if response := fixture.do(t, http.MethodPost, "/api/auth/verify", "", verify); response.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d", response.StatusCode)
	}

	response := fixture.do(t, http.MethodPost, "/api/auth/login", "", credentials)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", response.StatusCode)
	}
	var payload struct {
		Token string `json:"token"`
	}
	decodeBody(t, response, &payload)
	if payload.Token == "" {
		t.Fatal("expected token in login response")
	}
	return payload.Token
}

func decodeBody(t *testing.T, response *http.Response, target any) {
	t.Helper()
	defer response.Body.Close()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func readAPIError(t *testing.T, response *http.Response) string {
	t.Helper()
	payload := map[string]string{}
	decodeBody(t, response, &payload)
	return payload["error"]
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
