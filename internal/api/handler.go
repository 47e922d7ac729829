package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/terraincognita07/liberate/internal/analysis"
	"github.com/terraincognita07/liberate/internal/companion"
	"github.com/terraincognita07/liberate/internal/docstore"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/services"
)

const defaultAuthTokenTTL = 7 * 24 * time.Hour

type AnalysisClient interface {
	FetchAnalysis(ctx context.Context, userID string) analysis.Result
	FetchHistory(ctx context.Context, userID string) []analysis.MoodTrendPoint
}

type AffirmationSource interface {
	Random(ctx context.Context) services.Affirmation
}

// UserRepository is everything the HTTP surface needs from user storage.
type UserRepository interface {
	services.AuthUserRepository
	services.AccountUserRepository
}

type Dependencies struct {
	Users        UserRepository
	Documents    *docstore.Hub
	Local        localstore.Store
	Analysis     AnalysisClient
	Companion    services.CompanionReplier
	Affirmations AffirmationSource
	Mailer       services.VerificationSender
	SecretKey    string
	TokenTTL     time.Duration
	CookieSecure bool
	Location     *time.Location
}

type Handler struct {
	authService    *services.AuthService
	accountService *services.AccountService
	documents      *docstore.Hub
	local          localstore.Store
	analysis       AnalysisClient
	companion      services.CompanionReplier
	affirmations   AffirmationSource
	locks          *services.KeyedLocks
	validate       *validator.Validate
	secretKey      []byte
	tokenTTL       time.Duration
	cookieSecure   bool
	location       *time.Location
	loginLimiter   *attemptLimiter

	// streams ends open event streams on shutdown.
	streams      context.Context
	closeStreams context.CancelFunc
}

func NewHandler(deps Dependencies) (*Handler, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("user repository is required")
	case deps.Documents == nil:
		return nil, errors.New("document hub is required")
	case len(deps.SecretKey) == 0:
		return nil, errors.New("secret key is required")
	}

	local := deps.Local
	if local == nil {
		local = localstore.NewMemoryStore()
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	tokenTTL := deps.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultAuthTokenTTL
	}
	replier := deps.Companion
	if replier == nil {
		replier = companion.NewClient(companion.Config{})
	}
	affirmations := deps.Affirmations
	if affirmations == nil {
		affirmations = services.NewAffirmationService("", 0)
	}

	streams, closeStreams := context.WithCancel(context.Background())
	return &Handler{
		authService:    services.NewAuthService(deps.Users, deps.Mailer),
		accountService: services.NewAccountService(deps.Users),
		documents:      deps.Documents,
		local:          local,
		analysis:       deps.Analysis,
		companion:      replier,
		affirmations:   affirmations,
		locks:          services.NewKeyedLocks(),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		secretKey:      []byte(deps.SecretKey),
		tokenTTL:       tokenTTL,
		cookieSecure:   deps.CookieSecure,
		location:       location,
		loginLimiter:   newAttemptLimiter(loginAttemptLimit, loginAttemptWindow),
		streams:        streams,
		closeStreams:   closeStreams,
	}, nil
}

// Close ends every open day stream.
func (handler *Handler) Close() {
	handler.closeStreams()
}
