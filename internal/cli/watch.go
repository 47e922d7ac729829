package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/terraincognita07/liberate/internal/identity"
	"github.com/terraincognita07/liberate/internal/localstore"
	"github.com/terraincognita07/liberate/internal/models"
	"github.com/terraincognita07/liberate/internal/services"
	"github.com/terraincognita07/liberate/internal/synccache"
)

type SignInService interface {
	SignIn(ctx context.Context, session *identity.Session, email string, password string) (identity.Identity, error)
}

// DocumentPoller picks up commits made by other processes, such as a
// running server, that share the document database.
type DocumentPoller interface {
	Poll(ctx context.Context, interval time.Duration)
}

type WatchOptions struct {
	Auth         SignInService
	Documents    synccache.Remote
	Local        localstore.Store
	Email        string
	Password     string
	Out          io.Writer
	PollInterval time.Duration
}

// RunWatchCommand signs in and prints the day document projection every
// time it changes, starting from the local mirror when one exists. It
// returns when ctx ends.
func RunWatchCommand(ctx context.Context, options WatchOptions) error {
	if options.Auth == nil || options.Documents == nil {
		return errors.New("watch needs an auth service and a document store")
	}
	out := options.Out
	if out == nil {
		out = io.Discard
	}

	session := identity.NewSession()
	cache, err := synccache.New(synccache.Options{
		Feature:   services.DayFeature,
		Path:      models.DayDocumentPath,
		Documents: options.Documents,
		Local:     options.Local,
		Session:   session,
	})
	if err != nil {
		return err
	}

	var printMu sync.Mutex
	stopListening := cache.Listen(func(snapshot synccache.Snapshot) {
		printMu.Lock()
		defer printMu.Unlock()
		printSnapshot(out, snapshot)
	})
	defer stopListening()

	cache.Follow(ctx)
	defer cache.Close()

	if poller, ok := options.Documents.(DocumentPoller); ok && options.PollInterval > 0 {
		pollCtx, stopPolling := context.WithCancel(ctx)
		defer stopPolling()
		go poller.Poll(pollCtx, options.PollInterval)
	}

	subject, err := options.Auth.SignIn(ctx, session, options.Email, options.Password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	printMu.Lock()
	fmt.Fprintf(out, "watching %s (%s), press Ctrl+C to stop\n", subject.Email, subject.ID)
	printMu.Unlock()

	<-ctx.Done()
	session.Clear()
	return nil
}

func printSnapshot(out io.Writer, snapshot synccache.Snapshot) {
	days, err := services.DecodeDays(snapshot.Document)
	if err != nil {
		fmt.Fprintf(out, "[%s] undecodable day document: %v\n", snapshot.Source, err)
		return
	}

	fmt.Fprintf(out, "[%s %s] %d day(s)\n", time.Now().Format(time.TimeOnly), snapshot.Source, len(days))
	for _, day := range days {
		fmt.Fprintf(out, "  %s %s\n", day.Date, day.Record.Mood)
		for _, journal := range day.Record.Journals {
			fmt.Fprintf(out, "    %s %s\n", journal.Time, journal.Text)
		}
	}
}
