// Package services holds the use cases. Each one loads the aggregates it
// needs, asks the policy package for permission, applies the mutation and
// writes the result back. Events are published after the write and their
// failures are only logged.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// Deps wires the driven ports into the services. Events, Media, Analysis and
// Sessions are optional.
type Deps struct {
	Users     ports.UserRepository
	Songs     ports.SongRepository
	Playlists ports.PlaylistRepository
	Sessions  ports.SessionStore
	Media     ports.MediaStore
	Events    ports.EventPublisher
	Analysis  ports.AnalysisQueue
	Log       *slog.Logger

	// AdminEmail promotes the matching account to admin on registration.
	AdminEmail string

	Now   func() time.Time
	NewID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

// publish sends ev without letting a broker outage fail the request.
func (d Deps) publish(ctx context.Context, ev domain.Event) {
	if d.Events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = d.Now()
	}
	if err := d.Events.Publish(ctx, ev); err != nil {
		d.Log.Warn("event publish failed", "type", ev.Type, "subject", ev.SubjectID, "error", err)
	}
}

func requireUser(a policy.Actor) error {
	if a.Anonymous() {
		return domain.ErrUnauthenticated
	}
	return nil
}

func requireAdmin(a policy.Actor) error {
	if err := requireUser(a); err != nil {
		return err
	}
	if !policy.IsAdmin(a) {
		return fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}
	return nil
}

// clampTop bounds the N of top-N listings.
func clampTop(n int) int {
	if n <= 0 {
		return 10
	}
	return min(n, ports.MaxLimit)
}
