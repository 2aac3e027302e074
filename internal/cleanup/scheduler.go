package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"presence-relay/internal/models"
	"presence-relay/internal/observability"
)

// DefaultInterval is how often offline users are reclaimed.
const DefaultInterval = time.Hour

// Presence is the part of the presence registry a sweep needs.
type Presence interface {
	GetUsers() []models.UserRecord
	RemoveUser(id string)
}

// History is the part of the conversation store a sweep needs.
type History interface {
	DeleteConversationsContaining(id string) int
}

// Auditor records completed sweeps.
type Auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *string, fields map[string]any)
}

// Result summarises one sweep.
type Result struct {
	Skipped              bool
	UsersRemoved         int
	ConversationsRemoved int
	Failures             int
}

// Scheduler periodically removes offline users and every conversation they
// take part in.
type Scheduler struct {
	presence Presence
	history  History
	auditor  Auditor
	interval time.Duration
	log      *slog.Logger

	pass sync.Mutex
}

func NewScheduler(presence Presence, history History, auditor Auditor, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		presence: presence,
		history:  history,
		auditor:  auditor,
		interval: interval,
		log:      log,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("cleanup scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. A pass that starts while another is still running is
// skipped.
func (s *Scheduler) Sweep(ctx context.Context) Result {
	if !s.pass.TryLock() {
		s.log.Warn("cleanup pass already running, skipping")
		observability.IncCleanupPass("skipped")
		return Result{Skipped: true}
	}
	defer s.pass.Unlock()

	users := s.presence.GetUsers()
	offline := lo.Filter(users, func(u models.UserRecord, _ int) bool {
		return !u.IsOnline
	})
	s.log.Info("cleanup pass starting", "offline_users", len(offline))

	var res Result
	for _, user := range offline {
		if ctx.Err() != nil {
			s.log.Info("cleanup pass interrupted", "remaining", len(offline)-res.UsersRemoved-res.Failures)
			break
		}
		removed, err := s.reclaim(user)
		if err != nil {
			res.Failures++
			s.log.Error("cleanup of user failed", "user_id", user.ID, "error", err)
			continue
		}
		res.UsersRemoved++
		res.ConversationsRemoved += removed
		s.log.Info("cleaned up user", "user_id", user.ID, "display_name", user.DisplayName, "conversations", removed)
	}

	observability.IncCleanupPass("completed")
	observability.AddCleanupRemoved("users", res.UsersRemoved)
	observability.AddCleanupRemoved("conversations", res.ConversationsRemoved)
	observability.SetPresenceUsers(len(users) - res.UsersRemoved)
	s.log.Info("cleanup pass finished", "users_removed", res.UsersRemoved, "conversations_removed", res.ConversationsRemoved, "failures", res.Failures)

	if s.auditor != nil {
		s.auditor.Emit(ctx, "INFO", "offline cleanup finished", "", nil, map[string]any{
			"users_removed":         res.UsersRemoved,
			"conversations_removed": res.ConversationsRemoved,
			"failures":              res.Failures,
		})
	}
	return res
}

func (s *Scheduler) reclaim(user models.UserRecord) (removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while reclaiming %s: %v", user.ID, r)
		}
	}()
	removed = s.history.DeleteConversationsContaining(user.ID)
	s.presence.RemoveUser(user.ID)
	return removed, nil
}
