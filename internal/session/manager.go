package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"saku/internal/auth"
	applog "saku/internal/log"
	"saku/internal/models"
)

// UserKey is the slot key holding the logged-in user's id.
const UserKey = "userId"

// Store is the part of the persistent store the session manager needs.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, u models.ProfileUpdate) (*models.User, error)
}

// Manager holds the logged-in user and mirrors its id into a Slot so the
// session survives restarts.
type Manager struct {
	store  Store
	slot   Slot
	logger *applog.Logger

	mu   sync.RWMutex
	user *models.User
}

// NewManager creates a logged-out session manager.
func NewManager(store Store, slot Slot, logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{
		store:  store,
		slot:   slot,
		logger: logger.WithComponent(applog.ComponentSession),
	}
}

// Restore loads the user whose id is in the slot. A missing id leaves the
// manager logged out; an unreadable or stale id is also removed from the slot.
// Only store failures are returned as errors.
func (m *Manager) Restore(ctx context.Context) (models.User, bool, error) {
	raw, ok, err := m.slot.Get(UserKey)
	if err != nil {
		m.logger.WarnContext(ctx, "session slot unreadable",
			applog.FieldOperation, applog.OpRestore,
			applog.FieldError, err)
		m.forget(ctx)
		return models.User{}, false, nil
	}
	if !ok {
		return models.User{}, false, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		m.logger.WarnContext(ctx, "discarding malformed session",
			applog.FieldOperation, applog.OpRestore)
		m.forget(ctx)
		return models.User{}, false, nil
	}

	user, err := m.store.GetUserByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		m.logger.WarnContext(ctx, "discarding session for unknown user",
			applog.FieldOperation, applog.OpRestore,
			applog.FieldUserID, id)
		m.forget(ctx)
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("restore session: %w", err)
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session restored",
		applog.FieldOperation, applog.OpRestore,
		applog.FieldUserID, user.ID)
	return *user, true, nil
}

// Establish makes user the logged-in user and persists its id.
func (m *Manager) Establish(ctx context.Context, user models.User) error {
	if err := m.slot.Set(UserKey, strconv.FormatInt(user.ID, 10)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return nil
}

// Clear logs out. The in-memory user is dropped even if the slot cannot be
// written.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	var id int64
	if m.user != nil {
		id = m.user.ID
	}
	m.user = nil
	m.mu.Unlock()

	if err := m.slot.Delete(UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.InfoContext(ctx, "logged out",
		applog.FieldOperation, applog.OpLogout,
		applog.FieldUserID, id)
	return nil
}

// Current returns the logged-in user, if any.
func (m *Manager) Current() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

// RequireUser returns the logged-in user or ErrNoSession.
func (m *Manager) RequireUser() (models.User, error) {
	user, ok := m.Current()
	if !ok {
		return models.User{}, models.ErrNoSession
	}
	return user, nil
}

// ApplyProfileUpdate validates and persists u for the logged-in user, then
// refreshes the in-memory copy. Nothing changes in memory if the store
// rejects the update.
func (m *Manager) ApplyProfileUpdate(ctx context.Context, u models.ProfileUpdate) (models.User, error) {
	current, err := m.RequireUser()
	if err != nil {
		return models.User{}, err
	}

	if u.Name != nil {
		name, err := auth.ValidateName(*u.Name)
		if err != nil {
			return models.User{}, err
		}
		u.Name = &name
	}
	if u.Email != nil {
		email, err := auth.ValidateEmail(*u.Email)
		if err != nil {
			return models.User{}, err
		}
		u.Email = &email
	}

	updated, err := m.store.UpdateProfile(ctx, current.ID, u)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}

	m.mu.Lock()
	if m.user != nil && m.user.ID == updated.ID {
		m.user = updated
	}
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "profile updated",
		applog.FieldOperation, applog.OpProfile,
		applog.FieldUserID, updated.ID)
	return *updated, nil
}

func (m *Manager) forget(ctx context.Context) {
	if err := m.slot.Delete(UserKey); err != nil {
		m.logger.WarnContext(ctx, "could not clear session slot",
			applog.FieldError, err)
	}
}
