package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"saku/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeStore struct {
	mu    sync.Mutex
	users map[int64]models.User
	err   error
}

func newFakeStore(users ...models.User) *fakeStore {
	s := &fakeStore{users: make(map[int64]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, id int64, p models.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if p.Email != nil {
		for _, other := range s.users {
			if other.ID != id && other.Email == *p.Email {
				return nil, models.ErrDuplicateEmail
			}
		}
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	switch {
	case p.ClearPhoto:
		u.PhotoURI = nil
	case p.PhotoURI != nil:
		photo := *p.PhotoURI
		u.PhotoURI = &photo
	}
	s.users[id] = u
	return &u, nil
}

func strPtr(s string) *string { return &s }

var (
	alice = models.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	bob   = models.User{ID: 2, Name: "Bob", Email: "bob@example.com"}
)

// ManagerTestSuite covers the session lifecycle.
type ManagerTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *fakeStore
	slot  *MemorySlot
	mgr   *Manager
}

// SetupTest runs before each test
func (suite *ManagerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = newFakeStore(alice, bob)
	suite.slot = NewMemorySlot()
	suite.mgr = NewManager(suite.store, suite.slot, nil)
}

func (suite *ManagerTestSuite) TestRestoreWithoutSession() {
	_, ok, err := suite.mgr.Restore(suite.ctx)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	_, err = suite.mgr.RequireUser()
	assert.ErrorIs(suite.T(), err, models.ErrNoSession)
}

func (suite *ManagerTestSuite) TestEstablishPersistsAcrossRestarts() {
	require.NoError(suite.T(), suite.mgr.Establish(suite.ctx, alice))

	stored, ok, err := suite.slot.Get(UserKey)
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "1", stored)

	restarted := NewManager(suite.store, suite.slot, nil)
	user, ok, err := restarted.Restore(suite.ctx)
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "Alice", user.Name)

	current, err := restarted.RequireUser()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), alice.ID, current.ID)
}

func (suite *ManagerTestSuite) TestRestoreDiscardsGarbledAndStaleIDs() {
	for _, raw := range []string{"abc", "-4", "99"} {
		require.NoError(suite.T(), suite.slot.Set(UserKey, raw))

		_, ok, err := suite.mgr.Restore(suite.ctx)
		require.NoError(suite.T(), err, "slot value %q", raw)
		assert.False(suite.T(), ok, "slot value %q", raw)

		_, present, _ := suite.slot.Get(UserKey)
		assert.False(suite.T(), present, "slot value %q should be removed", raw)
	}
}

func (suite *ManagerTestSuite) TestRestoreSurfacesStoreFailure() {
	require.NoError(suite.T(), suite.slot.Set(UserKey, "1"))
	suite.store.err = models.ErrStoreUnavailable

	_, ok, err := suite.mgr.Restore(suite.ctx)
	assert.ErrorIs(suite.T(), err, models.ErrStoreUnavailable)
	assert.False(suite.T(), ok)

	_, present, _ := suite.slot.Get(UserKey)
	assert.True(suite.T(), present, "a store outage must not log the user out")
}

func (suite *ManagerTestSuite) TestClear() {
	require.NoError(suite.T(), suite.mgr.Establish(suite.ctx, alice))
	require.NoError(suite.T(), suite.mgr.Clear(suite.ctx))

	_, ok := suite.mgr.Current()
	assert.False(suite.T(), ok)
	_, present, _ := suite.slot.Get(UserKey)
	assert.False(suite.T(), present)
}

func (suite *ManagerTestSuite) TestApplyProfileUpdate() {
	require.NoError(suite.T(), suite.mgr.Establish(suite.ctx, alice))

	updated, err := suite.mgr.ApplyProfileUpdate(suite.ctx, models.ProfileUpdate{
		Name:     strPtr("  Alice L. "),
		PhotoURI: strPtr("content://media/42"),
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice L.", updated.Name)

	current, _ := suite.mgr.Current()
	assert.Equal(suite.T(), "Alice L.", current.Name)
	require.NotNil(suite.T(), current.PhotoURI)
	assert.Equal(suite.T(), "content://media/42", *current.PhotoURI)
	assert.Equal(suite.T(), "alice@example.com", current.Email)
}

func (suite *ManagerTestSuite) TestApplyProfileUpdateDuplicateEmailKeepsMemory() {
	require.NoError(suite.T(), suite.mgr.Establish(suite.ctx, alice))

	_, err := suite.mgr.ApplyProfileUpdate(suite.ctx, models.ProfileUpdate{Email: strPtr("bob@example.com")})
	assert.ErrorIs(suite.T(), err, models.ErrDuplicateEmail)

	current, _ := suite.mgr.Current()
	assert.Equal(suite.T(), "alice@example.com", current.Email)
}

func (suite *ManagerTestSuite) TestApplyProfileUpdateValidates() {
	require.NoError(suite.T(), suite.mgr.Establish(suite.ctx, alice))

	_, err := suite.mgr.ApplyProfileUpdate(suite.ctx, models.ProfileUpdate{Name: strPtr("   ")})
	assert.ErrorIs(suite.T(), err, models.ErrValidation)
	_, err = suite.mgr.ApplyProfileUpdate(suite.ctx, models.ProfileUpdate{Email: strPtr("nope")})
	assert.ErrorIs(suite.T(), err, models.ErrValidation)
}

func (suite *ManagerTestSuite) TestApplyProfileUpdateRequiresSession() {
	_, err := suite.mgr.ApplyProfileUpdate(suite.ctx, models.ProfileUpdate{Name: strPtr("X")})
	assert.ErrorIs(suite.T(), err, models.ErrNoSession)
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func TestFileSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	slot := NewFileSlot(path)

	_, ok, err := slot.Get(UserKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slot.Set(UserKey, "7"))
	require.NoError(t, slot.Set("theme", "dark"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := NewFileSlot(path)
	v, ok, err := reopened.Get(UserKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	require.NoError(t, reopened.Delete(UserKey))
	_, ok, err = slot.Get(UserKey)
	require.NoError(t, err)
	assert.False(t, ok)
	v, _, _ = slot.Get("theme")
	assert.Equal(t, "dark", v)
}

func TestMemorySlotZeroValue(t *testing.T) {
	var slot MemorySlot
	_, ok, err := slot.Get(UserKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slot.Set(UserKey, "7"))
	v, ok, err := slot.Get(UserKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", v)
	require.NoError(t, slot.Delete(UserKey))
}

func TestFileSlotCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	slot := NewFileSlot(path)
	_, _, err := slot.Get(UserKey)
	assert.Error(t, err)

	mgr := NewManager(newFakeStore(alice), slot, nil)
	_, ok, err := mgr.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// The unreadable file was replaced.
	_, _, err = slot.Get(UserKey)
	assert.NoError(t, err)
}

type failingSlot struct{ *MemorySlot }

func (f *failingSlot) Set(string, string) error { return errors.New("disk full") }

func TestEstablishFailureLeavesLoggedOut(t *testing.T) {
	mgr := NewManager(newFakeStore(alice), &failingSlot{MemorySlot: NewMemorySlot()}, nil)
	err := mgr.Establish(context.Background(), alice)
	assert.Error(t, err)

	_, ok := mgr.Current()
	assert.False(t, ok)
}
