package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/crypto"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/database"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/repositories"
)

// Test encryption key (32 bytes, base64 encoded) - same as crypto/sealer_test.go
const testEncryptionKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM="

// failingStateRepository fails every Save.
type failingStateRepository struct {
	repositories.StateRepository
}

func (f *failingStateRepository) Save(ctx context.Context, name, value string, ttl time.Duration) error {
	return errors.New("disk full")
}

// recordingStateRepository captures the ttl of each Save.
type recordingStateRepository struct {
	repositories.StateRepository
	ttls []time.Duration
}

func (r *recordingStateRepository) Save(ctx context.Context, name, value string, ttl time.Duration) error {
	r.ttls = append(r.ttls, ttl)
	return r.StateRepository.Save(ctx, name, value, ttl)
}

func newTestStore(t *testing.T, repo repositories.StateRepository) ProfileStore {
	t.Helper()
	if repo == nil {
		repo = repositories.NewMemoryStateRepository()
	}
	store, err := NewProfileStore(context.Background(), repo, nil, 0, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestProfileStore_Empty(t *testing.T) {
	store := newTestStore(t, nil)

	assert.False(t, store.HasProfiles())
	assert.Empty(t, store.Profiles())
	assert.Nil(t, store.ActiveProfile())
	assert.Empty(t, store.ActiveProfileID())
}

func TestProfileStore_AddInfersTypeAndActivatesFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	first, err := store.AddProfile(ctx, models.NewProfile{Name: "Local", DatabaseURL: "postgres://localhost/app"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "postgresql", first.Type)
	assert.Nil(t, first.LastTested)
	assert.Nil(t, first.IsConnected)
	assert.Equal(t, first.ID, store.ActiveProfileID())

	second, err := store.AddProfile(ctx, models.NewProfile{Name: "Bot", DatabaseURL: "mongodb+srv://cluster0.example.net/bot"})
	require.NoError(t, err)
	assert.Equal(t, "mongodb", second.Type)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.ID, store.ActiveProfileID(), "adding a second profile keeps the active one")

	other, err := store.AddProfile(ctx, models.NewProfile{Name: "MSSQL", DatabaseURL: "sqlserver://localhost"})
	require.NoError(t, err)
	assert.Equal(t, "other", other.Type)

	explicit, err := store.AddProfile(ctx, models.NewProfile{Name: "Typed", DatabaseURL: "postgres://x", Type: "mysql"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", explicit.Type)

	profiles := store.Profiles()
	require.Len(t, profiles, 4)
	assert.Equal(t, []string{"Local", "Bot", "MSSQL", "Typed"},
		[]string{profiles[0].Name, profiles[1].Name, profiles[2].Name, profiles[3].Name})
}

func TestProfileStore_UniqueIDsWithinSameMillisecond(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p, err := store.AddProfile(ctx, models.NewProfile{Name: "p", DatabaseURL: "mysql://localhost/db"})
		require.NoError(t, err)
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestProfileStore_Update(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	p, err := store.AddProfile(ctx, models.NewProfile{Name: "Local", DatabaseURL: "postgres://localhost/app"})
	require.NoError(t, err)

	name := "Renamed"
	updated, err := store.UpdateProfile(ctx, p.ID, models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "postgres://localhost/app", updated.DatabaseURL)
	assert.Equal(t, "postgresql", updated.Type)

	// A new URL without an explicit type re-infers the type.
	newURL := "mysql://root@localhost/shop"
	updated, err = store.UpdateProfile(ctx, p.ID, models.ProfileUpdate{DatabaseURL: &newURL})
	require.NoError(t, err)
	assert.Equal(t, "mysql", updated.Type)

	// An explicit type wins.
	otherURL := "mongodb://localhost/bot"
	typ := "other"
	updated, err = store.UpdateProfile(ctx, p.ID, models.ProfileUpdate{DatabaseURL: &otherURL, Type: &typ})
	require.NoError(t, err)
	assert.Equal(t, "other", updated.Type)

	assert.Equal(t, "Renamed", store.Profiles()[0].Name)
}

func TestProfileStore_UpdateUnknownID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	p, err := store.AddProfile(ctx, models.NewProfile{Name: "Local", DatabaseURL: "postgres://localhost/app"})
	require.NoError(t, err)

	name := "x"
	_, err = store.UpdateProfile(ctx, "missing", models.ProfileUpdate{Name: &name})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	got, err := store.Profile(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local", got.Name)
}

func TestProfileStore_DeleteActiveFallsBackToFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)

	a, _ := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})
	b, _ := store.AddProfile(ctx, models.NewProfile{Name: "B", DatabaseURL: "postgres://b"})
	c, _ := store.AddProfile(ctx, models.NewProfile{Name: "C", DatabaseURL: "postgres://c"})

	require.NoError(t, store.SetActiveProfile(ctx, b.ID))
	require.NoError(t, store.DeleteProfile(ctx, b.ID))
	assert.Equal(t, a.ID, store.ActiveProfileID())

	// Deleting a non-active profile keeps the selection.
	require.NoError(t, store.DeleteProfile(ctx, c.ID))
	assert.Equal(t, a.ID, store.ActiveProfileID())

	require.NoError(t, store.DeleteProfile(ctx, a.ID))
	assert.Empty(t, store.ActiveProfileID())
	assert.Nil(t, store.ActiveProfile())
	assert.False(t, store.HasProfiles())
}

func TestProfileStore_DeleteUnknownID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	a, _ := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})

	err := store.DeleteProfile(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Len(t, store.Profiles(), 1)
	assert.Equal(t, a.ID, store.ActiveProfileID())
}

func TestProfileStore_SetActiveUnknownID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	a, _ := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})

	err := store.SetActiveProfile(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, a.ID, store.ActiveProfileID())
}

func TestProfileStore_RecordTestResult(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	p, _ := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})

	at := time.Date(2025, 11, 7, 10, 0, 0, 0, time.UTC)
	updated, err := store.RecordTestResult(ctx, p.ID, true, at)
	require.NoError(t, err)
	require.NotNil(t, updated.LastTested)
	require.NotNil(t, updated.IsConnected)
	assert.True(t, updated.LastTested.Equal(at))
	assert.True(t, *updated.IsConnected)

	_, err = store.RecordTestResult(ctx, "missing", false, at)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfileStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, nil)
	p, _ := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})

	p.Name = "mutated"
	store.Profiles()[0].Name = "mutated"
	store.ActiveProfile().Name = "mutated"

	assert.Equal(t, "A", store.Profiles()[0].Name)
}

func TestProfileStore_PersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStateRepository()
	store := newTestStore(t, repo)

	a, _ := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})
	b, _ := store.AddProfile(ctx, models.NewProfile{Name: "B", DatabaseURL: "mysql://b"})
	_, _ = store.AddProfile(ctx, models.NewProfile{Name: "C", DatabaseURL: "mongodb://c"})
	require.NoError(t, store.SetActiveProfile(ctx, b.ID))
	_, err := store.RecordTestResult(ctx, a.ID, false, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	reloaded := newTestStore(t, repo)
	assert.Equal(t, store.Profiles(), reloaded.Profiles())
	assert.Equal(t, b.ID, reloaded.ActiveProfileID())
}

func TestProfileStore_PersistsWithTTL(t *testing.T) {
	ctx := context.Background()
	repo := &recordingStateRepository{StateRepository: repositories.NewMemoryStateRepository()}
	store := newTestStore(t, repo)

	_, err := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})
	require.NoError(t, err)

	require.Len(t, repo.ttls, 2)
	for _, ttl := range repo.ttls {
		assert.Equal(t, DefaultProfileTTL, ttl)
	}
}

func TestProfileStore_ActiveIDReferencingMissingProfileIsCleared(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStateRepository()
	require.NoError(t, repo.Save(ctx, ProfilesRecord, `[{"id":"a","name":"A","databaseUrl":"postgres://a","type":"postgresql"}]`, time.Hour))
	require.NoError(t, repo.Save(ctx, ActiveProfileRecord, "gone", time.Hour))

	store := newTestStore(t, repo)
	assert.Len(t, store.Profiles(), 1)
	assert.Empty(t, store.ActiveProfileID())
}

func TestProfileStore_UnreadableStateStartsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStateRepository()
	require.NoError(t, repo.Save(ctx, ProfilesRecord, `{not json`, time.Hour))

	core, logs := observer.New(zap.WarnLevel)
	store, err := NewProfileStore(ctx, repo, nil, 0, zap.New(core))
	require.NoError(t, err)

	assert.False(t, store.HasProfiles())
	assert.Equal(t, 1, logs.FilterMessage("Discarding unreadable profile state").Len())
}

func TestProfileStore_PersistFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	repo := &failingStateRepository{StateRepository: repositories.NewMemoryStateRepository()}

	core, logs := observer.New(zap.ErrorLevel)
	store, err := NewProfileStore(ctx, repo, nil, 0, zap.New(core))
	require.NoError(t, err)

	p, err := store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, p)

	assert.True(t, store.HasProfiles())
	assert.Equal(t, p.ID, store.ActiveProfileID())
	assert.Equal(t, 1, logs.Len())
}

func TestProfileStore_EncryptsURLs(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStateRepository()
	sealer, err := crypto.NewURLSealer(testEncryptionKey)
	require.NoError(t, err)

	store, err := NewProfileStore(ctx, repo, sealer, 0, zap.NewNop())
	require.NoError(t, err)
	p, err := store.AddProfile(ctx, models.NewProfile{Name: "Prod", DatabaseURL: "postgres://admin:hunter2@db/app"})
	require.NoError(t, err)

	raw, err := repo.Load(ctx, ProfilesRecord)
	require.NoError(t, err)
	assert.NotContains(t, raw, "hunter2")
	assert.True(t, strings.Contains(raw, p.ID))

	reloaded, err := NewProfileStore(ctx, repo, sealer, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "postgres://admin:hunter2@db/app", reloaded.Profiles()[0].DatabaseURL)
}

func TestProfileStore_WrongKey(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStateRepository()
	sealer, err := crypto.NewURLSealer(testEncryptionKey)
	require.NoError(t, err)

	store, err := NewProfileStore(ctx, repo, sealer, 0, zap.NewNop())
	require.NoError(t, err)
	_, err = store.AddProfile(ctx, models.NewProfile{Name: "Prod", DatabaseURL: "postgres://admin:hunter2@db/app"})
	require.NoError(t, err)

	otherSealer, err := crypto.NewURLSealer("a-different-key")
	require.NoError(t, err)
	_, err = NewProfileStore(ctx, repo, otherSealer, 0, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrCredentialsKeyMismatch)

	_, err = NewProfileStore(ctx, repo, nil, 0, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrCredentialsKeyMismatch)
}

func TestProfileStore_PlaintextStateLoadsWithKey(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStateRepository()

	plain := newTestStore(t, repo)
	_, err := plain.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "mysql://root@localhost/shop"})
	require.NoError(t, err)

	sealer, err := crypto.NewURLSealer(testEncryptionKey)
	require.NoError(t, err)
	store, err := NewProfileStore(ctx, repo, sealer, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "mysql://root@localhost/shop", store.Profiles()[0].DatabaseURL)
}

func openSharedStateFile(t *testing.T, path string) repositories.StateRepository {
	t.Helper()
	db, err := database.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, zap.NewNop()))
	return repositories.NewStateRepository(db)
}

func TestProfileStore_TwoProcessesShareStateFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	server, err := NewProfileStore(ctx, openSharedStateFile(t, path), nil, 0, zap.NewNop())
	require.NoError(t, err)
	cli, err := NewProfileStore(ctx, openSharedStateFile(t, path), nil, 0, zap.NewNop())
	require.NoError(t, err)

	fromCLI, err := cli.AddProfile(ctx, models.NewProfile{Name: "from-cli", DatabaseURL: "postgres://cli/app"})
	require.NoError(t, err)
	fromServer, err := server.AddProfile(ctx, models.NewProfile{Name: "from-server", DatabaseURL: "mysql://server/shop"})
	require.NoError(t, err)

	// The server's write started from the CLI's profile, so it is not lost.
	assert.Equal(t, fromCLI.ID, server.ActiveProfileID())
	require.NoError(t, cli.SetActiveProfile(ctx, fromServer.ID))
	require.NoError(t, server.Refresh(ctx))
	assert.Equal(t, fromServer.ID, server.ActiveProfileID())

	reloaded, err := NewProfileStore(ctx, openSharedStateFile(t, path), nil, 0, zap.NewNop())
	require.NoError(t, err)
	var names []string
	for _, p := range reloaded.Profiles() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"from-cli", "from-server"}, names)
	assert.Equal(t, fromServer.ID, reloaded.ActiveProfileID())
}

func TestProfileStore_UpdateSeesProfileAddedElsewhere(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStateRepository()
	a := newTestStore(t, repo)
	b := newTestStore(t, repo)

	p, err := a.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})
	require.NoError(t, err)

	name := "A (renamed)"
	updated, err := b.UpdateProfile(ctx, p.ID, models.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	require.NoError(t, a.Refresh(ctx))
	got, err := a.Profile(p.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
}

func TestProfileStore_RefreshKeepsUnpersistedChange(t *testing.T) {
	ctx := context.Background()
	repo := &failingStateRepository{StateRepository: repositories.NewMemoryStateRepository()}
	store, err := NewProfileStore(ctx, repo, nil, 0, zap.NewNop())
	require.NoError(t, err)

	_, err = store.AddProfile(ctx, models.NewProfile{Name: "A", DatabaseURL: "postgres://a"})
	require.Error(t, err)

	require.NoError(t, store.Refresh(ctx))
	assert.True(t, store.HasProfiles())
}
