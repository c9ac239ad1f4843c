package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/crypto"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/repositories"
)

// Names of the durable records holding profile state.
const (
	ProfilesRecord      = "db-profiles"
	ActiveProfileRecord = "active-db-profile"
)

// DefaultProfileTTL is how long persisted profile state stays valid after a write.
const DefaultProfileTTL = 365 * 24 * time.Hour

// URLSealer encrypts connection strings at rest. *crypto.URLSealer implements it.
type URLSealer interface {
	Seal(plaintext, boundTo string) (string, error)
	Open(value, boundTo string) (string, error)
}

// ProfileStore is the ordered collection of saved connection profiles with at
// most one active selection. Every mutation is persisted before it returns.
// A persistence error is returned but the in-memory change is kept.
type ProfileStore interface {
	// AddProfile creates a profile; the first profile becomes active.
	AddProfile(ctx context.Context, in models.NewProfile) (*models.DatabaseProfile, error)

	// UpdateProfile applies the supplied fields. Unknown id: apperrors.ErrNotFound.
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.DatabaseProfile, error)

	// DeleteProfile removes a profile, moving activity to the first remaining one.
	DeleteProfile(ctx context.Context, id string) error

	// SetActiveProfile selects an existing profile. Unknown id: apperrors.ErrNotFound.
	SetActiveProfile(ctx context.Context, id string) error

	// RecordTestResult stores the outcome of a connectivity check on a profile.
	RecordTestResult(ctx context.Context, id string, connected bool, at time.Time) (*models.DatabaseProfile, error)

	// Refresh re-reads persisted state so changes written by another process
	// sharing the state file become visible.
	Refresh(ctx context.Context) error

	// Profile returns the profile with id, or apperrors.ErrNotFound.
	Profile(id string) (*models.DatabaseProfile, error)

	Profiles() []models.DatabaseProfile
	ActiveProfile() *models.DatabaseProfile
	ActiveProfileID() string
	HasProfiles() bool
}

// profileStore implements ProfileStore on a StateRepository.
type profileStore struct {
	mu       sync.Mutex
	profiles []models.DatabaseProfile
	activeID string
	// dirty is set while the last change failed to persist; memory is ahead
	// of the repository and must not be replaced by a reload.
	dirty bool

	repo   repositories.StateRepository
	sealer URLSealer // nil stores URLs in plaintext
	ttl    time.Duration
	newID  func() (uuid.UUID, error)
	logger *zap.Logger
}

// NewProfileStore creates a profile store and rehydrates it from repo.
// A nil sealer disables URL encryption. ttl <= 0 uses DefaultProfileTTL.
func NewProfileStore(
	ctx context.Context,
	repo repositories.StateRepository,
	sealer URLSealer,
	ttl time.Duration,
	logger *zap.Logger,
) (ProfileStore, error) {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	s := &profileStore{
		repo:   repo,
		sealer: sealer,
		ttl:    ttl,
		newID:  uuid.NewV7,
		logger: logger.Named("profiles"),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads both records. Missing or expired records mean an empty store.
func (s *profileStore) load(ctx context.Context) error {
	raw, err := s.repo.Load(ctx, ProfilesRecord)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		raw = ""
	case err != nil:
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	var profiles []models.DatabaseProfile
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &profiles); err != nil {
			s.logger.Warn("Discarding unreadable profile state", zap.Error(err))
			profiles = nil
		}
	}

	for i := range profiles {
		opened, err := s.openURL(profiles[i])
		if err != nil {
			return err
		}
		profiles[i].DatabaseURL = opened
	}

	activeID, err := s.repo.Load(ctx, ActiveProfileRecord)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		activeID = ""
	case err != nil:
		return fmt.Errorf("failed to load active profile: %w", err)
	}

	s.profiles = profiles
	s.activeID = ""
	if s.indexOf(activeID) >= 0 {
		s.activeID = activeID
	}

	s.logger.Debug("Loaded profiles", zap.Int("count", len(s.profiles)), zap.Bool("has_active", s.activeID != ""))
	return nil
}

func (s *profileStore) openURL(p models.DatabaseProfile) (string, error) {
	if !crypto.IsSealed(p.DatabaseURL) {
		return p.DatabaseURL, nil
	}
	if s.sealer == nil {
		return "", fmt.Errorf("%w: profile %s is encrypted but no PROFILE_CREDENTIALS_KEY is set",
			apperrors.ErrCredentialsKeyMismatch, p.ID)
	}
	opened, err := s.sealer.Open(p.DatabaseURL, p.ID)
	if err != nil {
		return "", fmt.Errorf("%w: profile %s: %v", apperrors.ErrCredentialsKeyMismatch, p.ID, err)
	}
	return opened, nil
}

// persist writes both records. Callers hold s.mu.
func (s *profileStore) persist(ctx context.Context) error {
	stored := make([]models.DatabaseProfile, len(s.profiles))
	for i, p := range s.profiles {
		stored[i] = p.Clone()
		if s.sealer != nil {
			sealed, err := s.sealer.Seal(p.DatabaseURL, p.ID)
			if err != nil {
				return fmt.Errorf("failed to encrypt profile %s: %w", p.ID, err)
			}
			stored[i].DatabaseURL = sealed
		}
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := s.repo.Save(ctx, ProfilesRecord, string(raw), s.ttl); err != nil {
		return fmt.Errorf("failed to persist profiles: %w", err)
	}
	if err := s.repo.Save(ctx, ActiveProfileRecord, s.activeID, s.ttl); err != nil {
		return fmt.Errorf("failed to persist active profile: %w", err)
	}
	return nil
}

// persistLogged persists and logs failures; the error is still returned.
func (s *profileStore) persistLogged(ctx context.Context, op string) error {
	if err := s.persist(ctx); err != nil {
		s.dirty = true
		s.logger.Error("Profile change kept in memory but not persisted", zap.String("op", op), zap.Error(err))
		return err
	}
	s.dirty = false
	return nil
}

// sync reloads persisted state before a mutation so the write that follows
// starts from what other processes saved. Callers hold s.mu.
func (s *profileStore) sync(ctx context.Context) error {
	if s.dirty {
		return nil
	}
	return s.load(ctx)
}

func (s *profileStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx)
}

func (s *profileStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			return i
		}
	}
	return -1
}

// inferType maps a connection string onto the profile type vocabulary.
func inferType(databaseURL string) string {
	return datasource.Classify(databaseURL).ProfileType()
}

func (s *profileStore) AddProfile(ctx context.Context, in models.NewProfile) (*models.DatabaseProfile, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile id: %w", err)
	}

	p := models.DatabaseProfile{
		ID:          id.String(),
		Name:        in.Name,
		DatabaseURL: in.DatabaseURL,
		Type:        in.Type,
	}
	if p.Type == "" {
		p.Type = inferType(p.DatabaseURL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	s.profiles = append(s.profiles, p)
	if len(s.profiles) == 1 {
		s.activeID = p.ID
	}

	s.logger.Info("Added profile", zap.String("id", p.ID), zap.String("type", p.Type))

	created := p.Clone()
	return &created, s.persistLogged(ctx, "add")
}

func (s *profileStore) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.DatabaseProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("profile %s: %w", id, apperrors.ErrNotFound)
	}

	p := &s.profiles[i]
	urlChanged := update.DatabaseURL != nil && *update.DatabaseURL != p.DatabaseURL
	update.Apply(p)
	if urlChanged && update.Type == nil {
		p.Type = inferType(p.DatabaseURL)
	}

	updated := p.Clone()
	return &updated, s.persistLogged(ctx, "update")
}

func (s *profileStore) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync(ctx); err != nil {
		return err
	}
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("profile %s: %w", id, apperrors.ErrNotFound)
	}

	s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
	if s.activeID == id {
		s.activeID = ""
		if len(s.profiles) > 0 {
			s.activeID = s.profiles[0].ID
		}
	}

	s.logger.Info("Deleted profile", zap.String("id", id))
	return s.persistLogged(ctx, "delete")
}

func (s *profileStore) SetActiveProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sync(ctx); err != nil {
		return err
	}
	if s.indexOf(id) < 0 {
		return fmt.Errorf("profile %s: %w", id, apperrors.ErrNotFound)
	}
	s.activeID = id
	return s.persistLogged(ctx, "set_active")
}

func (s *profileStore) RecordTestResult(ctx context.Context, id string, connected bool, at time.Time) (*models.DatabaseProfile, error) {
	return s.UpdateProfile(ctx, id, models.ProfileUpdate{
		LastTested:  &at,
		IsConnected: &connected,
	})
}

func (s *profileStore) Profile(id string) (*models.DatabaseProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("profile %s: %w", id, apperrors.ErrNotFound)
	}
	p := s.profiles[i].Clone()
	return &p, nil
}

func (s *profileStore) Profiles() []models.DatabaseProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.DatabaseProfile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.Clone()
	}
	return out
}

func (s *profileStore) ActiveProfile() *models.DatabaseProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(s.activeID)
	if i < 0 {
		return nil
	}
	p := s.profiles[i].Clone()
	return &p
}

func (s *profileStore) ActiveProfileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *profileStore) HasProfiles() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles) > 0
}

// Ensure profileStore implements ProfileStore at compile time.
var _ ProfileStore = (*profileStore)(nil)

// Ensure the crypto sealer satisfies URLSealer at compile time.
var _ URLSealer = (*crypto.URLSealer)(nil)
