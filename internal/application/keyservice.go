package application

import (
	"context"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// KeyService connects validation verdicts to per-user key storage: a key is
// only persisted as known good after a valid verdict.
type KeyService struct {
	validator *CredentialValidationService
	store     driven.UserKeyStore
}

// NewKeyService creates a new KeyService with the required dependencies.
func NewKeyService(validator *CredentialValidationService, store driven.UserKeyStore) *KeyService {
	return &KeyService{
		validator: validator,
		store:     store,
	}
}

// SaveKey validates candidate and stores it for userID when valid. An invalid
// verdict is returned with a nil error and leaves any stored key untouched.
func (s *KeyService) SaveKey(ctx context.Context, userID string, provider model.Provider, candidate string) (model.ValidationVerdict, error) {
	verdict, err := s.validator.ValidateFor(ctx, provider, candidate)
	if err != nil {
		return model.ValidationVerdict{}, err
	}
	if !verdict.Valid {
		return verdict, nil
	}

	key := model.UserKey{
		UserID:    userID,
		Provider:  provider,
		Value:     candidate,
		Verdict:   verdict,
		UpdatedAt: verdict.CheckedAt,
	}
	if err := s.store.Save(ctx, key); err != nil {
		return model.ValidationVerdict{}, fmt.Errorf("save key for %q: %w", userID, err)
	}

	slogctx.FromCtx(ctx).Info("user key stored", "user", userID, "provider", provider, "key", key.Hint())
	return verdict, nil
}

// Status returns the stored key for userID, or driven.ErrKeyNotFound.
func (s *KeyService) Status(ctx context.Context, userID string, provider model.Provider) (*model.UserKey, error) {
	key, err := s.store.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, driven.ErrKeyNotFound
	}
	return key, nil
}

// RemoveKey deletes the stored key for userID.
func (s *KeyService) RemoveKey(ctx context.Context, userID string, provider model.Provider) error {
	if err := s.store.Delete(ctx, userID, provider); err != nil {
		return err
	}
	slogctx.FromCtx(ctx).Info("user key removed", "user", userID, "provider", provider)
	return nil
}

// Revalidate probes the stored key again and records the new verdict,
// whatever it is. A key that stops working loses its known-good status here.
func (s *KeyService) Revalidate(ctx context.Context, userID string, provider model.Provider) (model.ValidationVerdict, error) {
	key, err := s.Status(ctx, userID, provider)
	if err != nil {
		return model.ValidationVerdict{}, err
	}

	verdict, err := s.validator.ValidateFor(ctx, provider, key.Value)
	if err != nil {
		return model.ValidationVerdict{}, err
	}

	if err := s.store.UpdateVerdict(ctx, userID, provider, verdict); err != nil {
		return model.ValidationVerdict{}, fmt.Errorf("update verdict for %q: %w", userID, err)
	}
	return verdict, nil
}
