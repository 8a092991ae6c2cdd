package driven

import (
	"context"
	"errors"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by UserKeyStore operations that need the
// plaintext key when KEYGATE_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set KEYGATE_SECRET_KEY")

// ErrKeyNotFound is returned when a user has no stored key for a provider.
var ErrKeyNotFound = errors.New("key not found")

// UserKeyStore defines the driven port for encrypted per-user key persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type UserKeyStore interface {
	// Save stores or replaces the key and its verdict for key.UserID and
	// key.Provider. Returns ErrEncryptionKeyNotSet if the adapter was
	// constructed without an encryption key.
	Save(ctx context.Context, key model.UserKey) error

	// Get retrieves the stored key with its plaintext value.
	// Returns (nil, nil) if no key exists for that user and provider.
	Get(ctx context.Context, userID string, provider model.Provider) (*model.UserKey, error)

	// UpdateVerdict replaces the stored verdict without touching the key.
	// It is a no-op when no key is stored.
	UpdateVerdict(ctx context.Context, userID string, provider model.Provider, verdict model.ValidationVerdict) error

	// HasValidKey reports whether a key is stored whose last verdict was valid.
	// It does not need the encryption key.
	HasValidKey(ctx context.Context, userID string, provider model.Provider) (bool, error)

	// Delete removes the stored key. Returns ErrKeyNotFound if none exists.
	Delete(ctx context.Context, userID string, provider model.Provider) error
}
