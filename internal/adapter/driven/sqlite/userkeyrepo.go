package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserKeyStore = (*UserKeyRepo)(nil)

// UserKeyRepo is the SQLite implementation of the UserKeyStore port interface.
// Key values are encrypted with AES-256-GCM before write and decrypted after read.
// The user and provider are bound as additional data, so a ciphertext copied
// to another row fails to decrypt.
type UserKeyRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewUserKeyRepo creates a new UserKeyRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable key storage (operations needing plaintext return
// driven.ErrEncryptionKeyNotSet; HasValidKey and Delete still work).
func NewUserKeyRepo(db *DB, key []byte) *UserKeyRepo {
	return &UserKeyRepo{db: db, key: key}
}

// Save stores or replaces the key and verdict for key.UserID and key.Provider.
func (r *UserKeyRepo) Save(ctx context.Context, key model.UserKey) error {
	encrypted, err := r.encrypt(key.Value, aad(key.UserID, key.Provider))
	if err != nil {
		return err
	}

	const query = `INSERT INTO user_keys (user_id, provider, value, valid, reason, outcome, checked_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			value = excluded.value,
			valid = excluded.valid,
			reason = excluded.reason,
			outcome = excluded.outcome,
			checked_at = excluded.checked_at,
			updated_at = excluded.updated_at`
	_, err = r.db.Writer.ExecContext(ctx, query,
		key.UserID,
		string(key.Provider),
		encrypted,
		boolToInt(key.Verdict.Valid),
		string(key.Verdict.Reason),
		string(key.Verdict.Outcome),
		formatTime(key.Verdict.CheckedAt),
		formatTime(key.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save key %s/%s: %w", key.UserID, key.Provider, err)
	}
	return nil
}

// Get retrieves the stored key with its decrypted value.
// Returns (nil, nil) if no key exists for that user and provider.
func (r *UserKeyRepo) Get(ctx context.Context, userID string, provider model.Provider) (*model.UserKey, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value, valid, reason, outcome, checked_at, updated_at
		FROM user_keys WHERE user_id = ? AND provider = ?`

	var (
		encrypted, reason, outcome string
		checkedAt, updatedAt       string
		valid                      int
	)
	err := r.db.Reader.QueryRowContext(ctx, query, userID, string(provider)).
		Scan(&encrypted, &valid, &reason, &outcome, &checkedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get key %s/%s: %w", userID, provider, err)
	}

	plaintext, err := r.decrypt(encrypted, aad(userID, provider))
	if err != nil {
		return nil, fmt.Errorf("decrypt key %s/%s: %w", userID, provider, err)
	}

	key := &model.UserKey{
		UserID:   userID,
		Provider: provider,
		Value:    plaintext,
		Verdict: model.ValidationVerdict{
			Valid:   valid == 1,
			Reason:  model.ValidationReason(reason),
			Outcome: model.VerdictOutcome(outcome),
		},
	}
	if key.Verdict.CheckedAt, err = parseTime(checkedAt); err != nil {
		return nil, fmt.Errorf("parse checked_at for %s/%s: %w", userID, provider, err)
	}
	if key.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for %s/%s: %w", userID, provider, err)
	}

	return key, nil
}

// UpdateVerdict replaces the stored verdict without re-encrypting the key.
func (r *UserKeyRepo) UpdateVerdict(ctx context.Context, userID string, provider model.Provider, verdict model.ValidationVerdict) error {
	const query = `UPDATE user_keys SET valid = ?, reason = ?, outcome = ?, checked_at = ?
		WHERE user_id = ? AND provider = ?`
	_, err := r.db.Writer.ExecContext(ctx, query,
		boolToInt(verdict.Valid),
		string(verdict.Reason),
		string(verdict.Outcome),
		formatTime(verdict.CheckedAt),
		userID,
		string(provider),
	)
	if err != nil {
		return fmt.Errorf("update verdict %s/%s: %w", userID, provider, err)
	}
	return nil
}

// HasValidKey reports whether the stored key's last verdict was valid.
func (r *UserKeyRepo) HasValidKey(ctx context.Context, userID string, provider model.Provider) (bool, error) {
	const query = `SELECT valid FROM user_keys WHERE user_id = ? AND provider = ?`
	var valid int
	err := r.db.Reader.QueryRowContext(ctx, query, userID, string(provider)).Scan(&valid)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check key %s/%s: %w", userID, provider, err)
	}
	return valid == 1, nil
}

// Delete removes the stored key. Returns driven.ErrKeyNotFound if none exists.
func (r *UserKeyRepo) Delete(ctx context.Context, userID string, provider model.Provider) error {
	const query = `DELETE FROM user_keys WHERE user_id = ? AND provider = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, userID, string(provider))
	if err != nil {
		return fmt.Errorf("delete key %s/%s: %w", userID, provider, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete key %s/%s: %w", userID, provider, err)
	}
	if n == 0 {
		return driven.ErrKeyNotFound
	}
	return nil
}

func aad(userID string, provider model.Provider) []byte {
	return []byte(userID + "\x00" + string(provider))
}

func (r *UserKeyRepo) newGCM() (cipher.AEAD, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

// encrypt returns base64(nonce || ciphertext || tag).
func (r *UserKeyRepo) encrypt(plaintext string, additional []byte) (string, error) {
	gcm, err := r.newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), additional)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (r *UserKeyRepo) decrypt(encoded string, additional []byte) (string, error) {
	gcm, err := r.newGCM()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
