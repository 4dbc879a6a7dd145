package store

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// ErrSetupTokenInvalid is returned when a presented setup token does not
// match any active token, has expired, or was already consumed.
var ErrSetupTokenInvalid = errors.New("config: setup token invalid")

// Argon2id parameters for setup token hashes.
const (
	tokenArgonTime    = 1
	tokenArgonMemory  = 64 * 1024
	tokenArgonThreads = 4
	tokenArgonKeyLen  = 32
	tokenSecretLen    = 32
)

// IssueSetupToken creates a single-use provisioning token valid for ttl.
// Issuing a new token invalidates all earlier unconsumed tokens. Only the
// argon2id hash is stored; the returned "id:secret" string is shown once.
func (s *Store) IssueSetupToken(ctx context.Context, issuedBy string, ttl time.Duration) (string, error) {
	if s.readOnly {
		return "", fmt.Errorf("config: issue setup token: store opened read-only")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("config: issue setup token: ttl must be positive")
	}

	secret := make([]byte, tokenSecretLen)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("config: generate setup token: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("config: generate setup token salt: %w", err)
	}

	id := uuid.NewString()
	encodedSecret := base64.RawURLEncoding.EncodeToString(secret)
	hash := hashSetupToken(encodedSecret, salt)
	expiresAt := time.Now().UTC().Add(ttl).Format(time.RFC3339)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM setup_tokens WHERE consumed_at IS NULL
		`); err != nil {
			return fmt.Errorf("config: invalidate prior setup tokens: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO setup_tokens (id, token_hash, issued_by, expires_at)
			VALUES (?, ?, ?, ?)
		`, id, hash, issuedBy, expiresAt); err != nil {
			return fmt.Errorf("config: store setup token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return id + ":" + encodedSecret, nil
}

// ConsumeSetupToken verifies a presented token, marks it consumed and
// transitions the application profile into active mode, all in one
// transaction. Any mismatch reports ErrSetupTokenInvalid without revealing
// which check failed.
func (s *Store) ConsumeSetupToken(ctx context.Context, token string) error {
	if s.readOnly {
		return fmt.Errorf("config: consume setup token: store opened read-only")
	}

	id, secret, ok := strings.Cut(token, ":")
	if !ok || id == "" || secret == "" {
		return ErrSetupTokenInvalid
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			storedHash string
			expiresAt  string
			consumedAt sql.NullString
		)
		err := tx.QueryRowContext(ctx, `
			SELECT token_hash, expires_at, consumed_at
			FROM setup_tokens
			WHERE id = ?
		`, id).Scan(&storedHash, &expiresAt, &consumedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSetupTokenInvalid
		}
		if err != nil {
			return fmt.Errorf("config: load setup token: %w", err)
		}

		if consumedAt.Valid {
			return ErrSetupTokenInvalid
		}

		expiry, err := time.Parse(time.RFC3339, expiresAt)
		if err != nil || time.Now().UTC().After(expiry) {
			return ErrSetupTokenInvalid
		}

		if !verifySetupToken(secret, storedHash) {
			return ErrSetupTokenInvalid
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE setup_tokens
			SET consumed_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, id); err != nil {
			return fmt.Errorf("config: mark setup token consumed: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE app_profile
			SET mode = ?,
			    version = version + 1,
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, AppModeActive, AppProfileID); err != nil {
			return fmt.Errorf("config: activate app profile: %w", err)
		}
		return nil
	})
}

// hashSetupToken derives an argon2id hash in the form
// "argon2id$<salt>$<hash>" with both parts base64url encoded.
func hashSetupToken(secret string, salt []byte) string {
	key := argon2.IDKey([]byte(secret), salt, tokenArgonTime, tokenArgonMemory, tokenArgonThreads, tokenArgonKeyLen)
	return "argon2id$" +
		base64.RawURLEncoding.EncodeToString(salt) + "$" +
		base64.RawURLEncoding.EncodeToString(key)
}

func verifySetupToken(secret, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != "argon2id" {
		return false
	}

	salt, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(secret), salt, tokenArgonTime, tokenArgonMemory, tokenArgonThreads, tokenArgonKeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}
