package store

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
	"os"
	"path/filepath"
	"strings"
)

const (
	keySize     = 32 // AES-256
	keyFileName = ".secrets.key"
	// encPrefix marks encrypted values in secret_refs.
	encPrefix = "enc:v1:"
)

// SetSecret stores a named secret value encrypted at rest. Tracker proxy
// credentials reference these names rather than carrying raw values.
func (s *Store) SetSecret(ctx context.Context, name, value string) error {
	if s.readOnly {
		return fmt.Errorf("config: set secret: store opened read-only")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("config: set secret: name must not be empty")
	}
	if s.encryptionKey == nil {
		return fmt.Errorf("config: set secret: encryption key unavailable")
	}

	ciphertext, err := encryptValue(s.encryptionKey, value)
	if err != nil {
		return fmt.Errorf("config: encrypt secret %q: %w", name, err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO secret_refs (name, ciphertext)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			ciphertext = excluded.ciphertext,
			updated_at = CURRENT_TIMESTAMP
	`, name, ciphertext); err != nil {
		return fmt.Errorf("config: store secret %q: %w", name, err)
	}
	return nil
}

// Secret resolves a named secret back to its plaintext value.
func (s *Store) Secret(ctx context.Context, name string) (string, error) {
	var ciphertext string
	err := s.db.QueryRowContext(ctx, `
		SELECT ciphertext FROM secret_refs WHERE name = ?
	`, name).Scan(&ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return "", NotFoundError{Entity: "secret", Key: name}
	}
	if err != nil {
		return "", fmt.Errorf("config: load secret %q: %w", name, err)
	}

	if s.encryptionKey == nil {
		return "", fmt.Errorf("config: decrypt secret %q: encryption key unavailable", name)
	}

	value, err := decryptValue(s.encryptionKey, ciphertext)
	if err != nil {
		return "", fmt.Errorf("config: decrypt secret %q: %w", name, err)
	}
	return value, nil
}

// DeleteSecret removes a named secret.
func (s *Store) DeleteSecret(ctx context.Context, name string) error {
	if s.readOnly {
		return fmt.Errorf("config: delete secret: store opened read-only")
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM secret_refs WHERE name = ?
	`, name)
	if err != nil {
		return fmt.Errorf("config: delete secret %q: %w", name, err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return NotFoundError{Entity: "secret", Key: name}
	}
	return nil
}

// SecretNames lists the stored secret names in lexical order.
func (s *Store) SecretNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM secret_refs ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("config: list secrets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("config: scan secret name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("config: iterate secrets: %w", err)
	}
	return names, nil
}

// openEncryptionKey loads (or on first writable open, creates) the AES key
// protecting secret_refs.
//
// Safety invariant: a new key is only created when the DB contains no
// encrypted values. If the key file is missing but encrypted rows already
// exist, Open fails fast so old secrets never become permanently
// undecryptable behind a freshly-generated key.
func openEncryptionKey(ctx context.Context, db *sql.DB, dbPath string, readOnly bool) ([]byte, error) {
	keyPath := filepath.Join(filepath.Dir(dbPath), keyFileName)

	key, err := loadEncryptionKey(keyPath)
	if err != nil {
		if readOnly {
			// A corrupt/unreadable key in read-only mode only makes
			// secrets unreadable; everything else still works.
			return nil, nil
		}
		return nil, err
	}
	if key != nil || readOnly {
		return key, nil
	}

	hasEnc, err := hasEncryptedValues(ctx, db)
	if err != nil {
		return nil, err
	}
	if hasEnc {
		return nil, fmt.Errorf("config: encryption key %s is missing but the database already contains encrypted values; restore the original key file or remove the encrypted rows manually", keyPath)
	}

	return createEncryptionKey(keyPath)
}

// loadEncryptionKey reads an existing encryption key from keyPath.
// Returns nil, nil if the file doesn't exist (key not yet created).
func loadEncryptionKey(keyPath string) ([]byte, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read encryption key: %w", err)
	}
	if len(data) != keySize {
		return nil, fmt.Errorf("config: encryption key at %s has invalid size %d (expected %d)", keyPath, len(data), keySize)
	}
	return data, nil
}

// createEncryptionKey generates a new 32-byte AES key and writes it to
// keyPath using a temp-file + hard-link pattern so concurrent opens race to
// exactly one winning key and the file is never partially written.
func createEncryptionKey(keyPath string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("config: generate encryption key: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(keyPath), keyFileName+".tmp.*")
	if err != nil {
		return nil, fmt.Errorf("config: create encryption key temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(key); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("config: write encryption key temp: %w", err)
	}
	if err := tmpFile.Chmod(0o600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("config: chmod encryption key temp: %w", err)
	}
	tmpFile.Close()

	if err := os.Link(tmpPath, keyPath); err != nil {
		os.Remove(tmpPath)
		if os.IsExist(err) {
			// Another process won the race — read the key it created.
			return loadEncryptionKey(keyPath)
		}
		return nil, fmt.Errorf("config: link encryption key: %w", err)
	}
	os.Remove(tmpPath)

	return key, nil
}

func hasEncryptedValues(ctx context.Context, db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM secret_refs WHERE ciphertext LIKE ?
	`, encPrefix+"%").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("config: check encrypted values: %w", err)
	}
	return count > 0, nil
}

func encryptValue(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func decryptValue(key []byte, ciphertext string) (string, error) {
	encoded, ok := strings.CutPrefix(ciphertext, encPrefix)
	if !ok {
		return "", fmt.Errorf("value is not encrypted")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext shorter than nonce")
	}

	plaintext, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
