package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/hhsynth/internal/model"
)

const apiKeyScheme = "hhs"

type APIKeyStore struct {
	db *sql.DB
}

func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

func scanAPIKey(scanner interface{ Scan(...any) error }) (*model.APIKey, error) {
	var k model.APIKey
	var lastUsed, revoked sql.NullTime
	if err := scanner.Scan(&k.ID, &k.Name, &k.Prefix, &k.CreatedAt, &lastUsed, &revoked); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		k.LastUsedAt = &lastUsed.Time
	}
	if revoked.Valid {
		k.RevokedAt = &revoked.Time
	}
	return &k, nil
}

const apiKeyCols = `id, name, prefix, created_at, last_used_at, revoked_at`

// generateAPIKey returns a key of the form hhs_<prefix>_<secret> and its prefix.
func generateAPIKey() (key, prefix string, err error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	h := hex.EncodeToString(b)
	prefix = h[:8]
	return fmt.Sprintf("%s_%s_%s", apiKeyScheme, prefix, h[8:]), prefix, nil
}

// splitAPIKey extracts the lookup prefix from a presented key.
func splitAPIKey(key string) (string, bool) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 || parts[0] != apiKeyScheme || len(parts[1]) != 8 || parts[2] == "" {
		return "", false
	}
	return parts[1], true
}

// Create stores a new key and returns it with the plaintext, which is not
// recoverable afterwards.
func (s *APIKeyStore) Create(name string) (*model.APIKey, string, error) {
	key, prefix, err := generateAPIKey()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash api key: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO api_keys (name, prefix, key_hash) VALUES (?, ?, ?)`,
		name, prefix, string(hash),
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, "", fmt.Errorf("last insert id: %w", err)
	}
	k, err := s.GetByID(id)
	if err != nil {
		return nil, "", err
	}
	return k, key, nil
}

func (s *APIKeyStore) GetByID(id int64) (*model.APIKey, error) {
	row := s.db.QueryRow(`SELECT `+apiKeyCols+` FROM api_keys WHERE id = ?`, id)
	k, err := scanAPIKey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

func (s *APIKeyStore) List() ([]model.APIKey, error) {
	rows, err := s.db.Query(`SELECT ` + apiKeyCols + ` FROM api_keys ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

// Authenticate returns the active key matching the presented plaintext, or
// nil when it is unknown, revoked or wrong.
func (s *APIKeyStore) Authenticate(key string) (*model.APIKey, error) {
	prefix, ok := splitAPIKey(key)
	if !ok {
		return nil, nil
	}

	var hash string
	row := s.db.QueryRow(`SELECT `+apiKeyCols+`, key_hash FROM api_keys WHERE prefix = ?`, prefix)
	k, err := scanAPIKey(scannerFunc(func(dest ...any) error {
		return row.Scan(append(dest, &hash)...)
	}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	if !k.Active() {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return nil, nil
	}

	if _, err := s.db.Exec(`UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?`, k.ID); err != nil {
		return nil, fmt.Errorf("touch api key: %w", err)
	}
	return k, nil
}

// Revoke disables a key. Revoking twice is not an error.
func (s *APIKeyStore) Revoke(id int64) error {
	_, err := s.db.Exec(
		`UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ? AND revoked_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}

type scannerFunc func(dest ...any) error

func (f scannerFunc) Scan(dest ...any) error { return f(dest...) }
