// Package warehouseauth keeps the SQL warehouse access token out of config
// files: it lives in the OS keychain, or in a 0600 JSON file when no keychain
// is reachable (headless Linux, containers).
package warehouseauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service name tokens are filed under.
const DefaultService = "galactic-survival"

// ErrNoToken means no token is stored for the host.
var ErrNoToken = errors.New("warehouseauth: no token stored")

// KeyringStore stores one token per workspace host.
type KeyringStore struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewKeyringStore creates a store. fallbackPath may be empty to disable the
// file fallback.
func NewKeyringStore(serviceName, fallbackPath string) *KeyringStore {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = DefaultService
	}
	return &KeyringStore{service: serviceName, fallbackPath: fallbackPath}
}

func account(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return "token/" + strings.TrimRight(host, "/")
}

// SetToken saves the token for host.
func (k *KeyringStore) SetToken(host, token string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("warehouseauth: host is required")
	}
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("warehouseauth: token is empty")
	}

	err := keyring.Set(k.service, account(host), token)
	if err == nil {
		return nil
	}
	if !isKeyringUnavailable(err) {
		return fmt.Errorf("warehouseauth: keyring set: %w", err)
	}
	return k.updateFallback(func(data map[string]string) { data[account(host)] = token })
}

// Token returns the stored token for host or ErrNoToken.
func (k *KeyringStore) Token(host string) (string, error) {
	val, err := keyring.Get(k.service, account(host))
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("warehouseauth: keyring get: %w", err)
	}

	data, ferr := k.readFallback()
	if ferr != nil {
		return "", ferr
	}
	if tok, ok := data[account(host)]; ok {
		return tok, nil
	}
	return "", ErrNoToken
}

// DeleteToken removes the token for host from both the keychain and the fallback file.
func (k *KeyringStore) DeleteToken(host string) error {
	kerr := keyring.Delete(k.service, account(host))
	ferr := k.updateFallback(func(data map[string]string) { delete(data, account(host)) })
	if kerr != nil && !errors.Is(kerr, keyring.ErrNotFound) && !isKeyringUnavailable(kerr) {
		return fmt.Errorf("warehouseauth: keyring delete: %w", kerr)
	}
	if ferr != nil && k.fallbackPath != "" {
		return ferr
	}
	return nil
}

// Resolve prefers an explicitly configured token and falls back to the store.
func (k *KeyringStore) Resolve(configured, host string) (string, error) {
	if tok := strings.TrimSpace(configured); tok != "" {
		return tok, nil
	}
	return k.Token(host)
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

func (k *KeyringStore) readFallback() (map[string]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.readFallbackUnlocked()
}

func (k *KeyringStore) updateFallback(fn func(map[string]string)) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return fmt.Errorf("warehouseauth: keyring unavailable and no fallback path configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := k.readFallbackUnlocked()
	if err != nil {
		return err
	}
	fn(data)
	return k.writeFallbackUnlocked(data)
}

func (k *KeyringStore) readFallbackUnlocked() (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(k.fallbackPath) == "" {
		return out, nil
	}
	raw, err := os.ReadFile(k.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("warehouseauth: read fallback: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("warehouseauth: decode fallback: %w", err)
	}
	return out, nil
}

func (k *KeyringStore) writeFallbackUnlocked(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(k.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("warehouseauth: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("warehouseauth: encode fallback: %w", err)
	}
	if err := os.WriteFile(k.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("warehouseauth: write fallback: %w", err)
	}
	return nil
}

// DefaultFallbackPath is tokens.json under the user's config directory, or
// "" when that directory is unknown.
func DefaultFallbackPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, DefaultService, "tokens.json")
}
