// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/argon2"
)

const (
	// FileBackendPriority is the priority for encrypted file backend.
	FileBackendPriority = 25

	// MasterKeyEnv names the environment variable holding the file master key.
	MasterKeyEnv = "VIDEOINDEXER_MASTER_KEY"

	argon2Time        = 3
	argon2Memory      = 64 * 1024 // KiB
	argon2Parallelism = 4
	argon2KeyLength   = 32 // AES-256

	saltSize = 16
)

var fileJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// FileBackend stores secrets in a JSON map encrypted with AES-256-GCM. The
// key is derived with Argon2id from a master key and a per-write salt.
type FileBackend struct {
	path      string
	masterKey []byte
	mu        sync.RWMutex
	available bool
}

type encryptedFile struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// DefaultFilePath returns the default location of the encrypted file.
func DefaultFilePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "videoindexer", "secrets.enc"), nil
}

// NewFileBackend creates an encrypted file backend at path (the default
// path when empty). Without a master key the backend is returned but
// reports itself unavailable.
func NewFileBackend(path string, masterKey string) (*FileBackend, error) {
	if path == "" {
		p, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if masterKey == "" {
		masterKey = os.Getenv(MasterKeyEnv)
	}
	if masterKey == "" {
		return &FileBackend{path: path}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	return &FileBackend{path: path, masterKey: []byte(masterKey), available: true}, nil
}

// Name returns the backend identifier.
func (f *FileBackend) Name() string {
	return "file"
}

// Get retrieves a secret from the encrypted file.
func (f *FileBackend) Get(_ context.Context, key string) (string, error) {
	if !f.available {
		return "", fmt.Errorf("%w: %s not set", ErrBackendUnavailable, MasterKeyEnv)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	secrets, err := f.load()
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load secrets: %w", err)
	}

	value, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return value, nil
}

// Set stores a secret in the encrypted file.
func (f *FileBackend) Set(_ context.Context, key string, value string) error {
	if !f.available {
		return fmt.Errorf("%w: %s not set", ErrBackendUnavailable, MasterKeyEnv)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	secrets, err := f.load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if secrets == nil {
		secrets = make(map[string]string)
	}
	secrets[key] = value
	return f.save(secrets)
}

// Delete removes a secret from the encrypted file.
func (f *FileBackend) Delete(_ context.Context, key string) error {
	if !f.available {
		return fmt.Errorf("%w: %s not set", ErrBackendUnavailable, MasterKeyEnv)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	secrets, err := f.load()
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if _, ok := secrets[key]; !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	delete(secrets, key)
	return f.save(secrets)
}

// Available returns true if a master key is configured.
func (f *FileBackend) Available() bool {
	return f.available
}

// Priority returns the backend priority.
func (f *FileBackend) Priority() int {
	return FileBackendPriority
}

func (f *FileBackend) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var enc encryptedFile
	if err := fileJSON.Unmarshal(raw, &enc); err != nil {
		return nil, fmt.Errorf("invalid encrypted data format: %w", err)
	}

	gcm, err := f.cipher(enc.Salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, enc.Nonce, enc.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong master key or corrupted data): %w", err)
	}
	defer zeroBytes(plaintext)

	var secrets map[string]string
	if err := fileJSON.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("invalid decrypted data format: %w", err)
	}
	return secrets, nil
}

func (f *FileBackend) save(secrets map[string]string) error {
	plaintext, err := fileJSON.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	defer zeroBytes(plaintext)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := f.cipher(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	raw, err := fileJSON.Marshal(encryptedFile{
		Salt:  salt,
		Nonce: nonce,
		Data:  gcm.Seal(nil, nonce, plaintext, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal encrypted data: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (f *FileBackend) cipher(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.masterKey, salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
