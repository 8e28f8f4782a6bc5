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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileBackend_SetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	backend, err := NewFileBackend(path, "test-master-key-for-encryption-123")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if !backend.Available() {
		t.Fatal("Available() = false, want true")
	}

	ctx := context.Background()
	if err := backend.Set(ctx, "access_token", "tok-secret-value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file permissions = %o, want 0600", info.Mode().Perm())
	}

	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "tok-secret-value") {
		t.Error("secret stored in plaintext")
	}

	got, err := backend.Get(ctx, "access_token")
	if err != nil || got != "tok-secret-value" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	if err := backend.Delete(ctx, "access_token"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := backend.Get(ctx, "access_token"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSecretNotFound", err)
	}
}

func TestFileBackend_WrongMasterKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	ctx := context.Background()

	writer, _ := NewFileBackend(path, "correct-key")
	if err := writer.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reader, _ := NewFileBackend(path, "wrong-key")
	_, err := reader.Get(ctx, "k")
	if err == nil || errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected decryption failure, got %v", err)
	}
}

func TestFileBackend_NoMasterKey(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "s.enc"), "")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if backend.Available() {
		t.Error("backend without master key should be unavailable")
	}
	if _, err := backend.Get(context.Background(), "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Get() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestFileBackend_MissingFile(t *testing.T) {
	backend, _ := NewFileBackend(filepath.Join(t.TempDir(), "none.enc"), "k")
	if _, err := backend.Get(context.Background(), "x"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() error = %v, want ErrSecretNotFound", err)
	}
}
