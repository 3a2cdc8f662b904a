package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func withTempConfigDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	// os.UserConfigDir on darwin ignores XDG; skip there rather than flake
	if _, err := os.UserConfigDir(); err != nil {
		t.Skipf("no user config dir: %v", err)
	}
}

func TestSaveLoadClear(t *testing.T) {
	withTempConfigDir(t)

	if _, err := Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Load() before save: err = %v, want ErrNoToken", err)
	}

	if err := Save("  secret-token\n"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	token, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "secret-token" {
		t.Errorf("Load() = %q, want trimmed %q", token, "secret-token")
	}

	tp, err := TokenPath()
	if err != nil {
		t.Fatalf("TokenPath() error = %v", err)
	}
	info, err := os.Stat(tp)
	if err != nil {
		t.Fatalf("stat token: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
	if filepath.Base(tp) != TokenName {
		t.Errorf("token path = %q", tp)
	}

	if err := Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Load() after clear: err = %v, want ErrNoToken", err)
	}

	// clearing twice is fine
	if err := Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestSaveEmptyToken(t *testing.T) {
	withTempConfigDir(t)

	if err := Save("   "); err == nil {
		t.Error("Save() of blank token should fail")
	}
}
