package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestAutoSaveConfig_Validation(t *testing.T) {
	cfg := AutoSaveConfig{Enabled: true, DebounceMS: 2000, MaxWaitMS: 30000, MinLength: 1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid autosave config should pass: %v", err)
	}

	cfg = AutoSaveConfig{Enabled: true, DebounceMS: 5000, MaxWaitMS: 1000}
	if err := cfg.Validate(); err == nil {
		t.Fatal("max_wait below debounce should fail")
	}

	cfg = AutoSaveConfig{Enabled: true, DebounceMS: 0, MaxWaitMS: 1000}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero debounce should fail when enabled")
	}

	// Disabled autosave skips timing validation entirely.
	cfg = AutoSaveConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled autosave should pass: %v", err)
	}
}

func TestAutoSaveConfig_SchedulerConfig(t *testing.T) {
	cfg := AutoSaveConfig{Enabled: true, DebounceMS: 250, MaxWaitMS: 4000, MinLength: 3}
	sc := cfg.SchedulerConfig()
	if sc.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %v", sc.Debounce)
	}
	if sc.MaxWait != 4*time.Second {
		t.Errorf("max wait = %v", sc.MaxWait)
	}
	if sc.MinLength != 3 || !sc.Enabled {
		t.Errorf("scheduler config = %+v", sc)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
