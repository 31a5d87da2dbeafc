package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func logOne(t *testing.T, cfg Config, args ...any) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	cfg.Output = &buf
	cfg.Format = "json"
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("test", args...)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	return logEntry
}

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"password", "mysecret123"},
		{"requirepass_password", "hunter2"},
		{"auth", "default hunter2"},
		{"client_secret", "s3"},
		{"credential", "cred123"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			entry := logOne(t, Config{}, tt.key, tt.value)
			if got := entry[tt.key]; got != redactedValue {
				t.Errorf("Key %q should be redacted, got %v", tt.key, got)
			}
		})
	}
}

func TestRedactSensitive_PayloadKeys(t *testing.T) {
	entry := logOne(t, Config{},
		"value", "hello world",
		"payload", []byte{1, 2, 3},
	)

	if got := entry["value"]; got != "<11 bytes>" {
		t.Errorf("value = %v, want <11 bytes>", got)
	}
	if got := entry["payload"]; got != "<3 bytes>" {
		t.Errorf("payload = %v, want <3 bytes>", got)
	}
}

func TestRedactSensitive_Truncation(t *testing.T) {
	long := strings.Repeat("k", 40)
	entry := logOne(t, Config{MaxValueLen: 10}, "key", long, "raw", []byte(long))

	want := strings.Repeat("k", 10) + "...(+30 bytes)"
	if got := entry["key"]; got != want {
		t.Errorf("key = %v, want %q", got, want)
	}
	if got := entry["raw"]; got != want {
		t.Errorf("raw = %v, want %q", got, want)
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	entry := logOne(t, Config{}, "key", "user:42", "command", "GET", "conn_id", "c1")

	if entry["key"] != "user:42" {
		t.Errorf("key should not be redacted, got %v", entry["key"])
	}
	if entry["command"] != "GET" {
		t.Errorf("command should not be redacted, got %v", entry["command"])
	}
}

func TestRedactSensitive_Groups(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("loaded", slog.Group("auth", "password", "p", "user", "u"))

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	group, ok := logEntry["auth"].(map[string]any)
	if !ok {
		t.Fatalf("auth group missing: %v", logEntry)
	}
	if group["password"] != redactedValue {
		t.Errorf("auth.password = %v, want redacted", group["password"])
	}
	if group["user"] != "u" {
		t.Errorf("auth.user = %v, want u", group["user"])
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"abcdefghijk", 10, "abcdefghij...(+1 bytes)"},
		{"anything", 0, "anything"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"PASSWORD", true},
		{"auth_token", true},
		{"secret", true},
		{"key", false},
		{"value", false},
		{"conn_id", false},
	}

	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
