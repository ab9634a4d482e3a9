package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseEnvFile(t *testing.T) {
	input := `
# Comment line
AIRBRIDGE_ADDR=:8480

AIRBRIDGE_CLIENT_ID = spaced-value
AIRBRIDGE_CLIENT_SECRET="quoted value"
AIRBRIDGE_SERIAL_NUMBER='single quoted'
MALFORMED LINE WITHOUT EQUALS
AIRBRIDGE_EMPTY=
`

	values, err := ParseEnvFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEnvFile failed: %v", err)
	}

	tests := map[string]string{
		"AIRBRIDGE_ADDR":          ":8480",
		"AIRBRIDGE_CLIENT_ID":     "spaced-value",
		"AIRBRIDGE_CLIENT_SECRET": "quoted value",
		"AIRBRIDGE_SERIAL_NUMBER": "single quoted",
		"AIRBRIDGE_EMPTY":         "",
	}
	for key, want := range tests {
		got, ok := values[key]
		if !ok {
			t.Errorf("key %s missing", key)
			continue
		}
		if got != want {
			t.Errorf("key %s: expected %q, got %q", key, want, got)
		}
	}

	if _, ok := values["MALFORMED LINE WITHOUT EQUALS"]; ok {
		t.Error("malformed lines must be skipped")
	}
}

func TestWriteEnvFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	values := map[string]string{
		"AIRBRIDGE_ADDR":      ":8480",
		"AIRBRIDGE_CLIENT_ID": "my-client",
	}
	if err := WriteEnvFile(path, values); err != nil {
		t.Fatalf("WriteEnvFile failed: %v", err)
	}

	// Credentials file must not be world-readable
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	parsed, err := ParseEnvFile(file)
	if err != nil {
		t.Fatalf("ParseEnvFile failed: %v", err)
	}
	for key, want := range values {
		if parsed[key] != want {
			t.Errorf("key %s: expected %q, got %q", key, want, parsed[key])
		}
	}
}
