package device

import "testing"

func TestSessionPersistence(t *testing.T) {
	store := newTestStorage(t)

	session, err := NewSession(store)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if session.HasToken() {
		t.Error("fresh session should not have a token")
	}

	if err := session.SetToken("abc123"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if session.Token() != "abc123" {
		t.Errorf("expected token abc123, got %q", session.Token())
	}

	// A new session over the same storage restores the token
	restored, err := NewSession(store)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if restored.Token() != "abc123" {
		t.Errorf("expected restored token abc123, got %q", restored.Token())
	}
}

func TestSessionClear(t *testing.T) {
	store := newTestStorage(t)

	session, err := NewSession(store)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	if err := session.SetToken("abc123"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if err := session.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if session.HasToken() {
		t.Error("cleared session should not have a token")
	}

	restored, err := NewSession(store)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if restored.HasToken() {
		t.Error("cleared token should not be restored")
	}
}

func TestSessionClearWithoutToken(t *testing.T) {
	store := newTestStorage(t)

	session, err := NewSession(store)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := session.Clear(); err != nil {
		t.Errorf("Clear on empty session should not fail: %v", err)
	}
}
