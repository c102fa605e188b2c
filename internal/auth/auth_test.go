package auth

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	InitWithSecret("test-secret")

	token, err := GenerateToken(42, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	userID, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if userID != 42 {
		t.Errorf("expected user 42, got %d", userID)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	InitWithSecret("test-secret")

	cases := []string{"", "not-a-token", "a.b.c"}
	for _, token := range cases {
		if _, err := ParseAndValidate(token); err == nil {
			t.Errorf("expected error for token %q", token)
		}
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	InitWithSecret("first-secret")
	token, err := GenerateToken(7, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	InitWithSecret("second-secret")
	if _, err := ParseAndValidate(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestVerifyRequest(t *testing.T) {
	InitWithSecret("test-secret")

	token, err := GenerateToken(7, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	r := httptest.NewRequest("GET", "/v1/buckets", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	userID, err := VerifyRequest(r)
	if err != nil {
		t.Fatalf("VerifyRequest: %v", err)
	}
	if userID != 7 {
		t.Errorf("expected user 7, got %d", userID)
	}

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/buckets", nil)
		if _, err := VerifyRequest(r); err == nil {
			t.Error("expected error for missing header")
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/v1/buckets", nil)
		r.Header.Set("Authorization", "Basic "+token)
		if _, err := VerifyRequest(r); err == nil {
			t.Error("expected error for non-bearer scheme")
		}
	})
}
