package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	pkce, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE failed: %v", err)
	}

	t.Run("VerifierLength", func(t *testing.T) {
		// 32 bytes base64url-encode to 43 characters without padding.
		if len(pkce.Verifier) != 43 {
			t.Errorf("verifier length = %d, want 43", len(pkce.Verifier))
		}
	})

	t.Run("VerifierIsURLSafe", func(t *testing.T) {
		if _, err := base64.RawURLEncoding.DecodeString(pkce.Verifier); err != nil {
			t.Errorf("verifier is not valid base64url: %v", err)
		}
	})

	t.Run("ChallengeIsS256OfVerifier", func(t *testing.T) {
		hash := sha256.Sum256([]byte(pkce.Verifier))
		want := base64.RawURLEncoding.EncodeToString(hash[:])
		if pkce.Challenge != want {
			t.Errorf("challenge = %q, want %q", pkce.Challenge, want)
		}
	})

	t.Run("Method", func(t *testing.T) {
		if pkce.Method != "S256" {
			t.Errorf("method = %q, want S256", pkce.Method)
		}
	})

	t.Run("Uniqueness", func(t *testing.T) {
		other, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE failed: %v", err)
		}
		if other.Verifier == pkce.Verifier {
			t.Error("two challenges share the same verifier")
		}
	})
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}

	if len(state) != 43 {
		t.Errorf("state length = %d, want 43", len(state))
	}
	if _, err := base64.RawURLEncoding.DecodeString(state); err != nil {
		t.Errorf("state is not valid base64url: %v", err)
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}
	if other == state {
		t.Error("two generated states are identical")
	}
}
