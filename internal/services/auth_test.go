package services

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := testTokens.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	tests := []struct {
		name   string
		stored string
		raw    string
		want   bool
		rehash bool
	}{
		{name: "argon2", stored: hash, raw: "secret", want: true},
		{name: "argon2 wrong", stored: hash, raw: "Secret", want: false},
		{name: "bcrypt", stored: string(bcryptHash), raw: "secret", want: true, rehash: true},
		{name: "legacy plaintext", stored: "secret", raw: "secret", want: true, rehash: true},
		{name: "legacy wrong", stored: "secret", raw: "secret2", want: false, rehash: true},
		{name: "corrupt argon2", stored: "$argon2id$broken", raw: "secret", want: false},
	}
	for _, tt := range tests {
		if got := testTokens.VerifyPassword(tt.raw, tt.stored); got != tt.want {
			t.Errorf("%s: VerifyPassword = %v, want %v", tt.name, got, tt.want)
		}
		if got := testTokens.NeedsRehash(tt.stored); got != tt.rehash {
			t.Errorf("%s: NeedsRehash = %v, want %v", tt.name, got, tt.rehash)
		}
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, exp, err := testTokens.CreateSessionToken("sid-123")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %s", exp)
	}
	sid, err := testTokens.ParseSessionToken(token)
	if err != nil || sid != "sid-123" {
		t.Fatalf("parse: sid=%q err=%v", sid, err)
	}

	other := testTokens
	other.Secret = []byte("another-secret-0123")
	if _, err := other.ParseSessionToken(token); err == nil {
		t.Fatal("token accepted with wrong secret")
	}

	expired := testTokens
	expired.SessionTTL = -time.Minute
	stale, _, err := expired.CreateSessionToken("sid-123")
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	if _, err := testTokens.ParseSessionToken(stale); err == nil {
		t.Fatal("expired token accepted")
	}

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testTokens.Issuer,
		"sid": "sid-123",
		"typ": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := access.SignedString(testTokens.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := testTokens.ParseSessionToken(signed); err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("non-session token accepted: %v", err)
	}
}
