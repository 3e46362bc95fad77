package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(hash)
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}

	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(\"\") should fail")
	}
}

func TestParseUsers(t *testing.T) {
	t.Parallel()

	hash := mustHash(t, "pw")

	tests := []struct {
		name    string
		list    string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"single", "alice:" + hash, 1, false},
		{"two with spaces", " alice:" + hash + " , bob:" + hash, 2, false},
		{"trailing comma", "alice:" + hash + ",", 1, false},
		{"missing hash", "alice:", 0, true},
		{"missing colon", "alice", 0, true},
		{"not bcrypt", "alice:plaintext", 0, true},
		{"duplicate", "alice:" + hash + ",alice:" + hash, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := ParseUsers(tt.list)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUsers() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(users) != tt.want {
				t.Errorf("ParseUsers() returned %d users, want %d", len(users), tt.want)
			}
		})
	}
}

func TestNewCredentials(t *testing.T) {
	t.Parallel()

	hash := mustHash(t, "bobpw")

	if _, err := NewCredentials("", "", ""); err == nil {
		t.Error("NewCredentials() with no raters should fail")
	}
	if _, err := NewCredentials("alice", "", ""); err == nil {
		t.Error("NewCredentials() with a username but no password should fail")
	}
	if _, err := NewCredentials("bob", "x", "bob:"+hash); err == nil {
		t.Error("NewCredentials() should reject a user configured twice")
	}

	creds, err := NewCredentials("alice", "alicepw", "bob:"+hash)
	if err != nil {
		t.Fatalf("NewCredentials() error = %v", err)
	}
	if got := strings.Join(creds.Users(), ","); got != "alice,bob" {
		t.Errorf("Users() = %q, want alice,bob", got)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	creds, err := NewCredentials("alice", "alicepw", "bob:"+mustHash(t, "bobpw"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		user     string
		password string
		wantErr  bool
	}{
		{"env user", "alice", "alicepw", false},
		{"hashed user", "bob", "bobpw", false},
		{"wrong password", "alice", "bobpw", true},
		{"unknown user", "carol", "alicepw", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := creds.Verify(tt.user, tt.password)
			if tt.wantErr && !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Verify() error = %v, want ErrInvalidCredentials", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

// tamper swaps the payload of token for the one of donor, keeping the
// original signature.
func tamper(token, donor string) string {
	parts := strings.Split(token, ".")
	donorParts := strings.Split(donor, ".")
	return parts[0] + "." + donorParts[1] + "." + parts[2]
}

// =============================================================================
// Tokens
// =============================================================================

func TestNewTokenManager(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenManager("", time.Hour); err == nil {
		t.Error("empty secret should be rejected")
	}
	if _, err := NewTokenManager("secret", 0); err == nil {
		t.Error("zero TTL should be rejected")
	}
}

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	m, err := NewTokenManager("test-secret", 12*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	token, err := m.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.User != "alice" {
		t.Errorf("User = %q, want alice", claims.User)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 12*time.Hour {
		t.Errorf("token lifetime = %v, want 12h", ttl)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	m, _ := NewTokenManager("test-secret", time.Hour)
	other, _ := NewTokenManager("other-secret", time.Hour)

	valid, _ := m.Issue("alice")
	foreign, _ := other.Issue("alice")

	expiredManager, _ := NewTokenManager("test-secret", time.Hour)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredManager.Issue("alice")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		User: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", foreign},
		{"expired", expired},
		{"alg none", none},
		{"no user", noUser},
		{"tampered", tamper(valid, noUser)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
