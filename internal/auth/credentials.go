package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against when the user is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("photo-rater-placeholder"), bcrypt.MinCost)

// Credentials holds the bcrypt hashes of every rater allowed to log in.
type Credentials struct {
	users map[string][]byte
}

// HashPassword returns a bcrypt hash suitable for RATER_USERS.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ParseUsers reads a "user:bcrypthash,user2:hash2" list.
func ParseUsers(list string) (map[string][]byte, error) {
	users := make(map[string][]byte)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, hash, ok := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		hash = strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("invalid user entry %q: want user:bcrypthash", item)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("user %q: not a bcrypt hash: %w", name, err)
		}
		if _, dup := users[name]; dup {
			return nil, fmt.Errorf("user %q listed twice", name)
		}
		users[name] = []byte(hash)
	}
	return users, nil
}

// NewCredentials builds the rater list from RATER_USERS and the single
// RATER_USERNAME/RATER_PASSWORD pair, whose password is hashed here. At
// least one rater must be configured.
func NewCredentials(username, password, usersList string) (*Credentials, error) {
	users, err := ParseUsers(usersList)
	if err != nil {
		return nil, err
	}

	if username != "" {
		if password == "" {
			return nil, fmt.Errorf("RATER_PASSWORD is required when RATER_USERNAME is set")
		}
		if _, dup := users[username]; dup {
			return nil, fmt.Errorf("user %q is configured twice", username)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %q: %w", username, err)
		}
		users[username] = hash
	}

	if len(users) == 0 {
		return nil, errors.New("no raters configured: set RATER_USERNAME/RATER_PASSWORD or RATER_USERS")
	}
	return &Credentials{users: users}, nil
}

// Verify checks a username and password.
func (c *Credentials) Verify(username, password string) error {
	hash, ok := c.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
		logging.Warn("Login failed for unknown user %q", username)
		return ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
		logging.Warn("Login failed for user %q", username)
		return ErrInvalidCredentials
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return nil
}

// Users returns the configured rater names, sorted.
func (c *Credentials) Users() []string {
	names := make([]string, 0, len(c.users))
	for name := range c.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
