package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/navid-fn/mandi/configs"
)

// EmailHeader carries the caller's email in passwordless mode.
const EmailHeader = "X-User-Email"

// Gate decides whether a caller may change stored rows.
type Gate interface {
	Authorized(r *http.Request) bool
}

// NewGate builds the gate for mode.
func NewGate(mode configs.AuthMode, cfg configs.AuthConfig) (Gate, error) {
	switch mode {
	case configs.AuthPassword:
		return NewPasswordGate(cfg.AdminUsername, cfg.AdminPasswordHash, cfg.AdminPassword)
	case configs.AuthEmail:
		return NewEmailGate(cfg.AuthorizedEmails), nil
	case configs.AuthDisabled:
		return DenyAll{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// PasswordGate checks HTTP basic credentials against one admin user.
type PasswordGate struct {
	username     string
	passwordHash []byte
}

// NewPasswordGate uses hash when set, otherwise hashes password once here
// so requests never hash.
func NewPasswordGate(username, hash, password string) (*PasswordGate, error) {
	if username == "" {
		return nil, fmt.Errorf("admin username is required")
	}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		return &PasswordGate{username: username, passwordHash: []byte(hash)}, nil
	}
	if password == "" {
		return nil, fmt.Errorf("admin password or password hash is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &PasswordGate{username: username, passwordHash: h}, nil
}

func (g *PasswordGate) Authorized(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passMatch := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)) == nil
	return userMatch && passMatch
}

// Challenge is the WWW-Authenticate value sent with 401s.
func (g *PasswordGate) Challenge() string {
	return `Basic realm="mandi", charset="UTF-8"`
}

// EmailGate admits callers whose email header is allowlisted. Matching
// ignores case and surrounding space.
//
// The header is taken as sent, so any client can claim an allowlisted
// address. Use this mode only behind a trusted proxy that authenticates
// the user and sets X-User-Email itself, stripping any inbound value.
type EmailGate struct {
	allowed map[string]struct{}
}

func NewEmailGate(emails []string) *EmailGate {
	allowed := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &EmailGate{allowed: allowed}
}

func (g *EmailGate) Authorized(r *http.Request) bool {
	email := normalizeEmail(r.Header.Get(EmailHeader))
	if email == "" {
		return false
	}
	_, ok := g.allowed[email]
	return ok
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// DenyAll rejects every caller.
type DenyAll struct{}

func (DenyAll) Authorized(*http.Request) bool { return false }

// RequireAuthorization aborts with 401 unless gate admits the request.
func RequireAuthorization(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gate.Authorized(c.Request) {
			c.Next()
			return
		}
		if ch, ok := gate.(interface{ Challenge() string }); ok {
			c.Header("WWW-Authenticate", ch.Challenge())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
