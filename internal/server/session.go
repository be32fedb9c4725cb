package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionCookie = "payslip_session"
	sessionIssuer = "payslipflow"
)

var errInvalidSession = errors.New("invalid session")

type ctxKey int

const sessionEmailKey ctxKey = iota

// Sessions issues and verifies signed session cookies for the single
// operator account.
type Sessions struct {
	email    string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewSessions returns nil when no credentials are configured, which leaves
// every route open.
func NewSessions(email, password string, secret []byte, ttl time.Duration) *Sessions {
	if email == "" || password == "" {
		return nil
	}
	return &Sessions{email: email, password: password, secret: secret, ttl: ttl, now: time.Now}
}

// CheckCredentials compares in constant time.
func (s *Sessions) CheckCredentials(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	return emailOK && passOK
}

// Issue signs a token for email.
func (s *Sessions) Issue(email string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

// Verify returns the email a token was issued for.
func (s *Sessions) Verify(token string) (string, error) {
	claims := new(jwt.RegisteredClaims)
	parser := jwt.NewParser(
		jwt.WithIssuer(sessionIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidSession, err)
	}
	if claims.Subject != s.email {
		return "", errInvalidSession
	}
	return claims.Subject, nil
}

// fromRequest returns the session email carried by r's cookie.
func (s *Sessions) fromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	email, err := s.Verify(cookie.Value)
	if err != nil {
		return "", false
	}
	return email, true
}

// Require rejects requests without a valid session. A nil Sessions lets
// everything through.
func (s *Sessions) Require(next http.Handler) http.Handler {
	if s == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.fromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionEmailKey, email)))
	})
}

func (s *Sessions) setCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
