package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidToken = errors.New("invalid token")

// AuthManager mints and checks the short-lived admin bearer tokens.
type AuthManager struct {
	secret   []byte
	adminKey string
	ttl      time.Duration
	nowFn    func() time.Time
}

func NewAuthManager(secret, adminKey string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AuthManager{secret: []byte(secret), adminKey: adminKey, ttl: ttl, nowFn: time.Now}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CheckKey compares the static admin key in constant time. An unset key never matches.
func (a *AuthManager) CheckKey(key string) bool {
	if a.adminKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.adminKey)) == 1
}

func (a *AuthManager) Mint() (string, time.Time, error) {
	now := a.nowFn()
	exp := now.Add(a.ttl)
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   "admin",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	// Authorization: Bearer <jwt>
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.nowFn))
	if err != nil || !tkn.Valid || claims.Role != "admin" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Require rejects requests without a valid admin token.
func (a *AuthManager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.ParseFromRequest(r); err != nil {
			writeJSON(w, http.StatusUnauthorized, statusBody{Status: "error", Detail: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
