package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sekkot/portal/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// Claims are carried by the access token.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *Store) signAccess(userID, email, sessionID string, now time.Time) (string, time.Time, error) {
	expiry := now.Add(s.opts.AccessExpiry)
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

func (s *Store) parseAccess(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.UserID == "" {
		return nil, errors.New("token missing session claims")
	}
	return claims, nil
}

// newRefreshSecret returns the opaque cookie value and the bcrypt hash
// of its secret half.
func newRefreshSecret(sessionID string) (string, string, error) {
	secret, err := service.GenerateToken()
	if err != nil {
		return "", "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	raw := sessionID + ":" + secret
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), string(hash), nil
}

func splitRefresh(token string) (string, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("malformed refresh token: %w", err)
	}

	id, secret, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" || secret == "" {
		return "", "", errors.New("malformed refresh token")
	}
	return id, secret, nil
}

func checkRefresh(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
