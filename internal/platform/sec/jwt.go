// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the cryptographic primitives used by the fake backend.
//
// # Architecture
//
// Hashing and JWT signing are isolated here so the fake backend handlers never
// touch key material directly. Keys are generated in memory: the fake backend
// only needs tokens that the same process can verify.
package sec

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// ErrWrongTokenType is returned when a refresh token is presented as an access token or vice versa.
var ErrWrongTokenType = errors.New("auth: wrong token type")

// AuthClaims represents the payload embedded inside a JWT.
//
// Custom claims are abbreviated to keep the payload small.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID string    `json:"uid"`
	Role   string    `json:"rol"`
	TeamID int64     `json:"tid,omitempty"`
	Type   TokenType `json:"typ"`
}

// TokenService handles generation and verification of JWT tokens using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	issuer     string
}

// keyBits sizes the in-memory signing key.
const keyBits = 2048

// NewTokenService creates a TokenService with a freshly generated RSA key pair.
func NewTokenService(issuer string) (*TokenService, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to generate key: %w", err)
	}

	return &TokenService{privateKey: privateKey, issuer: issuer}, nil
}

// Generate signs a token of the given type for a user.
//
// # Parameters
//   - tokenType: [TokenAccess] or [TokenRefresh].
//   - userID: Subject of the token.
//   - role: Role claim checked by [middleware.RequireRole].
//   - teamID: Team the user belongs to (0 when none).
//   - timeToLive: Lifetime; a non-positive value yields an already-expired token.
func (service *TokenService) Generate(tokenType TokenType, userID, role string, teamID int64, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
			// Unique per token so two tokens issued in the same second differ.
			ID: fmt.Sprintf("%d", currentTime.UnixNano()),
		},
		UserID: userID,
		Role:   role,
		TeamID: teamID,
		Type:   tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, validity, and type of a JWT string.
func (service *TokenService) Verify(tokenString string, want TokenType) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
		}
		return &service.privateKey.PublicKey, nil
	}, jwt.WithIssuer(service.issuer))

	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if claims.Type != want {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

// VerifyToken verifies an access token. It satisfies [middleware.TokenVerifier].
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	return service.Verify(tokenString, TokenAccess)
}
