// Package token issues and verifies the HS256 JWTs handed to clients.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed tokens and failed signature checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoKey is returned by New when the signing secret is empty.
	ErrNoKey = errors.New("token: signing key is empty")
)

// Claims is the identity carried by a token.
type Claims struct {
	ID         int64 `json:"id"`
	Admin      bool  `json:"admin"`
	Superadmin bool  `json:"superadmin"`
}

type jwtClaims struct {
	Claims
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a process-wide secret.
type Codec struct {
	key    []byte
	parser *jwt.Parser
}

// New returns a Codec for the given secret.
func New(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, ErrNoKey
	}
	return &Codec{
		key:    key,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

// Issue signs the claims. No expiry is set, so the same claims always
// produce the same token.
func (c *Codec) Issue(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{Claims: claims})
	s, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: signing: %w", err)
	}
	return s, nil
}

// Verify checks the signature and returns the embedded claims unmodified.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	var jc jwtClaims
	tkn, err := c.parser.ParseWithClaims(tokenString, &jc, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return Claims{}, ErrInvalidToken
	}
	return jc.Claims, nil
}
