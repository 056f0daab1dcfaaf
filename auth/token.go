package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

const tokenIssuer = "civicreport"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenSubject = errors.New("token subject is not a user id")
)

// Verifier resolves a bearer token to the id of the user it was issued for
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (uuid.UUID, error)
}

// MinSecretLength is the shortest HS256 key go-jose accepts
const MinSecretLength = 32

// TokenIssuer signs and verifies HS256 session tokens issued at login
type TokenIssuer struct {
	key    []byte
	ttl    time.Duration
	signer jose.Signer
}

// NewTokenIssuer creates an issuer signing with secret; tokens expire after ttl
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}

	key := []byte(secret)
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	return &TokenIssuer{key: key, ttl: ttl, signer: signer}, nil
}

// Issue returns a signed token whose subject is userID
func (t *TokenIssuer) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.Claims{
		Issuer:   tokenIssuer,
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.ttl)),
	}

	token, err := jwt.Signed(t.signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature, issuer and expiry of rawToken
func (t *TokenIssuer) Verify(_ context.Context, rawToken string) (uuid.UUID, error) {
	tok, err := jwt.ParseSigned(rawToken, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims jwt.Claims
	if err := tok.Claims(t.key, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	expected := jwt.Expected{Issuer: tokenIssuer, Time: time.Now()}
	if err := claims.ValidateWithLeeway(expected, time.Minute); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenSubject
	}
	return id, nil
}

// Verifiers tries each verifier in turn and accepts the first success
type Verifiers []Verifier

// Verify implements Verifier
func (vs Verifiers) Verify(ctx context.Context, rawToken string) (uuid.UUID, error) {
	err := ErrInvalidToken
	for _, v := range vs {
		id, verr := v.Verify(ctx, rawToken)
		if verr == nil {
			return id, nil
		}
		err = verr
	}
	return uuid.Nil, err
}
