package auth

import (
	"fmt"
	"strconv"
	"time"

	jose "gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"

	"primeflip/internal/domain"
)

const issuer = "primeflip"

// TokenIssuer creates and verifies HMAC-signed JWTs carrying a user id.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	signer jose.Signer
}

// NewTokenIssuer creates a TokenIssuer signing with HS256 over the given
// secret. Tokens expire after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: token secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: create signer: %w", err)
	}

	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		signer: signer,
	}, nil
}

// Issue returns a signed token for the user, valid for the issuer's TTL.
func (t *TokenIssuer) Issue(user domain.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.Claims{
		Issuer:   issuer,
		Subject:  strconv.FormatInt(user.ID, 10),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.ttl)),
	}

	token, err := jwt.Signed(t.signer).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Verify checks the token's signature, issuer and expiry, returning the
// embedded user id. Any failure maps to domain.ErrUnauthorized.
func (t *TokenIssuer) Verify(token string) (int64, error) {
	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	var claims jwt.Claims
	if err := parsed.Claims(t.secret, &claims); err != nil {
		return 0, domain.ErrUnauthorized
	}

	// Zero leeway: an expired token is expired.
	if err := claims.ValidateWithLeeway(jwt.Expected{
		Issuer: issuer,
		Time:   time.Now().UTC(),
	}, 0); err != nil {
		return 0, domain.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}
	return userID, nil
}
