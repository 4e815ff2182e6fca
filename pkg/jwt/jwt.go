// Package jwt is the signed token codec. It issues and verifies the four
// token kinds the service uses, each with its own HMAC secret so a token of
// one kind can never verify as another.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrUnknownKind  = errors.New("unknown token kind")
)

// Kind selects the secret and the TTL a token is signed with.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
	KindEmailVerify
	KindPasswordReset
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	case KindEmailVerify:
		return "email-verify"
	case KindPasswordReset:
		return "password-reset"
	}
	return "unknown"
}

// Claims is what a verified token carries. Audience is the user id for
// access/refresh tokens and the email address for verify/reset tokens.
type Claims struct {
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero for email-verify tokens
}

type kindConfig struct {
	secret []byte
	ttl    time.Duration // 0 means the token is signed without an expiry
}

type Codec struct {
	issuer string
	kinds  map[Kind]kindConfig
}

// NewCodec builds a codec from the per-kind secrets and TTLs. Email-verify
// tokens are signed without an expiry; the verified flag on the account is
// what makes them single-effect.
func NewCodec(issuer string, accessSecret, refreshSecret, emailSecret, resetSecret []byte, accessTTL, refreshTTL, resetTTL time.Duration) *Codec {
	return &Codec{
		issuer: issuer,
		kinds: map[Kind]kindConfig{
			KindAccess:        {secret: accessSecret, ttl: accessTTL},
			KindRefresh:       {secret: refreshSecret, ttl: refreshTTL},
			KindEmailVerify:   {secret: emailSecret, ttl: 0},
			KindPasswordReset: {secret: resetSecret, ttl: resetTTL},
		},
	}
}

// TTL reports the configured lifetime for a kind. The ledger mirrors it.
func (c *Codec) TTL(kind Kind) time.Duration {
	return c.kinds[kind].ttl
}

// Sign issues a token of the given kind bound to audience.
func (c *Codec) Sign(kind Kind, audience string) (string, error) {
	kc, ok := c.kinds[kind]
	if !ok {
		return "", ErrUnknownKind
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:   c.issuer,
		Audience: jwt.ClaimStrings{audience},
		IssuedAt: jwt.NewNumericDate(now),
	}
	if kc.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(kc.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(kc.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks the signature (and, unless ignoreExpiration is set, the
// expiry) of tokenString against the kind's secret. Refresh flows verify the
// access token with ignoreExpiration=true: an expired access token is still
// proof of the prior identity binding.
func (c *Codec) Verify(kind Kind, tokenString string, ignoreExpiration bool) (*Claims, error) {
	kc, ok := c.kinds[kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	var opts []jwt.ParserOption
	if ignoreExpiration {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	registered := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, registered, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return kc.secret, nil
	}, opts...)

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if len(registered.Audience) == 0 {
		return nil, ErrInvalidToken
	}

	claims := &Claims{Audience: registered.Audience[0]}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
