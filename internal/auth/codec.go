package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is the only MAC algorithm tokens may declare.
const Algorithm = "HS256"

// Timestamp is a claim time encoded as integer milliseconds since the Unix
// epoch. Whole-second NumericDate values would cut up to a second off exp.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns t rounded down to the millisecond.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: time.UnixMilli(t.UnixMilli()).UTC()}
}

// ceilTimestamp returns t rounded up to the millisecond.
func ceilTimestamp(t time.Time) *Timestamp {
	ts := NewTimestamp(t)
	if ts.Before(t) {
		ts.Time = ts.Add(time.Millisecond)
	}
	return ts
}

// MarshalJSON implements json.Marshaler
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, ts.UnixMilli(), 10), nil
}

// UnmarshalJSON implements json.Unmarshaler. Only integers are accepted.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp must be integer milliseconds: %w", err)
	}
	ts.Time = time.UnixMilli(ms).UTC()
	return nil
}

func (ts *Timestamp) numericDate() *jwt.NumericDate {
	if ts == nil {
		return nil
	}
	return jwt.NewNumericDate(ts.Time)
}

// Claims is the fixed claim set carried by every token.
type Claims struct {
	Subject   string     `json:"sub"`
	Roles     RoleSet    `json:"roles"`
	IssuedAt  *Timestamp `json:"iat"`
	ExpiresAt *Timestamp `json:"exp"`
}

// GetExpirationTime implements jwt.Claims
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt.numericDate(), nil }

// GetIssuedAt implements jwt.Claims
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt.numericDate(), nil }

// GetNotBefore implements jwt.Claims
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

// GetIssuer implements jwt.Claims
func (c *Claims) GetIssuer() (string, error) { return "", nil }

// GetSubject implements jwt.Claims
func (c *Claims) GetSubject() (string, error) { return c.Subject, nil }

// GetAudience implements jwt.Claims
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// Expired reports whether the token is expired at now (now >= exp).
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Remaining returns the lifetime left at now; negative once expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// Token is an issued token: the compact serialization plus the claims it carries.
type Token struct {
	Value  string
	Claims Claims
}

// CodecConfig is the immutable codec configuration built once at startup.
type CodecConfig struct {
	Key SigningKey
	TTL time.Duration
}

// TokenCodec issues and verifies HS256 tokens. It is safe for concurrent use.
type TokenCodec struct {
	key    SigningKey
	ttl    time.Duration
	parser *jwt.Parser
}

// NewTokenCodec creates a codec bound to a signing key and TTL.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if cfg.Key.IsZero() {
		return nil, errors.New("token codec requires a signing key")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("token TTL must not be negative, got %s", cfg.TTL)
	}
	return &TokenCodec{
		key: cfg.Key,
		ttl: cfg.TTL,
		// Expiry is checked by callers, so claims validation is disabled here.
		parser: jwt.NewParser(
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject carrying roles, issued at now. exp is
// rounded up so the token never expires before now+TTL.
func (c *TokenCodec) Issue(subject string, roles RoleSet, now time.Time) (*Token, error) {
	if subject == "" {
		return nil, errors.New("token subject is required")
	}

	claims := Claims{
		Subject:   subject,
		Roles:     NewRoleSet(roles...),
		IssuedAt:  NewTimestamp(now),
		ExpiresAt: ceilTimestamp(now.Add(c.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(c.key.material)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{Value: signed, Claims: claims}, nil
}

// ParseAndVerify checks the token signature against the signing key and
// decodes its claims. It does not check expiry.
func (c *TokenCodec) ParseAndVerify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, err := c.parser.ParseWithClaims(tokenString, claims, c.keyFunc); err != nil {
		return nil, classifyParseError(err)
	}

	if claims.Subject == "" {
		return nil, newError(KindMalformed, errors.New("missing sub claim"))
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, newError(KindMalformed, errors.New("missing iat or exp claim"))
	}

	return claims, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != Algorithm {
		return nil, newError(KindUnsupportedAlgorithm, fmt.Errorf("token declares %v", t.Header["alg"]))
	}
	return c.key.material, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return newError(KindUnsupportedAlgorithm, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return newError(KindBadSignature, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// Unknown alg header values never reach keyFunc.
		return newError(KindUnsupportedAlgorithm, err)
	default:
		return newError(KindMalformed, err)
	}
}
