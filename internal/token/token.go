package token

import (
	"errors"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

// Token classes. The class is pinned into the payload so an access token can
// never be replayed as a refresh or verification token.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
	UseVerify  = "verify"
)

// ErrInvalidToken covers every decode failure: bad signature, expiry, wrong
// class, malformed payload. Callers must treat it as "unauthenticated" and
// nothing more specific.
var ErrInvalidToken = errors.New("invalid token")

// Service signs and validates HS256 JWTs with a single shared secret.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	verifyTTL  time.Duration
}

// NewService constructs a token service from the configured signing secret.
func NewService(secret string, accessTTL, refreshTTL, verifyTTL time.Duration) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		verifyTTL:  verifyTTL,
	}
}

type useClaim struct {
	TokenUse string `json:"token_use"`
}

// AccessToken issues a short-lived API credential for the subject.
func (s *Service) AccessToken(subject string) (string, error) {
	return s.issue(subject, UseAccess, s.accessTTL)
}

// RefreshToken issues a long-lived credential for obtaining new access tokens.
func (s *Service) RefreshToken(subject string) (string, error) {
	return s.issue(subject, UseRefresh, s.refreshTTL)
}

// VerificationToken issues a single-purpose token proving control of an email
// address. The subject is the email itself.
func (s *Service) VerificationToken(email string) (string, error) {
	return s.issue(email, UseVerify, s.verifyTTL)
}

func (s *Service) issue(subject, use string, ttl time.Duration) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: s.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:  subject,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(ttl)),
	}

	return gojwt.Signed(signer).Claims(std).Claims(useClaim{TokenUse: use}).Serialize()
}

// Decode validates a token of the given class and returns its subject. It
// fails closed: any parse, signature, expiry, or class mismatch comes back as
// ErrInvalidToken.
func (s *Service) Decode(raw, use string) (string, error) {
	parsed, err := gojwt.ParseSigned(raw, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return "", ErrInvalidToken
	}

	var std gojwt.Claims
	var custom useClaim
	if err := parsed.Claims(s.secret, &std, &custom); err != nil {
		return "", ErrInvalidToken
	}
	if err := std.Validate(gojwt.Expected{Time: time.Now().UTC()}); err != nil {
		return "", ErrInvalidToken
	}
	if custom.TokenUse != use || std.Subject == "" {
		return "", ErrInvalidToken
	}

	return std.Subject, nil
}
