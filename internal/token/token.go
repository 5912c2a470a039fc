// Package token issues and verifies the purpose-scoped links embedded in
// confirmation emails. Validity is established purely by signature; there is
// no server-side revocation list, and tokens do not expire (a cancelled
// appointment is inert because the status guard rejects further mutations).
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeCancel     Purpose = "cancel"
	PurposeReschedule Purpose = "reschedule"
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrWrongPurpose = errors.New("wrong_token_purpose")
)

type Claims struct {
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	now    func() time.Time
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret), now: time.Now}
}

// Issue mints a signed token for the given purpose. The jti claim makes
// every token unique even when two are minted in the same instant.
func (s *Service) Issue(purpose Purpose) (string, error) {
	c := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify checks the signature and returns the embedded claims. The caller is
// responsible for comparing the purpose against the operation it gates;
// VerifyPurpose does both.
func (s *Service) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func (s *Service) VerifyPurpose(raw string, purpose Purpose) (*Claims, error) {
	c, err := s.Verify(raw)
	if err != nil {
		return nil, err
	}
	if c.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return c, nil
}
