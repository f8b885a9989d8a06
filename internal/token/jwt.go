// Package token issues and validates the signed bearer tokens that gate every
// authenticated endpoint. Cryptographic design is delegated to HS256 JWTs;
// the interesting parts are the claims contract and the revocation list.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
)

// Claims represents the JWT claims for access tokens. The subject is the user
// ID; the jti feeds the revocation list on logout.
type Claims struct {
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Issue creates a signed token for the given user with the given lifetime.
func (s *Service) Issue(userID id.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidatedToken is the outcome of a successful validation.
type ValidatedToken struct {
	UserID id.UserID
	JTI    string
	// ExpiresAt bounds the revocation-list TTL on logout.
	ExpiresAt time.Time
}

// Validate parses and verifies a token string. All failure modes collapse to
// an unauthorized domain error so callers cannot distinguish expiry from
// forgery.
func (s *Service) Validate(tokenString string) (*ValidatedToken, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &ValidatedToken{
		UserID:    userID,
		JTI:       claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}
