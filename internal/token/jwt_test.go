package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "signet")
	userID := id.NewUserID()

	tokenString, err := svc.Issue(userID, time.Hour)
	require.NoError(t, err)

	validated, err := svc.Validate(tokenString)
	require.NoError(t, err)
	require.Equal(t, userID, validated.UserID)
	require.NotEmpty(t, validated.JTI)
	require.WithinDuration(t, time.Now().Add(time.Hour), validated.ExpiresAt, time.Minute)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key", "signet")

	tokenString, err := svc.Issue(id.NewUserID(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := NewService("key-one", "signet")
	verifier := NewService("key-two", "signet")

	tokenString, err := issuer.Issue(id.NewUserID(), time.Hour)
	require.NoError(t, err)

	_, err = verifier.Validate(tokenString)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-signing-key", "signet")
	_, err := svc.Validate("not.a.token")
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestEachTokenGetsFreshJTI(t *testing.T) {
	svc := NewService("test-signing-key", "signet")
	userID := id.NewUserID()

	first, err := svc.Issue(userID, time.Hour)
	require.NoError(t, err)
	second, err := svc.Issue(userID, time.Hour)
	require.NoError(t, err)

	v1, err := svc.Validate(first)
	require.NoError(t, err)
	v2, err := svc.Validate(second)
	require.NoError(t, err)
	require.NotEqual(t, v1.JTI, v2.JTI)
}
