package secrets

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "signet/pkg/domain-errors"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery", hash)

	require.NoError(t, Verify("correct horse battery", hash))

	err = Verify("wrong password", hash)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := Hash("")
	require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestDummyHashIsRealDigest(t *testing.T) {
	// VerifyDummy only equalizes login timing if the fixed hash is a
	// well-formed digest that bcrypt fully evaluates.
	cost, err := bcrypt.Cost([]byte(dummyHash))
	require.NoError(t, err)
	require.GreaterOrEqual(t, cost, bcrypt.DefaultCost)

	require.Error(t, bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte("anything")))
	VerifyDummy("anything")
}
