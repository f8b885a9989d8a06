//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"signet/internal/token/revocation"
	"signet/pkg/testutil/containers"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.RedisList
}

func TestRedisListSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.list = revocation.NewRedisList(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	err := s.redis.FlushAll(context.Background())
	s.Require().NoError(err)
}

func (s *RedisListSuite) TestRevokeAndCheck() {
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.list.Revoke(ctx, jti, time.Minute))

	revoked, err = s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *RedisListSuite) TestKeyExpiry() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.list.Revoke(ctx, jti, 500*time.Millisecond))

	revoked, err := s.list.IsRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)

	// Redis drops the key on its own once the TTL lapses.
	s.Require().Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, jti)
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *RedisListSuite) TestEmptyJTIIsNoop() {
	ctx := context.Background()
	s.Require().NoError(s.list.Revoke(ctx, "", time.Minute))

	revoked, err := s.list.IsRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisListSuite) TestNonPositiveTTLRejected() {
	err := s.list.Revoke(context.Background(), uuid.NewString(), 0)
	s.Error(err)
}
