package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FSStoreSuite struct {
	suite.Suite
	store *FSStore
	ctx   context.Context
}

func TestFSStoreSuite(t *testing.T) {
	suite.Run(t, new(FSStoreSuite))
}

func (s *FSStoreSuite) SetupTest() {
	s.store = NewFSStore(s.T().TempDir())
	s.ctx = context.Background()
}

func (s *FSStoreSuite) TestPutGetRoundTrip() {
	data := []byte("some document bytes")

	info, err := s.store.Put(s.ctx, data, "contract.pdf", "application/pdf")
	s.Require().NoError(err)
	s.Equal(int64(len(data)), info.Size)
	s.Equal("application/pdf", info.MimeType)
	s.Equal(Hash(data), info.Hash)
	s.Contains(info.StorageKey, "contract.pdf")

	got, err := s.store.Get(s.ctx, info.StorageKey)
	s.Require().NoError(err)
	s.Equal(data, got)
	s.Equal(info.Hash, Hash(got))
}

func (s *FSStoreSuite) TestKeysNeverCollide() {
	first, err := s.store.Put(s.ctx, []byte("a"), "same.pdf", "application/pdf")
	s.Require().NoError(err)
	second, err := s.store.Put(s.ctx, []byte("b"), "same.pdf", "application/pdf")
	s.Require().NoError(err)
	s.NotEqual(first.StorageKey, second.StorageKey)
}

func (s *FSStoreSuite) TestHostileNamesStayInDirectory() {
	info, err := s.store.Put(s.ctx, []byte("x"), "../../etc/passwd", "application/pdf")
	s.Require().NoError(err)
	s.NotContains(info.StorageKey, "/")
	s.NotContains(info.StorageKey, "..")

	got, err := s.store.Get(s.ctx, info.StorageKey)
	s.Require().NoError(err)
	s.Equal([]byte("x"), got)
}

func (s *FSStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "no-such-key")
	s.ErrorIs(err, ErrBlobNotFound)
}

func (s *FSStoreSuite) TestDelete() {
	info, err := s.store.Put(s.ctx, []byte("bytes"), "f.pdf", "application/pdf")
	s.Require().NoError(err)

	s.True(s.store.Delete(s.ctx, info.StorageKey))
	s.False(s.store.Delete(s.ctx, info.StorageKey))

	_, err = s.store.Get(s.ctx, info.StorageKey)
	s.ErrorIs(err, ErrBlobNotFound)
}

func TestAllowlist(t *testing.T) {
	list := Allowlist{"application/pdf", "image/png"}

	require.True(t, list.Allows("application/pdf"))
	require.True(t, list.Allows("Application/PDF"))
	require.True(t, list.Allows("application/pdf; charset=binary"))
	require.False(t, list.Allows("image/gif"))
	require.False(t, list.Allows(""))
	require.False(t, Allowlist{}.Allows("application/pdf"))
}
