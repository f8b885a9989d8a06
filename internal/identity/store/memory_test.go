package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"signet/internal/identity/models"
	id "signet/pkg/domain"
	"signet/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryUserStoreSuite) newUser(email string) *models.User {
	user, err := models.NewUser(id.NewUserID(), email, "", "", s.now)
	s.Require().NoError(err)
	return user
}

func (s *InMemoryUserStoreSuite) TestCreateAndFind() {
	user := s.newUser("ada@example.com")
	s.Require().NoError(s.store.Create(s.ctx, user))

	byID, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, byID.Email)

	byEmail, err := s.store.FindByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, byEmail.ID)
}

func (s *InMemoryUserStoreSuite) TestDuplicateEmailRejected() {
	s.Require().NoError(s.store.Create(s.ctx, s.newUser("dup@example.com")))
	err := s.store.Create(s.ctx, s.newUser("dup@example.com"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *InMemoryUserStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByShopDomain(s.ctx, "missing.myshopify.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestFindByExternalID() {
	user := s.newUser("ext@example.com")
	user.ExternalID = "cust-42"
	s.Require().NoError(s.store.Create(s.ctx, user))

	found, err := s.store.FindByExternalID(s.ctx, "cust-42")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)
}

func (s *InMemoryUserStoreSuite) TestFindByShopDomain() {
	user := s.newUser("shop@example.com")
	user.ShopDomain = "demo.myshopify.com"
	s.Require().NoError(s.store.Create(s.ctx, user))

	found, err := s.store.FindByShopDomain(s.ctx, "demo.myshopify.com")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)
}

func (s *InMemoryUserStoreSuite) TestUpdate() {
	user := s.newUser("update@example.com")
	s.Require().NoError(s.store.Create(s.ctx, user))

	user.FirstName = "Ada"
	s.Require().NoError(s.store.Update(s.ctx, user))

	found, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("Ada", found.FirstName)
}

func (s *InMemoryUserStoreSuite) TestUpdateMissing() {
	user := s.newUser("ghost@example.com")
	s.ErrorIs(s.store.Update(s.ctx, user), sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestCallersDoNotShareMemory() {
	user := s.newUser("clone@example.com")
	s.Require().NoError(s.store.Create(s.ctx, user))

	found, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	found.FirstName = "mutated"

	again, err := s.store.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Empty(again.FirstName)
}
