package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/welldanyogia/webrana-chat-backend/internal/errors"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/tests/fixtures"
)

type ServiceTestSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
}

func (s *ServiceTestSuite) SetupTest() {
	db := fixtures.OpenSQLite(s.T())
	s.service = NewService(repository.NewUserRepository(db), nil)
	s.ctx = context.Background()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) TestSignup_Success() {
	identity, err := s.service.Signup(s.ctx, Credentials{Username: "  alice_01 ", Password: "Secret1!"})
	s.Require().NoError(err)
	s.NotZero(identity.UserID)
	s.Equal("alice_01", identity.Username)
}

func (s *ServiceTestSuite) TestSignup_RuleMessages() {
	tests := []struct {
		name  string
		creds Credentials
		field string
		msg   string
	}{
		{"short username", Credentials{"abc", "Secret1!"}, "username", "username must be 4 to 32 characters"},
		{"bad username chars", Credentials{"al ice", "Secret1!"}, "username", "username must be 4 to 32 characters"},
		{"short password", Credentials{"alice", "Se1!"}, "password", "at least 6 characters"},
		{"no upper", Credentials{"alice", "secret1!"}, "password", "uppercase"},
		{"no lower", Credentials{"alice", "SECRET1!"}, "password", "lowercase"},
		{"no digit", Credentials{"alice", "Secret!!"}, "password", "digit"},
		{"no special", Credentials{"alice", "Secret11"}, "password", "!@#$%*?"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.Signup(s.ctx, tt.creds)
			vErr := apperrors.GetValidationError(err)
			s.Require().NotNil(vErr)
			s.Equal(tt.field, vErr.Field)
			s.Contains(vErr.Message, tt.msg)
		})
	}
}

func (s *ServiceTestSuite) TestSignup_DuplicateUsername() {
	_, err := s.service.Signup(s.ctx, Credentials{Username: "alice", Password: "Secret1!"})
	s.Require().NoError(err)

	_, err = s.service.Signup(s.ctx, Credentials{Username: "alice", Password: "Other2?x"})
	s.ErrorIs(err, apperrors.ErrDuplicateEntry)
	s.Equal(apperrors.CodeDuplicateEntry, apperrors.GetErrorCode(err))
}

func (s *ServiceTestSuite) TestLogin() {
	created, err := s.service.Signup(s.ctx, Credentials{Username: "alice", Password: "Secret1!"})
	s.Require().NoError(err)

	identity, err := s.service.Login(s.ctx, Credentials{Username: "alice", Password: "Secret1!"})
	s.Require().NoError(err)
	s.Equal(created, identity)

	_, err = s.service.Login(s.ctx, Credentials{Username: "alice", Password: "Wrong1!x"})
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.service.Login(s.ctx, Credentials{Username: "nobody", Password: "Secret1!"})
	s.ErrorIs(err, ErrInvalidCredentials)
	s.Equal("invalid username or password", err.Error())
}

func TestLogin_CorruptHashIsRejected(t *testing.T) {
	db := fixtures.OpenSQLite(t)
	user := fixtures.CreateUser(t, db, "legacy")
	require.NoError(t, db.Model(user).Update("password_hash", "md5:abc").Error)

	_, err := NewService(repository.NewUserRepository(db), nil).Login(context.Background(), Credentials{Username: "legacy", Password: "Secret1!"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
