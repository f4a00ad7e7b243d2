package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/crypto"
	"schoolschedule/internal/db"
)

type UserQueries interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUser(ctx context.Context, id int32) (db.User, error)
	GetUserByUsername(ctx context.Context, username string) (db.User, error)
	ListUsers(ctx context.Context, limit, offset int32) ([]db.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUser(ctx context.Context, arg db.UpdateUserParams) (db.User, error)
	DeleteUser(ctx context.Context, id int32) (bool, error)
}

type CreateUserInput struct {
	Username string
	Password string
	Role     db.Role
	FullName *string
}

type UpdateUserInput struct {
	ID       int32
	Username *string
	Password *string
	Role     *db.Role
	FullName *string
}

type UserService struct {
	q   UserQueries
	log zerolog.Logger
}

func NewUserService(q UserQueries, log zerolog.Logger) *UserService {
	return &UserService{q: q, log: log.With().Str("component", "user_service").Logger()}
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (db.User, error) {
	role := in.Role
	if role == "" {
		role = db.RoleUser
	}
	if !role.Valid() {
		return db.User{}, apperr.BadRequest("unknown role " + string(role))
	}
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return db.User{}, apperr.Internal("hash password", err)
	}
	user, err := s.q.CreateUser(ctx, db.CreateUserParams{
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Role:         role,
		FullName:     in.FullName,
	})
	if err != nil {
		return db.User{}, apperr.FromDB(err, "User")
	}
	s.log.Info().Int32("user_id", user.ID).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

// Authenticate checks a username and password pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (db.User, error) {
	user, err := s.q.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.Is(apperr.FromDB(err, "User"), apperr.KindNotFound) {
			s.log.Info().Str("username", username).Msg("login for unknown user")
			return db.User{}, apperr.Unauthorized("invalid credentials")
		}
		return db.User{}, apperr.FromDB(err, "User")
	}
	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		s.log.Info().Int32("user_id", user.ID).Msg("login with wrong password")
		return db.User{}, apperr.Unauthorized("invalid credentials")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int32) (db.User, error) {
	user, err := s.q.GetUser(ctx, id)
	if err != nil {
		return db.User{}, apperr.FromDB(err, "User")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, req PageRequest) (Page[db.User], error) {
	return listPage(ctx, req, "User", s.q.ListUsers, s.q.CountUsers)
}

func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (db.User, error) {
	if in.Role != nil && !in.Role.Valid() {
		return db.User{}, apperr.BadRequest("unknown role " + string(*in.Role))
	}
	arg := db.UpdateUserParams{ID: in.ID, Username: in.Username, Role: in.Role, FullName: in.FullName}
	if in.Password != nil {
		hash, err := crypto.HashPassword(*in.Password)
		if err != nil {
			return db.User{}, apperr.Internal("hash password", err)
		}
		arg.PasswordHash = &hash
	}
	user, err := s.q.UpdateUser(ctx, arg)
	if err != nil {
		return db.User{}, apperr.FromDB(err, "User")
	}
	s.log.Info().Int32("user_id", user.ID).Msg("user updated")
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int32) (bool, error) {
	deleted, err := s.q.DeleteUser(ctx, id)
	if err != nil {
		return false, apperr.FromDB(err, "User")
	}
	return deleted, nil
}
