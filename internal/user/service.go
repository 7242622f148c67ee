// Package user handles accounts: registration, login and the caller's own
// profile.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/auth"
	"github.com/SergeyParamoshkin/newsportal/internal/model"
	"github.com/SergeyParamoshkin/newsportal/internal/store"
)

type Store interface {
	CreateUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, mutate func(*model.User) error) (*model.User, error)
}

type Service struct {
	store  Store
	hasher auth.Hasher
	tokens auth.Tokens
	log    *zap.SugaredLogger
}

func NewService(store Store, hasher auth.Hasher, tokens auth.Tokens, log *zap.SugaredLogger) *Service {
	return &Service{store: store, hasher: hasher, tokens: tokens, log: log}
}

// Register creates an account and signs the new user in. Emails are
// trimmed and otherwise kept as given; only an exact duplicate is
// store.ErrConflict.
func (s *Service) Register(ctx context.Context, email, password, name string) (*model.User, string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	u, err := s.store.CreateUser(ctx, &model.User{
		Email:        normalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	})
	if err != nil {
		return nil, "", err
	}
	s.log.Infow("registered user", "user", u.ID)

	return s.signIn(u)
}

// Login returns auth.ErrInvalidCredentials for an unknown email or a wrong
// password alike.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, "", auth.ErrInvalidCredentials
	case err != nil:
		return nil, "", err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, "", err
	}

	return s.signIn(u)
}

func (s *Service) Me(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateProfile changes the name and/or password of user id. Nil fields are
// left alone.
func (s *Service) UpdateProfile(ctx context.Context, id int64, name, password *string) (*model.User, error) {
	var hash string
	if password != nil {
		h, err := s.hasher.Hash(*password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	return s.store.UpdateUser(ctx, id, func(u *model.User) error {
		if name != nil {
			u.Name = strings.TrimSpace(*name)
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		return nil
	})
}

func (s *Service) signIn(u *model.User) (*model.User, string, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token for user %d: %w", u.ID, err)
	}

	return u, token, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
