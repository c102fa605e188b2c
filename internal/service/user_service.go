package service

import (
	"context"
	"fmt"
	"strings"

	"vaultdrive/internal/domain"
)

// UserService регистрирует пользователей и отвечает за их поиск.
type UserService struct {
	userStore UserStore
}

func NewUserService(userStore UserStore) *UserService {
	return &UserService{userStore: userStore}
}

func (s *UserService) Create(ctx context.Context, username, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", domain.ErrValidation)
	}

	user := &domain.User{
		Username: username,
		Email:    email,
	}
	if err := s.userStore.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.userStore.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userStore.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}
