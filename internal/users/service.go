package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

// Service interface defines the contract for user business logic
type Service interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// CreateGuestAccount returns an account id for a guest checkout. An
	// existing account with the same email is reused rather than
	// duplicated.
	CreateGuestAccount(ctx context.Context, email, name, phone string) (uuid.UUID, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) CreateGuestAccount(ctx context.Context, email, name, phone string) (uuid.UUID, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return uuid.Nil, apperrors.Validation("guest email is required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return uuid.Nil, err
	}

	if name == "" {
		name = "Guest"
	}
	user := &User{
		ID:    uuid.New(),
		Name:  name,
		Email: email,
		Phone: phone,
		Role:  RoleUser,
		Guest: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// A concurrent guest checkout with the same email may have won
		// the unique index; reuse that account.
		if again, lookupErr := s.repo.GetByEmail(ctx, email); lookupErr == nil {
			return again.ID, nil
		}
		return uuid.Nil, err
	}
	return user.ID, nil
}
