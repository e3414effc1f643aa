package service

import (
	"context"

	"github.com/energia/energia-dashboard/internal/domain"
)

type UserService struct {
	api   UserAPI
	files FileAPI
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	out, err := s.api.ListUsers(ctx)
	return out, wrap("list users", err)
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.api.GetUser(ctx, id)
	return u, wrap("get user", err)
}

func (s *UserService) Search(ctx context.Context, q string) ([]domain.User, error) {
	if q == "" {
		return s.List(ctx)
	}
	out, err := s.api.SearchUsers(ctx, q)
	return out, wrap("search users", err)
}

func (s *UserService) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	if err := Validate(u); err != nil {
		return nil, err
	}
	u.ID = 0
	out, err := s.api.CreateUser(ctx, u)
	return out, wrap("create user", err)
}

func (s *UserService) Update(ctx context.Context, id int64, u domain.User) (*domain.User, error) {
	if err := Validate(u); err != nil {
		return nil, err
	}
	u.ID = id
	out, err := s.api.UpdateUser(ctx, id, u)
	return out, wrap("update user", err)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return wrap("delete user", s.api.DeleteUser(ctx, id))
}

func (s *UserService) Files(ctx context.Context, id int64) ([]domain.FileInfo, error) {
	out, err := s.files.FilesByUser(ctx, id)
	return out, wrap("list user files", err)
}
