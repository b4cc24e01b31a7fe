package items

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	mdshared "github.com/track-invoice/track-invoice/internal/masterdata/shared"
	"github.com/track-invoice/track-invoice/internal/pricing"
	"github.com/track-invoice/track-invoice/internal/shared"
)

type Service struct {
	repo      Repository
	validator *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters, extra Filters) ([]Item, int, error) {
	return s.repo.List(ctx, filters.Normalize(), extra)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, fmt.Errorf("%w: invalid item id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Item, error) {
	if err := s.validate(req); err != nil {
		return Item{}, err
	}
	return s.repo.Create(ctx, toItem(req))
}

func (s *Service) Update(ctx context.Context, id int64, req Request) (Item, error) {
	if id <= 0 {
		return Item{}, fmt.Errorf("%w: invalid item id", shared.ErrValidation)
	}
	if err := s.validate(req); err != nil {
		return Item{}, err
	}
	return s.repo.Update(ctx, id, toItem(req))
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid item id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func toItem(req Request) Item {
	return Item{
		ItemName:     strings.TrimSpace(req.ItemName),
		Description:  strings.TrimSpace(req.Description),
		Category:     strings.TrimSpace(req.Category),
		DefaultPrice: pricing.Round(req.DefaultPrice),
	}
}
