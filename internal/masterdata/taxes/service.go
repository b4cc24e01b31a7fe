package taxes

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

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Tax, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Tax, error) {
	if id <= 0 {
		return Tax{}, fmt.Errorf("%w: invalid tax id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req Request) (Tax, error) {
	if err := s.validate(req); err != nil {
		return Tax{}, err
	}
	return s.repo.Create(ctx, toTax(req))
}

func (s *Service) Update(ctx context.Context, id int64, req Request) (Tax, error) {
	if id <= 0 {
		return Tax{}, fmt.Errorf("%w: invalid tax id", shared.ErrValidation)
	}
	if err := s.validate(req); err != nil {
		return Tax{}, err
	}
	return s.repo.Update(ctx, id, toTax(req))
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid tax id", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

func toTax(req Request) Tax {
	return Tax{TaxName: strings.TrimSpace(req.TaxName), TaxPercentage: pricing.Round(req.TaxPercentage)}
}
