package taxes

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/track-invoice/track-invoice/internal/shared"
)

var hundred = decimal.NewFromInt(100)

func (s *Service) validate(req Request) error {
	if err := shared.ValidateStruct(s.validator, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.TaxName) == "" {
		return fmt.Errorf("%w: tax_name is required", shared.ErrValidation)
	}
	if req.TaxPercentage.IsNegative() || req.TaxPercentage.GreaterThan(hundred) {
		return fmt.Errorf("%w: tax_percentage must be between 0 and 100", shared.ErrValidation)
	}
	return nil
}
