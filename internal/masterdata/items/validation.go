package items

import (
	"fmt"
	"strings"

	"github.com/track-invoice/track-invoice/internal/shared"
)

func (s *Service) validate(req Request) error {
	if err := shared.ValidateStruct(s.validator, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.ItemName) == "" {
		return fmt.Errorf("%w: item_name is required", shared.ErrValidation)
	}
	if req.DefaultPrice.IsNegative() {
		return fmt.Errorf("%w: default_price must not be negative", shared.ErrValidation)
	}
	return nil
}
