package clients

import (
	"fmt"
	"strings"

	"github.com/track-invoice/track-invoice/internal/shared"
)

func (s *Service) validate(req *Request) error {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.PICName = strings.TrimSpace(req.PICName)
	req.Email = strings.TrimSpace(req.Email)
	req.Contact = strings.TrimSpace(req.Contact)
	req.Address = strings.TrimSpace(req.Address)
	req.Username = strings.TrimSpace(req.Username)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return err
	}
	if req.Password != "" && req.Username == "" {
		return fmt.Errorf("%w: password requires a username", shared.ErrValidation)
	}
	return nil
}
