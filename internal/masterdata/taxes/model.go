package taxes

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tax represents a tax configuration
type Tax struct {
	ID            int64           `json:"id"`
	TaxName       string          `json:"tax_name"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Request is the create/update payload.
type Request struct {
	TaxName       string          `json:"tax_name" validate:"required,max=100"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
}
