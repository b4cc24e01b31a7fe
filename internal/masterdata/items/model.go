package items

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalogue entry quotations pick their lines from.
type Item struct {
	ID           int64           `json:"id"`
	ItemName     string          `json:"item_name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	DefaultPrice decimal.Decimal `json:"default_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Request is the create/update payload.
type Request struct {
	ItemName     string          `json:"item_name" validate:"required,max=200"`
	Description  string          `json:"description" validate:"max=2000"`
	Category     string          `json:"category" validate:"max=100"`
	DefaultPrice decimal.Decimal `json:"default_price"`
}

// Filters narrows List beyond the common paging filters.
type Filters struct {
	Category string
}
