package clients

import "time"

// Client is a customer company. A client may own one login (role client)
// used by the portal.
type Client struct {
	ID          int64     `json:"id"`
	CompanyName string    `json:"company_name"`
	PICName     string    `json:"pic_name"`
	Email       string    `json:"email"`
	Contact     string    `json:"contact"`
	Address     string    `json:"address"`
	UserID      *int64    `json:"user_id,omitempty"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasLogin reports whether a portal login is linked.
func (c Client) HasLogin() bool {
	return c.UserID != nil
}

// Request is the create/update payload. Username and Password manage the
// linked portal login; Password may be omitted on update to keep the
// current one.
type Request struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
	PICName     string `json:"pic_name" validate:"max=200"`
	Email       string `json:"email" validate:"omitempty,email,max=200"`
	Contact     string `json:"contact" validate:"max=50"`
	Address     string `json:"address" validate:"max=500"`
	Username    string `json:"username" validate:"omitempty,min=3,max=50"`
	Password    string `json:"password" validate:"omitempty,min=6,max=72"`
}
