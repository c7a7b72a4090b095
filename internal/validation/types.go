package validation

// SubscribeRequest is the payload for POST /subscriptions.
type SubscribeRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone,omitempty"`       // normalized server-side
	SMSConsent    bool   `json:"sms_consent"`           // requires a valid phone, see struct rule
	ProductID     int64  `json:"product_id" validate:"required"`
	ProductHandle string `json:"product_handle" validate:"required"`
	ProductTitle  string `json:"product_title"`
	ProductURL    string `json:"product_url" validate:"omitempty,url"`
}

// UnsubscribeRequest is the payload for DELETE /subscriptions. Identity is
// matched by phone when present, else by email.
type UnsubscribeRequest struct {
	Email     string `json:"email" validate:"required_without=Phone,omitempty,email"`
	Phone     string `json:"phone,omitempty"`
	ProductID int64  `json:"product_id" validate:"required"`
}
