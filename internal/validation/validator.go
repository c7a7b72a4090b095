package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/bundlewatch/go-restock-sweep/internal/subscribers"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for SubscribeRequest to ensure
	// SMS consent is only accepted alongside a normalizable phone number.
	v.RegisterStructValidation(subscribeStructValidation, SubscribeRequest{})

	return v
}

// subscribeStructValidation rejects sms_consent=true when the phone cannot be
// normalized to E.164.
func subscribeStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(SubscribeRequest)

	if req.SMSConsent && subscribers.NormalizePhone(req.Phone) == "" {
		sl.ReportError(req.Phone, "phone", "Phone", "phone_required_for_sms", "")
	}
}
