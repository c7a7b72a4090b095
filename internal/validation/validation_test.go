package validation

import (
	"testing"
)

func TestSubscribeRequestValidation(t *testing.T) {
	v := New()

	cases := []struct {
		name    string
		req     SubscribeRequest
		wantErr bool
	}{
		{
			name: "valid email only",
			req:  SubscribeRequest{Email: "a@example.com", ProductID: 1, ProductHandle: "widget"},
		},
		{
			name: "valid with sms consent and phone",
			req: SubscribeRequest{
				Email: "a@example.com", Phone: "+15551234567", SMSConsent: true,
				ProductID: 1, ProductHandle: "widget",
			},
		},
		{
			name: "sms consent accepts ten digit national phone",
			req: SubscribeRequest{
				Email: "a@example.com", Phone: "5551234567", SMSConsent: true,
				ProductID: 1, ProductHandle: "widget",
			},
		},
		{
			name:    "missing email",
			req:     SubscribeRequest{ProductID: 1, ProductHandle: "widget"},
			wantErr: true,
		},
		{
			name:    "malformed email",
			req:     SubscribeRequest{Email: "nope", ProductID: 1, ProductHandle: "widget"},
			wantErr: true,
		},
		{
			name:    "missing product id",
			req:     SubscribeRequest{Email: "a@example.com", ProductHandle: "widget"},
			wantErr: true,
		},
		{
			name:    "missing product handle",
			req:     SubscribeRequest{Email: "a@example.com", ProductID: 1},
			wantErr: true,
		},
		{
			name: "sms consent without phone",
			req: SubscribeRequest{
				Email: "a@example.com", SMSConsent: true,
				ProductID: 1, ProductHandle: "widget",
			},
			wantErr: true,
		},
		{
			name: "sms consent with garbage phone",
			req: SubscribeRequest{
				Email: "a@example.com", Phone: "call me", SMSConsent: true,
				ProductID: 1, ProductHandle: "widget",
			},
			wantErr: true,
		},
		{
			name: "bad product url",
			req: SubscribeRequest{
				Email: "a@example.com", ProductID: 1, ProductHandle: "widget",
				ProductURL: "not a url",
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		err := v.Struct(tc.req)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr = %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestUnsubscribeRequestValidation(t *testing.T) {
	v := New()

	if err := v.Struct(UnsubscribeRequest{Email: "a@example.com", ProductID: 1}); err != nil {
		t.Errorf("email identity should validate: %v", err)
	}
	if err := v.Struct(UnsubscribeRequest{Phone: "+15551234567", ProductID: 1}); err != nil {
		t.Errorf("phone identity should validate: %v", err)
	}
	if err := v.Struct(UnsubscribeRequest{ProductID: 1}); err == nil {
		t.Error("expected error with neither email nor phone")
	}
	if err := v.Struct(UnsubscribeRequest{Email: "a@example.com"}); err == nil {
		t.Error("expected error with missing product id")
	}
}
