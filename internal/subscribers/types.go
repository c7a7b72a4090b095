// Package subscribers holds back-in-stock subscriber records and the merge
// logic that reconciles the two legacy storage keys (product id and handle).
package subscribers

import (
	"strings"
	"time"
)

// Record is one subscriber registration for one product.
type Record struct {
	Email         string    `json:"email" dynamodbav:"email"`
	Phone         string    `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	SMSConsent    bool      `json:"sms_consent" dynamodbav:"sms_consent"`
	ProductID     int64     `json:"product_id" dynamodbav:"product_id"`
	ProductHandle string    `json:"product_handle" dynamodbav:"product_handle"`
	ProductTitle  string    `json:"product_title" dynamodbav:"product_title"`
	ProductURL    string    `json:"product_url" dynamodbav:"product_url"`
	Notified      bool      `json:"notified" dynamodbav:"notified"`
	SubscribedAt  time.Time `json:"subscribed_at" dynamodbav:"subscribed_at"`
	LastRearmedAt time.Time `json:"last_rearmed_at,omitempty" dynamodbav:"last_rearmed_at,omitempty"`
	RearmCount    int       `json:"rearm_count" dynamodbav:"rearm_count"`
}

// IdentityKey derives the dedupe key: normalized phone when present,
// otherwise the lower-cased email.
func (r Record) IdentityKey() string {
	if phone := NormalizePhone(r.Phone); phone != "" {
		return phone
	}
	return strings.ToLower(strings.TrimSpace(r.Email))
}

// effectiveTime is the timestamp used for merge conflict resolution:
// the last re-arm when set, else the original subscription time.
func (r Record) effectiveTime() time.Time {
	if !r.LastRearmedAt.IsZero() {
		return r.LastRearmedAt
	}
	return r.SubscribedAt
}

// NormalizePhone converts a raw phone string to E.164 form. Returns "" when
// the input cannot be normalized. Ten-digit numbers are assumed NANP.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && d[0] == '1':
		return "+" + d
	case strings.HasPrefix(raw, "+") && len(d) >= 10 && len(d) <= 15:
		return "+" + d
	}
	return ""
}
