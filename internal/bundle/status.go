// Package bundle derives stock-health status for bundle products whose
// availability depends on declared component variants.
package bundle

import "strings"

// Status is a product's stock health, totally ordered by severity:
// ok < understocked < out-of-stock.
type Status int

const (
	StatusOK Status = iota
	StatusUnderstocked
	StatusOutOfStock
)

func (s Status) String() string {
	switch s {
	case StatusUnderstocked:
		return "understocked"
	case StatusOutOfStock:
		return "out-of-stock"
	default:
		return "ok"
	}
}

// ParseStatus maps the persisted string form back to a Status.
func ParseStatus(v string) (Status, bool) {
	switch v {
	case "ok":
		return StatusOK, true
	case "understocked":
		return StatusUnderstocked, true
	case "out-of-stock":
		return StatusOutOfStock, true
	}
	return StatusOK, false
}

// Worse returns the higher-severity of two statuses.
func Worse(a, b Status) Status {
	if a > b {
		return a
	}
	return b
}

// Tag is the catalog tag encoding of a status (bundle-ok etc.).
func (s Status) Tag() string {
	return "bundle-" + s.String()
}

// BundleTag marks a product as a bundle. Membership is case-insensitive.
const BundleTag = "bundle"

var statusTags = []string{
	StatusOK.Tag(),
	StatusUnderstocked.Tag(),
	StatusOutOfStock.Tag(),
}

func isStatusTag(tag string) bool {
	for _, st := range statusTags {
		if strings.EqualFold(tag, st) {
			return true
		}
	}
	return false
}

// StatusFromTags recovers a status from legacy tag state, for products that
// predate persisted status records. ok=false when no status tag is present.
func StatusFromTags(tags []string) (Status, bool) {
	for _, t := range tags {
		for i, st := range statusTags {
			if strings.EqualFold(t, st) {
				return Status(i), true
			}
		}
	}
	return StatusOK, false
}

// RewriteStatusTags strips any existing status tags and appends the tag for
// the given status, preserving the order of all other tags.
func RewriteStatusTags(tags []string, s Status) []string {
	out := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		if !isStatusTag(t) {
			out = append(out, t)
		}
	}
	return append(out, s.Tag())
}
