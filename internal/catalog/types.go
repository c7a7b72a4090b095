package catalog

import "strings"

// Variant is a purchasable variation of a product. Quantity can go negative
// when the store allows overselling.
type Variant struct {
	ID                int64  `json:"id"`
	Title             string `json:"title,omitempty"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// Product is a read-only catalog snapshot row. Tags come over the wire as a
// single comma-separated string.
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Handle   string    `json:"handle"`
	Tags     string    `json:"tags"`
	Variants []Variant `json:"variants"`
}

// TagList splits the comma-separated tag string, trimming whitespace and
// dropping empties.
func (p Product) TagList() []string {
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// HasTag reports whether the product carries the named tag, case-insensitively.
func (p Product) HasTag(name string) bool {
	for _, t := range p.TagList() {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// InventoryTotal sums the product's variant quantities.
func (p Product) InventoryTotal() int {
	total := 0
	for _, v := range p.Variants {
		total += v.InventoryQuantity
	}
	return total
}

// JoinTags is the inverse of TagList, producing the wire encoding.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
