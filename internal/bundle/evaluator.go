package bundle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bundlewatch/go-restock-sweep/internal/catalog"
)

// Component is one declared line item of a bundle.
type Component struct {
	VariantID        string
	RequiredQuantity int
}

// rawComponent tolerates variant_id arriving as a JSON number or string.
type rawComponent struct {
	VariantID        json.Number `json:"variant_id"`
	RequiredQuantity int         `json:"required_quantity"`
}

// ParseComponents decodes the bundle-structure metafield value. Absence or a
// malformed payload yields an empty component list, never an error.
func ParseComponents(raw string) []Component {
	if raw == "" {
		return nil
	}
	var rows []rawComponent
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil
	}
	comps := make([]Component, 0, len(rows))
	for _, r := range rows {
		id := r.VariantID.String()
		if id == "" {
			continue
		}
		required := r.RequiredQuantity
		if required <= 0 {
			required = 1
		}
		comps = append(comps, Component{VariantID: id, RequiredQuantity: required})
	}
	return comps
}

// QuantityFunc resolves a variant id to its current quantity.
type QuantityFunc func(ctx context.Context, variantID string) (int, error)

// ComponentsStatus classifies the declared components: any component at zero
// quantity makes the bundle out-of-stock; any component below its required
// quantity makes it understocked.
func ComponentsStatus(ctx context.Context, comps []Component, quantity QuantityFunc) (Status, error) {
	status := StatusOK
	for _, comp := range comps {
		qty, err := quantity(ctx, comp.VariantID)
		if err != nil {
			return StatusOK, fmt.Errorf("component variant %s: %w", comp.VariantID, err)
		}
		switch {
		case qty == 0:
			status = Worse(status, StatusOutOfStock)
		case qty < comp.RequiredQuantity:
			status = Worse(status, StatusUnderstocked)
		}
	}
	return status, nil
}

// OwnStatus classifies a bundle's own variants, independent of components:
// all variants exactly zero means out-of-stock; any negative quantity or a
// negative total means understocked (oversell).
func OwnStatus(p catalog.Product) Status {
	if len(p.Variants) == 0 {
		return StatusOK
	}
	allZero := true
	anyNegative := false
	total := 0
	for _, v := range p.Variants {
		if v.InventoryQuantity != 0 {
			allZero = false
		}
		if v.InventoryQuantity < 0 {
			anyNegative = true
		}
		total += v.InventoryQuantity
	}
	if allZero {
		return StatusOutOfStock
	}
	if anyNegative || total < 0 {
		return StatusUnderstocked
	}
	return StatusOK
}

// Evaluate computes a bundle's final status: the worse of its components
// status and its own-variant status.
func Evaluate(ctx context.Context, p catalog.Product, comps []Component, quantity QuantityFunc) (Status, error) {
	compStatus, err := ComponentsStatus(ctx, comps, quantity)
	if err != nil {
		return StatusOK, err
	}
	return Worse(compStatus, OwnStatus(p)), nil
}

// IsBundle reports whether the product participates in bundle evaluation.
func IsBundle(p catalog.Product) bool {
	return p.HasTag(BundleTag)
}
