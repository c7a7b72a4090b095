package catalog

import (
	"context"
	"fmt"
	"strconv"
)

// Snapshot is one sweep's view of the catalog: every product plus an index
// from variant id (as string) to its current quantity.
type Snapshot struct {
	Products []Product

	client     *Client
	quantities map[string]int
}

// BuildSnapshot fetches the full catalog in one paginated pass and indexes
// variant quantities for O(1) component lookups.
func BuildSnapshot(ctx context.Context, client *Client) (*Snapshot, error) {
	products, err := client.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	quantities := make(map[string]int)
	for _, p := range products {
		for _, v := range p.Variants {
			quantities[strconv.FormatInt(v.ID, 10)] = v.InventoryQuantity
		}
	}

	return &Snapshot{
		Products:   products,
		client:     client,
		quantities: quantities,
	}, nil
}

// VariantQuantity returns the snapshot quantity for a variant. When the id is
// missing from the index (e.g. a variant created mid-sweep) it falls back to
// one direct fetch and caches the result.
func (s *Snapshot) VariantQuantity(ctx context.Context, variantID string) (int, error) {
	if qty, ok := s.quantities[variantID]; ok {
		return qty, nil
	}
	qty, err := s.client.GetVariantQuantity(ctx, variantID)
	if err != nil {
		return 0, err
	}
	s.quantities[variantID] = qty
	return qty, nil
}
