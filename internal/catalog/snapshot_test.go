package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildSnapshot_IndexesVariantQuantities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"products":[
			{"id":1,"handle":"a","variants":[{"id":11,"inventory_quantity":4},{"id":12,"inventory_quantity":0}]},
			{"id":2,"handle":"b","variants":[{"id":21,"inventory_quantity":-2}]}
		]}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	snap, err := BuildSnapshot(context.Background(), c)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if len(snap.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(snap.Products))
	}

	for id, want := range map[string]int{"11": 4, "12": 0, "21": -2} {
		got, err := snap.VariantQuantity(context.Background(), id)
		if err != nil {
			t.Fatalf("VariantQuantity(%s): %v", id, err)
		}
		if got != want {
			t.Fatalf("VariantQuantity(%s) = %d, want %d", id, got, want)
		}
	}
}

func TestSnapshot_FallbackFetchesAndCachesMissingVariant(t *testing.T) {
	variantCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/variants/") {
			variantCalls++
			fmt.Fprint(w, `{"variant":{"inventory_quantity":7}}`)
			return
		}
		fmt.Fprint(w, `{"products":[]}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	snap, err := BuildSnapshot(context.Background(), c)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}

	for i := 0; i < 2; i++ {
		qty, err := snap.VariantQuantity(context.Background(), "999")
		if err != nil {
			t.Fatalf("fallback fetch: %v", err)
		}
		if qty != 7 {
			t.Fatalf("qty = %d, want 7", qty)
		}
	}
	if variantCalls != 1 {
		t.Fatalf("fallback result must be cached, got %d variant calls", variantCalls)
	}
}
