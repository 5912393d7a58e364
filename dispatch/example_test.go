package dispatch_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marioser/dolibarr-mcp/cache"
	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/dispatch"
)

type staticUpstream struct{ result any }

func (s staticUpstream) Execute(context.Context, catalog.CallTarget, map[string]any) (any, error) {
	return s.result, nil
}

func ExampleDispatcher_Dispatch() {
	cat := catalog.MustNew(catalog.Descriptor{
		Name:      "get_customers",
		Target:    catalog.CallTarget{Method: http.MethodGet, Path: "thirdparties"},
		Cacheable: true,
		TTL:       5 * time.Minute,
	})

	d, _ := dispatch.New(dispatch.Options{
		Catalog:  cat,
		Upstream: staticUpstream{result: []any{map[string]any{"id": "1"}}},
		Cache:    cache.NewAdapter(cache.NewMemoryStore(), cache.AdapterOptions{}),
	})

	ctx := context.Background()
	for range 2 {
		res, err := d.Dispatch(ctx, "get_customers", map[string]any{"limit": 10})
		fmt.Println(res.Data, res.FromCache, err)
	}
	// Output:
	// [map[id:1]] false <nil>
	// [map[id:1]] true <nil>
}

func ExampleDispatcher_Dispatch_unknown() {
	d, _ := dispatch.New(dispatch.Options{
		Catalog:  catalog.MustNew(),
		Upstream: staticUpstream{},
	})

	_, err := d.Dispatch(context.Background(), "get_planets", nil)
	fmt.Println(err)
	// Output: UNKNOWN_TOOL: Unknown tool: get_planets
}
