package upstream_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/failure"
	"github.com/marioser/dolibarr-mcp/upstream"
)

func ExampleClient_Execute() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"1","name":"Acme"}]`)
	}))
	defer srv.Close()

	client, err := upstream.New(upstream.Config{
		BaseURL: srv.URL + "/api/index.php",
		APIKey:  "secret",
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	target := catalog.CallTarget{Method: http.MethodGet, Path: "thirdparties"}
	res, err := client.Execute(context.Background(), target, nil)
	fmt.Println(res, err)
	// Output: [map[id:1 name:Acme]] <nil>
}

func ExampleClient_Execute_failure() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, _ := upstream.New(upstream.Config{
		BaseURL:      srv.URL + "/api/index.php",
		APIKey:       "secret",
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	})

	_, err := client.Execute(context.Background(), catalog.CallTarget{Method: http.MethodGet, Path: "invoices"}, nil)
	f, _ := failure.As(err)
	fmt.Println(f.Kind, f.Status, f.Retriable)
	// Output: TransientServerError 503 true
}
