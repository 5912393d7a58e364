package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubProvider struct {
	name   string
	values map[string]string
	closed bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := s.values[ref]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:env:DOLIBARR_API_KEY", "env", "DOLIBARR_API_KEY", true},
		{"secretref:file:/run/secrets/a:b", "file", "/run/secrets/a:b", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"secretref:env", "", "", false},
		{"secretref:env:A and secretref:env:B", "", "", false},
		{"plain", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			provider, ref, ok := ParseSecretRef(tt.in)
			if provider != tt.provider || ref != tt.ref || ok != tt.ok {
				t.Errorf("ParseSecretRef() = %q, %q, %v", provider, ref, ok)
			}
		})
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("DOLIBARR_HOST", "erp.local")
	t.Setenv("SECRET_NAME", "api")
	r := NewResolver(true, &stubProvider{name: "vault", values: map[string]string{"api": "k-123", "empty": ""}})

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "abc", "abc", nil},
		{"env expansion", "https://${DOLIBARR_HOST}", "https://erp.local", nil},
		{"full ref", "secretref:vault:api", "k-123", nil},
		{"ref after expansion", "secretref:vault:${SECRET_NAME}", "k-123", nil},
		{"inline refs", "Bearer secretref:vault:api and secretref:vault:api", "Bearer k-123 and k-123", nil},
		{"unknown provider", "secretref:nope:x", "", ErrUnknownProvider},
		{"missing ref", "secretref:vault:other", "", ErrNotFound},
		{"strict empty", "secretref:vault:empty", "", ErrEmpty},
		{"missing env", "${DOLIBARR_UNSET_VAR}", "", ErrMissingEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(context.Background(), tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ResolveValue() = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
}

func TestResolver_NonStrictAllowsEmpty(t *testing.T) {
	r := NewResolver(false, &stubProvider{name: "vault", values: map[string]string{"empty": ""}})
	got, err := r.ResolveValue(context.Background(), "secretref:vault:empty")
	if err != nil || got != "" {
		t.Errorf("ResolveValue() = %q, %v", got, err)
	}
}

func TestResolver_ResolveAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redis_password")
	if err := os.WriteFile(path, []byte("hunter2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOLIBARR_TEST_KEY", "abc")

	apiKey := "secretref:env:DOLIBARR_TEST_KEY"
	password := "secretref:file:" + path
	empty := ""
	r := NewDefaultResolver(true)
	err := r.ResolveAll(context.Background(), map[string]*string{
		"api key":        &apiKey,
		"cache password": &password,
		"jwt secret":     &empty,
		"unset":          nil,
	})
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if apiKey != "abc" || password != "hunter2" || empty != "" {
		t.Errorf("resolved = %q %q %q", apiKey, password, empty)
	}

	bad := "secretref:env:DOLIBARR_TEST_UNSET"
	err = r.ResolveAll(context.Background(), map[string]*string{"api key": &bad})
	if err == nil || !strings.HasPrefix(err.Error(), "resolve api key:") {
		t.Errorf("error = %v", err)
	}
}

func TestResolver_ResolveSlice(t *testing.T) {
	t.Setenv("KEY_ONE", "one")
	r := NewDefaultResolver(true)
	got, err := r.ResolveSlice(context.Background(), []string{"secretref:env:KEY_ONE", "two"})
	if err != nil || len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("ResolveSlice() = %v, %v", got, err)
	}
}

func TestResolver_Close(t *testing.T) {
	p := &stubProvider{name: "vault"}
	if err := NewResolver(false, p, nil).Close(); err != nil || !p.closed {
		t.Errorf("Close() = %v, closed = %v", err, p.closed)
	}
}
