package catalog

import (
	"reflect"
	"testing"
)

func TestFilterFields(t *testing.T) {
	in := map[string]any{
		"id":     "1",
		"ref":    "FA01",
		"secret": "x",
		"lines": []any{
			map[string]any{"id": "9", "qty": 2, "internal": true},
		},
	}
	got := FilterFields(in, []string{"id", "ref", "lines"})
	want := map[string]any{
		"id":    "1",
		"ref":   "FA01",
		"lines": []any{map[string]any{"id": "9", "qty": 2}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterFields() = %v, want %v", got, want)
	}

	if got := FilterFields("scalar", []string{"id"}); got != "scalar" {
		t.Errorf("FilterFields(scalar) = %v", got)
	}
	if got := FilterFields(in, nil); !reflect.DeepEqual(got, in) {
		t.Error("FilterFields(nil fields) should pass through")
	}
}

func TestDescriptor_Shape_Paginated(t *testing.T) {
	d := describe(t, "get_customers")
	raw := []any{
		map[string]any{"id": "1", "name": "A", "array_options": map[string]any{}},
		map[string]any{"id": "2", "name": "B"},
	}

	got := d.Shape(raw, map[string]any{"limit": float64(2), "page": float64(3)}).(map[string]any)
	items := got["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %v", items)
	}
	if _, ok := items[0].(map[string]any)["array_options"]; ok {
		t.Error("array_options should be filtered out")
	}
	want := map[string]any{"limit": 2, "offset": 4, "count": 2, "has_more": true}
	if !reflect.DeepEqual(got["pagination"], want) {
		t.Errorf("pagination = %v, want %v", got["pagination"], want)
	}

	empty := d.Shape(map[string]any{"error": "odd"}, nil).(map[string]any)
	if items := empty["items"].([]any); len(items) != 0 {
		t.Errorf("non-list result items = %v, want empty", items)
	}
	if p := empty["pagination"].(map[string]any); p["limit"] != 100 || p["has_more"] != false {
		t.Errorf("pagination = %v", p)
	}
}

func TestDescriptor_Shape_CreateReturnsID(t *testing.T) {
	d := describe(t, "create_invoice")
	tests := []struct {
		name string
		raw  any
		want any
	}{
		{"scalar", float64(42), float64(42)},
		{"id key", map[string]any{"id": "7"}, "7"},
		{"success id", map[string]any{"success": map[string]any{"id": 9}}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Shape(tt.raw, nil); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Shape() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveRef(t *testing.T) {
	a := map[string]any{"id": "1", "ref": "A-1", "note": "x"}
	b := map[string]any{"id": "2", "ref": "a-1"}
	c := map[string]any{"id": "3", "ref": "A-1"}

	tests := []struct {
		name   string
		raw    any
		status string
	}{
		{"none", []any{}, RefNotFound},
		{"not a list", map[string]any{}, RefNotFound},
		{"single", []any{b}, RefOK},
		{"exact among case variants", []any{a, b}, RefOK},
		{"two exact", []any{a, c}, RefAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRef(tt.raw, "A-1", ProductFields)
			if got["status"] != tt.status {
				t.Errorf("status = %v, want %s", got["status"], tt.status)
			}
		})
	}

	got := describe(t, "resolve_product_ref").Shape([]any{a, b}, map[string]any{"ref": "A-1"}).(map[string]any)
	product := got["product"].(map[string]any)
	if product["id"] != "1" {
		t.Errorf("product = %v, want id 1", product)
	}
	if _, ok := product["note"]; ok {
		t.Error("product fields should be filtered")
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{float64(12), "12"},
		{12.5, "12.5"},
		{"abc", "abc"},
		{7, "7"},
		{true, "true"},
	}
	for _, tt := range tests {
		got, err := Scalar(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("Scalar(%v) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := Scalar([]any{1}); err == nil {
		t.Error("Scalar(list) should fail")
	}
}
