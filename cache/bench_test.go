package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkMemoryStore_Get_Hit(b *testing.B) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "key", []byte("value"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get(ctx, "key")
	}
}

func BenchmarkMemoryStore_Set(b *testing.B) {
	s := NewMemoryStore()
	ctx := context.Background()
	value := []byte("test value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Set(ctx, fmt.Sprintf("key-%d", i), value, time.Hour)
	}
}

func BenchmarkMemoryStore_Concurrent_ReadHeavy(b *testing.B) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "key", []byte("value"), time.Hour)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				_ = s.Set(ctx, "key", []byte("value"), time.Hour)
			} else {
				_, _ = s.Get(ctx, "key")
			}
			i++
		}
	})
}

func BenchmarkDefaultKeyer_Key(b *testing.B) {
	keyer := NewDefaultKeyer("")
	args := map[string]any{"limit": 100, "page": 1, "status": "1", "socid": 42}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key("get_invoices", args)
	}
}

func BenchmarkDefaultKeyer_Key_Lines(b *testing.B) {
	keyer := NewDefaultKeyer("")
	lines := make([]any, 50)
	for i := range lines {
		lines[i] = map[string]any{"fk_product": i, "qty": 1, "subprice": 9.5, "desc": "item"}
	}
	args := map[string]any{"socid": 7, "lines": lines}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key("create_invoice", args)
	}
}

func BenchmarkAdapter_Get_Hit(b *testing.B) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		b.Run(codec.Name(), func(b *testing.B) {
			a := NewAdapter(NewMemoryStore(), AdapterOptions{Codec: codec})
			ctx := context.Background()
			a.Set(ctx, "ns:op:k", map[string]any{"items": []any{map[string]any{"id": "1", "ref": "PRD-1"}}}, time.Hour)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = a.Get(ctx, "ns:op:k")
			}
		})
	}
}

func BenchmarkValidateKey(b *testing.B) {
	key := "dolibarr:tool:get_customers:20502c394fedad54"
	for i := 0; i < b.N; i++ {
		_ = ValidateKey(key)
	}
}
