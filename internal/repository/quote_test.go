package repository

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cleberrangel/brickrate-api/internal/model"
)

func quote(avg int64) model.Estimate {
	return model.Estimate{AvgTotal: avg}
}

func TestQuoteStoreInsertPrepends(t *testing.T) {
	ctx := context.Background()
	store := NewQuoteStore(NewMemoryStore())

	for _, avg := range []int64{1, 2, 3} {
		if err := store.Insert(ctx, quote(avg)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(quotes) != 3 || quotes[0].AvgTotal != 3 || quotes[2].AvgTotal != 1 {
		t.Errorf("quotes = %+v, want newest first", quotes)
	}
}

func TestQuoteStoreCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewQuoteStore(NewMemoryStore())

	for i := int64(1); i <= MaxQuotes+1; i++ {
		if err := store.Insert(ctx, quote(i)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	quotes, _ := store.List(ctx)
	if len(quotes) != MaxQuotes {
		t.Fatalf("len = %d, want %d", len(quotes), MaxQuotes)
	}
	if quotes[0].AvgTotal != MaxQuotes+1 {
		t.Errorf("newest = %d, want %d", quotes[0].AvgTotal, MaxQuotes+1)
	}
	if quotes[MaxQuotes-1].AvgTotal != 2 {
		t.Errorf("oldest kept = %d, want 2 (1 dropped)", quotes[MaxQuotes-1].AvgTotal)
	}
}

func TestQuoteStoreDeleteAt(t *testing.T) {
	ctx := context.Background()
	store := NewQuoteStore(NewMemoryStore())
	for _, avg := range []int64{10, 20, 30} {
		store.Insert(ctx, quote(avg))
	}
	// Lista atual: 30, 20, 10

	deleted, err := store.DeleteAt(ctx, 0)
	if err != nil || !deleted {
		t.Fatalf("DeleteAt(0) = %v, %v", deleted, err)
	}

	quotes, _ := store.List(ctx)
	if len(quotes) != 2 || quotes[0].AvgTotal != 20 || quotes[1].AvgTotal != 10 {
		t.Errorf("after delete = %+v, want [20 10]", quotes)
	}

	for _, i := range []int{-1, 2, 99} {
		deleted, err := store.DeleteAt(ctx, i)
		if err != nil || deleted {
			t.Errorf("DeleteAt(%d) = %v, %v; want no-op", i, deleted, err)
		}
	}
	if quotes, _ := store.List(ctx); len(quotes) != 2 {
		t.Errorf("out-of-range delete changed the list: %+v", quotes)
	}
}

func TestQuoteStoreLoadAt(t *testing.T) {
	ctx := context.Background()
	store := NewQuoteStore(NewMemoryStore())

	if q, err := store.LoadAt(ctx, 0); err != nil || q != nil {
		t.Errorf("LoadAt on empty = %v, %v", q, err)
	}

	store.Insert(ctx, quote(1602700))
	q, err := store.LoadAt(ctx, 0)
	if err != nil || q == nil {
		t.Fatalf("LoadAt = %v, %v", q, err)
	}
	if q.AvgTotal != 1602700 {
		t.Errorf("AvgTotal = %d", q.AvgTotal)
	}
}

func TestQuoteStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	kv.Set(ctx, QuotesKey, []byte("{not json"))

	store := NewQuoteStore(kv)
	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("corrupt list should read as empty, got %d", len(quotes))
	}

	if err := store.Insert(ctx, quote(5)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if quotes, _ := store.List(ctx); len(quotes) != 1 {
		t.Errorf("insert should replace corrupt list, got %d", len(quotes))
	}
}

// Property: a lista nunca passa da capacidade e mantém a ordem de inserção invertida
func TestPropertyQuoteStoreBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("never exceeds capacity", prop.ForAll(
		func(n int) bool {
			ctx := context.Background()
			store := NewQuoteStore(NewMemoryStore())
			for i := 0; i < n; i++ {
				if err := store.Insert(ctx, quote(int64(i))); err != nil {
					return false
				}
			}
			quotes, err := store.List(ctx)
			if err != nil {
				return false
			}
			want := n
			if want > MaxQuotes {
				want = MaxQuotes
			}
			if len(quotes) != want {
				return false
			}
			for i, q := range quotes {
				if q.AvgTotal != int64(n-1-i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 80),
	))

	properties.TestingRun(t)
}
