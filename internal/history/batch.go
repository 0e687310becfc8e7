package history

import (
	"context"
	"sync"
)

// Batch holds entries recorded inside a unit of work until it commits.
type Batch struct {
	mu      sync.Mutex
	entries []Entry
}

type batchKey struct{}

// Defer makes Record hold entries in a batch carried by the returned
// context instead of publishing them. When ctx already carries a batch the
// call joins it and returns a nil *Batch, so only the outermost caller
// publishes.
func Defer(ctx context.Context) (context.Context, *Batch) {
	if _, ok := ctx.Value(batchKey{}).(*Batch); ok {
		return ctx, nil
	}
	b := &Batch{}
	return context.WithValue(ctx, batchKey{}, b), b
}

func (b *Batch) add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// Entries returns the held entries in recording order.
func (b *Batch) Entries() []Entry {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

func batchFrom(ctx context.Context) *Batch {
	b, _ := ctx.Value(batchKey{}).(*Batch)
	return b
}
