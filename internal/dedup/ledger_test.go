package dedup

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeIndex struct {
	seen map[string]bool
	err  error
}

func (f *fakeIndex) ExistsByProviderID(ctx context.Context, providerID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.seen[providerID], nil
}

func TestIsDuplicate_FallsBackToIndexWithoutRedis(t *testing.T) {
	ledger := NewLedger(nil, &fakeIndex{seen: map[string]bool{"m-1": true}}, zap.NewNop())

	dup, err := ledger.IsDuplicate(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !dup {
		t.Error("expected persisted id to be a duplicate")
	}

	dup, err = ledger.IsDuplicate(context.Background(), "m-2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if dup {
		t.Error("unseen id must not be a duplicate")
	}
}

func TestIsDuplicate_IndexErrorPropagates(t *testing.T) {
	ledger := NewLedger(nil, &fakeIndex{err: errors.New("db down")}, zap.NewNop())

	if _, err := ledger.IsDuplicate(context.Background(), "m-1"); err == nil {
		t.Fatal("expected index error to propagate")
	}
}

func TestMarkSeen_NoRedisIsNoop(t *testing.T) {
	ledger := NewLedger(nil, &fakeIndex{seen: map[string]bool{}}, zap.NewNop())
	// must not panic without a cache
	ledger.MarkSeen(context.Background(), "m-1")
}
