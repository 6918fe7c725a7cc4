package store

import (
	"context"
	"testing"
)

func getBTreeTable() KeyValueStore[int, string] {
	return NewInMemoryBTreeTable[int, string]("test1", IntLess)
}

func TestBTreeShouldGetWhatWasPut(t *testing.T) {
	ctx := context.Background()
	ShouldGetWhatWasPut(ctx, getBTreeTable(), t)
}

func TestBTreeShouldNotIncludeDeletedFromRangeResult(t *testing.T) {
	ctx := context.Background()
	ShouldNotIncludeDeletedFromRangeResult(ctx, getBTreeTable(), t)
}

func TestBTreeShouldRespectRangeBounds(t *testing.T) {
	ctx := context.Background()
	ShouldRespectRangeBounds(ctx, getBTreeTable(), t)
}

func TestBTreeShouldNotOverwriteWithPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	ShouldNotOverwriteWithPutIfAbsent(ctx, getBTreeTable(), t)
}
