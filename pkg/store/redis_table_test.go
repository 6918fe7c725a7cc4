package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"livesync/pkg/redis_client"
)

func getRedisTable(t *testing.T) KeyValueStore[int, string] {
	clients := redis_client.GetRedisClients()
	if len(clients) == 0 {
		t.Skip("REDIS_ADDR not set")
	}
	name := fmt.Sprintf("redis_table_test_%d", time.Now().UnixNano())
	tab := NewRedisTable[int, string](clients[0], name,
		JSONSerde[int]{}, JSONSerde[string]{}, IntLess)
	t.Cleanup(func() {
		clients[0].Del(context.Background(), name)
	})
	return tab
}

func TestRedisShouldGetWhatWasPut(t *testing.T) {
	ctx := context.Background()
	ShouldGetWhatWasPut(ctx, getRedisTable(t), t)
}

func TestRedisShouldNotIncludeDeletedFromRangeResult(t *testing.T) {
	ctx := context.Background()
	ShouldNotIncludeDeletedFromRangeResult(ctx, getRedisTable(t), t)
}

func TestRedisShouldRespectRangeBounds(t *testing.T) {
	ctx := context.Background()
	ShouldRespectRangeBounds(ctx, getRedisTable(t), t)
}

func TestRedisShouldNotOverwriteWithPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	ShouldNotOverwriteWithPutIfAbsent(ctx, getRedisTable(t), t)
}
