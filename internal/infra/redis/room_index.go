package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomIndex mirrors in-process room liveness into Redis. Rooms stay volatile
// and in-process; the markers exist so external tooling can see which rooms
// are live, and they age out on their own if the process dies.
type RoomIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomIndex(client *redis.Client, ttl time.Duration) *RoomIndex {
	return &RoomIndex{client: client, ttl: ttl}
}

// Touch marks the room live, refreshing its TTL.
func (i *RoomIndex) Touch(ctx context.Context, roomID string) error {
	return i.client.Set(ctx, i.key(roomID), "1", i.ttl).Err()
}

// Remove drops the liveness marker.
func (i *RoomIndex) Remove(ctx context.Context, roomID string) error {
	return i.client.Del(ctx, i.key(roomID)).Err()
}

func (i *RoomIndex) key(roomID string) string {
	return "quizroom:room:" + roomID
}
