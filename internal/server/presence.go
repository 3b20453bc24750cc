package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

// Presence mirrors room membership for the HTTP API and for other service
// instances.
type Presence interface {
	Add(ctx context.Context, roomID string, p signaling.Participant) error
	Remove(ctx context.Context, roomID, id string) error
	List(ctx context.Context, roomID string) ([]signaling.Participant, error)
	Close() error
}

// NewPresence builds the store selected by cfg.Presence.
func NewPresence(ctx context.Context, cfg *config.ServerConfig) (Presence, error) {
	switch cfg.Presence {
	case "redis":
		return NewRedisPresence(ctx, cfg.Redis, cfg.PresenceTTL)
	case "memory", "":
		return NewMemoryPresence(), nil
	}
	return nil, fmt.Errorf("unknown presence driver %q", cfg.Presence)
}

// MemoryPresence keeps membership in process.
type MemoryPresence struct {
	mu    sync.RWMutex
	rooms map[string]map[string]signaling.Participant
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{rooms: make(map[string]map[string]signaling.Participant)}
}

func (m *MemoryPresence) Add(_ context.Context, roomID string, p signaling.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		room = make(map[string]signaling.Participant)
		m.rooms[roomID] = room
	}
	room[p.ID] = p
	return nil
}

func (m *MemoryPresence) Remove(_ context.Context, roomID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	delete(room, id)
	if len(room) == 0 {
		delete(m.rooms, roomID)
	}
	return nil
}

func (m *MemoryPresence) List(_ context.Context, roomID string) ([]signaling.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]signaling.Participant, 0, len(m.rooms[roomID]))
	for _, p := range m.rooms[roomID] {
		out = append(out, p)
	}
	sortParticipants(out)
	return out, nil
}

func (m *MemoryPresence) Close() error { return nil }

// RedisPresence stores one hash per room. Fields are participant ids and
// values are msgpack encoded participants. The hash expires ttl after the
// last join so rooms abandoned by a crashed instance disappear.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPresence connects to Redis and verifies the connection.
func NewRedisPresence(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisPresence, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPresence{client: client, ttl: ttl}, nil
}

func presenceKey(roomID string) string {
	return "room:" + roomID + ":participants"
}

func (r *RedisPresence) Add(ctx context.Context, roomID string, p signaling.Participant) error {
	data, err := msgpack.Marshal(&p)
	if err != nil {
		return fmt.Errorf("encode participant: %w", err)
	}

	key := presenceKey(roomID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, p.ID, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store participant: %w", err)
	}
	return nil
}

func (r *RedisPresence) Remove(ctx context.Context, roomID, id string) error {
	if err := r.client.HDel(ctx, presenceKey(roomID), id).Err(); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

func (r *RedisPresence) List(ctx context.Context, roomID string) ([]signaling.Participant, error) {
	entries, err := r.client.HGetAll(ctx, presenceKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	out := make([]signaling.Participant, 0, len(entries))
	for id, raw := range entries {
		var p signaling.Participant
		if err := msgpack.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode participant %s: %w", id, err)
		}
		out = append(out, p)
	}
	sortParticipants(out)
	return out, nil
}

func (r *RedisPresence) Close() error {
	return r.client.Close()
}

// sortParticipants orders by join time, then id.
func sortParticipants(ps []signaling.Participant) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].JoinedAt.Equal(ps[j].JoinedAt) {
			return ps[i].JoinedAt.Before(ps[j].JoinedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}
