// Package redis provides a Redis-based storage backend for AgentEngine.
package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Storage implements the engine.Storage interface using Redis
type Storage struct {
	client  *redis.Client
	ctx     context.Context
	prefix  string
	mu      sync.Mutex
	nextID  int
	watches map[string]map[int]func([]byte)
}

// New creates a new Redis-based storage. All keys are namespaced under
// prefix.
func New(client *redis.Client, prefix string) *Storage {
	return &Storage{
		client:  client,
		ctx:     context.Background(),
		prefix:  prefix,
		watches: make(map[string]map[int]func([]byte)),
	}
}

// Read reads data from Redis
func (s *Storage) Read(key string) ([]byte, error) {
	data, err := s.client.Get(s.ctx, s.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return data, err
}

// Write writes data to Redis
func (s *Storage) Write(key string, data []byte) error {
	if err := s.client.Set(s.ctx, s.fullKey(key), data, 0).Err(); err != nil {
		return err
	}
	s.notify(key, data)
	return nil
}

// Delete removes data from Redis
func (s *Storage) Delete(key string) error {
	result := s.client.Del(s.ctx, s.fullKey(key))
	if result.Val() == 0 {
		return fmt.Errorf("key not found: %s", key)
	}
	return result.Err()
}

// List lists keys with given prefix
func (s *Storage) List(prefix string) ([]string, error) {
	pattern := s.fullKey(prefix) + "*"
	keys, err := s.client.Keys(s.ctx, pattern).Result()
	if err != nil {
		return nil, err
	}

	results := make([]string, 0, len(keys))
	for _, key := range keys {
		results = append(results, strings.TrimPrefix(key, s.prefix+":"))
	}
	return results, nil
}

// Watch registers a change handler for a key. Notifications fire on
// writes through this instance.
func (s *Storage) Watch(key string, handler func([]byte)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watches[key] == nil {
		s.watches[key] = make(map[int]func([]byte))
	}
	id := s.nextID
	s.nextID++
	s.watches[key][id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watches[key], id)
	}, nil
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) fullKey(key string) string {
	return s.prefix + ":" + key
}

func (s *Storage) notify(key string, data []byte) {
	s.mu.Lock()
	handlers := make([]func([]byte), 0, len(s.watches[key]))
	for _, h := range s.watches[key] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, handler := range handlers {
		go handler(data)
	}
}
