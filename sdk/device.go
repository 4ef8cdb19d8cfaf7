package sdk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// deviceIDKey is the property name in the device file.
const deviceIDKey = "device_id"

// DeviceStore persists the generated device identifier.
type DeviceStore interface {
	// Load returns the stored identifier and whether one exists.
	Load(ctx context.Context) (string, bool, error)
	// Save stores id unless an identifier already exists.
	Save(ctx context.Context, id string) error
}

// DeviceID returns the stored identifier, creating and saving a new UUID
// the first time. When another writer wins a race the stored value is
// returned.
func DeviceID(ctx context.Context, store DeviceStore) (string, error) {
	if id, ok, err := store.Load(ctx); err != nil || ok {
		return id, err
	}
	id := uuid.NewString()
	if err := store.Save(ctx, id); err != nil {
		return "", err
	}
	if stored, ok, err := store.Load(ctx); err == nil && ok {
		return stored, nil
	}
	return id, nil
}

// FileDeviceStore keeps the identifier in a key=value properties file.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithDeviceStore(sdk.NewFileDeviceStore(filepath.Join(home, ".roost", "device")))
type FileDeviceStore struct {
	mu   sync.Mutex
	path string
}

// NewFileDeviceStore uses the file at path. It is created on first Save.
func NewFileDeviceStore(path string) *FileDeviceStore {
	return &FileDeviceStore{path: path}
}

// Load reads the identifier from the file. A missing file is not an error.
func (s *FileDeviceStore) Load(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileDeviceStore) load() (string, bool, error) {
	props, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &ConversionError{Source: s.path, Err: err}
	}
	id, ok := props[deviceIDKey]
	return id, ok && id != "", nil
}

// Save writes id unless the file already holds an identifier.
func (s *FileDeviceStore) Save(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok, err := s.load(); err != nil || ok {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return godotenv.Write(map[string]string{deviceIDKey: id}, s.path)
}

// RedisDeviceStore shares one identifier between processes through Redis.
type RedisDeviceStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisDeviceStore stores the identifier under key.
func NewRedisDeviceStore(client redis.UniversalClient, key string) *RedisDeviceStore {
	if key == "" {
		key = "roost:" + deviceIDKey
	}
	return &RedisDeviceStore{client: client, key: key}
}

// Load reads the identifier from Redis.
func (s *RedisDeviceStore) Load(ctx context.Context) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, (&NetworkError{Op: "redis get " + s.key, Err: err}).ToError()
	}
	return id, id != "", nil
}

// Save stores id with SETNX, so the first writer wins.
func (s *RedisDeviceStore) Save(ctx context.Context, id string) error {
	if err := s.client.SetNX(ctx, s.key, id, 0).Err(); err != nil {
		return (&NetworkError{Op: "redis setnx " + s.key, Err: err}).ToError()
	}
	return nil
}
