package tokenstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rrens/greenbite/internal/security"
)

// KV abstracts the persisted key-value medium tokens live in.
// Implementations: in-memory (tests, single instance), SQLite, Redis.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryKV is a process-local KV
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty in-memory KV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Len returns the number of stored keys
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

type prefixedKV struct {
	kv     KV
	prefix string
}

// Prefixed namespaces every key of kv under prefix
func Prefixed(kv KV, prefix string) KV {
	return &prefixedKV{kv: kv, prefix: prefix}
}

func (p *prefixedKV) Get(ctx context.Context, key string) (string, bool, error) {
	return p.kv.Get(ctx, p.prefix+key)
}

func (p *prefixedKV) Set(ctx context.Context, key, value string) error {
	return p.kv.Set(ctx, p.prefix+key, value)
}

func (p *prefixedKV) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = p.prefix + k
	}
	return p.kv.Delete(ctx, full...)
}

type encryptedKV struct {
	kv        KV
	encryptor *security.Encryptor
}

// Encrypted seals values at rest; keys stay in the clear. Values are
// bound to the key as seen by this layer.
func Encrypted(kv KV, encryptor *security.Encryptor) KV {
	return &encryptedKV{kv: kv, encryptor: encryptor}
}

func (e *encryptedKV) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := e.kv.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := e.encryptor.Open(key, sealed)
	if err != nil {
		return "", false, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return plain, true, nil
}

func (e *encryptedKV) Set(ctx context.Context, key, value string) error {
	sealed, err := e.encryptor.Seal(key, value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return e.kv.Set(ctx, key, sealed)
}

func (e *encryptedKV) Delete(ctx context.Context, keys ...string) error {
	return e.kv.Delete(ctx, keys...)
}
