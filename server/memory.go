package server

import (
	"bytes"
	"context"
	"sync"
	"time"

	"murmur/common"
)

// MemoryStore is the default single-process store for bundles and queued
// initial messages.
type MemoryStore struct {
	mu       sync.Mutex
	bundles  map[string]*storedBundle
	messages map[string]*storedMessage
	ttl      time.Duration

	// now is replaceable for TTL tests.
	now func() time.Time
}

type storedBundle struct {
	pubKey        []byte
	pubSignPreKey []byte
	preKeySig     []byte
	oneTimeKeys   [][]byte
}

type storedMessage struct {
	msg      common.InitialMessage
	deadline time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		bundles:  make(map[string]*storedBundle),
		messages: make(map[string]*storedMessage),
		ttl:      ttl,
		now:      time.Now,
	}
}

var _ BundleStore = (*MemoryStore)(nil)
var _ MessageStore = (*MemoryStore)(nil)

func (s *MemoryStore) Publish(_ context.Context, id string, bundle common.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.bundles[id]
	if existing != nil && bytes.Equal(existing.preKeySig, bundle.PreKeySig) {
		return ErrSameSignature
	}

	stored := &storedBundle{
		pubKey:        bundle.PubKey,
		pubSignPreKey: bundle.PubSignPreKey,
		preKeySig:     bundle.PreKeySig,
	}
	// Unused one-time keys from earlier publications stay consumable.
	if existing != nil {
		stored.oneTimeKeys = existing.oneTimeKeys
	}
	stored.oneTimeKeys = append(stored.oneTimeKeys, bundle.OneTimeKeys...)
	s.bundles[id] = stored
	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, id string) (common.FetchedBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bundles[id]
	if !ok {
		return common.FetchedBundle{}, ErrBundleNotFound
	}
	if len(stored.oneTimeKeys) == 0 {
		return common.FetchedBundle{}, ErrNoOneTimeKeys
	}

	oneTime := stored.oneTimeKeys[0]
	stored.oneTimeKeys = stored.oneTimeKeys[1:]

	return common.FetchedBundle{
		PubSignPreKey: stored.pubSignPreKey,
		PreKeySig:     stored.preKeySig,
		OneTimeKey:    oneTime,
	}, nil
}

func (s *MemoryStore) Put(_ context.Context, sid string, msg common.InitialMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.messages[sid] = &storedMessage{
		msg:      msg,
		deadline: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, sid string) (common.InitialMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.messages[sid]
	if !ok {
		return common.InitialMessage{}, ErrMessageNotFound
	}
	delete(s.messages, sid)
	if s.now().After(stored.deadline) {
		return common.InitialMessage{}, ErrMessageNotFound
	}
	return stored.msg, nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for sid, stored := range s.messages {
		if now.After(stored.deadline) {
			delete(s.messages, sid)
		}
	}
}
