package pingrt

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"

	"github.com/plprobelab/go-kbucket/kad"
	"github.com/plprobelab/go-kbucket/key"
)

type contact[K kad.Key[K], N kad.NodeID[K], V any] struct {
	id    N
	value V
}

// bucket holds the contacts whose keys share the same number of leading bits with the local key.
// All fields are guarded by mu.
type bucket[K kad.Key[K], N kad.NodeID[K], V any] struct {
	mu sync.Mutex

	// contacts is ordered from least recently seen to most recently seen. It is keyed by the hex
	// representation of the contact's key. The table never adds a contact to a full list so the
	// list never evicts on its own.
	contacts *simplelru.LRU

	// pending is a contact waiting for the least recently seen contact to be evicted
	pending      *contact[K, N, V]
	pendingSince time.Time

	// lastUpdated is the last time a contact was added or refreshed
	lastUpdated time.Time
}

func (b *bucket[K, N, V]) init(size int, now time.Time) error {
	l, err := simplelru.NewLRU(size, nil)
	if err != nil {
		return fmt.Errorf("new contact list: %w", err)
	}
	b.contacts = l
	b.lastUpdated = now
	return nil
}

func contactKey[K kad.Key[K]](kk K) string {
	return key.HexString(kk)
}

// flush resolves the pending contact. If it has been waiting for at least timeout, the least
// recently seen contact is dropped and the pending contact becomes the most recently seen one.
// It returns the promoted contact and the evicted one, or nil when nothing changed.
func (b *bucket[K, N, V]) flush(now time.Time, timeout time.Duration) (promoted, evicted *contact[K, N, V]) {
	if b.pending == nil {
		return nil, nil
	}
	if now.Sub(b.pendingSince) < timeout {
		return nil, nil
	}

	if _, v, ok := b.contacts.RemoveOldest(); ok {
		evicted = v.(*contact[K, N, V])
	}
	promoted = b.pending
	b.contacts.Add(contactKey(promoted.id.Key()), promoted)
	b.pending = nil
	b.pendingSince = time.Time{}
	return promoted, evicted
}

// get returns the contact with the given key without changing its position.
func (b *bucket[K, N, V]) get(kk K) (*contact[K, N, V], bool) {
	v, ok := b.contacts.Peek(contactKey(kk))
	if !ok {
		return nil, false
	}
	return v.(*contact[K, N, V]), true
}

func (b *bucket[K, N, V]) oldest() (*contact[K, N, V], bool) {
	_, v, ok := b.contacts.GetOldest()
	if !ok {
		return nil, false
	}
	return v.(*contact[K, N, V]), true
}

// list returns the contacts of the bucket from least recently seen to most recently seen.
func (b *bucket[K, N, V]) list() []*contact[K, N, V] {
	keys := b.contacts.Keys()
	cs := make([]*contact[K, N, V], 0, len(keys))
	for _, k := range keys {
		if v, ok := b.contacts.Peek(k); ok {
			cs = append(cs, v.(*contact[K, N, V]))
		}
	}
	return cs
}
