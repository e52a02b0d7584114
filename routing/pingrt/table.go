// Package pingrt implements a Kademlia routing table that evicts its least recently seen
// contacts only after they failed to answer a ping.
//
// The table holds one bucket per bit of the key space. Bucket i holds the contacts whose xor
// distance to the local key has exactly BitLen-1-i leading zero bits, so bucket 0 holds the
// contacts closest to the local node and bucket BitLen-1 the farthest ones.
//
// When a bucket is full, a new contact is parked in the bucket's single pending slot and the
// caller is told to ping the bucket's least recently seen contact. The table never performs I/O
// and runs no background work: a pending contact whose ping timeout expired is promoted lazily,
// the next time anything reads or writes its bucket.
//
// Each bucket has its own lock. Update holds exactly one bucket lock. Queries visit the buckets
// one after the other, so their results are a best-effort view that may interleave with
// concurrent updates.
package pingrt

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/plprobelab/go-kbucket/kad"
	"github.com/plprobelab/go-kbucket/key"
)

// Table is a Kademlia routing table of fixed size buckets. All exported methods are safe for
// concurrent use.
type Table[K kad.Key[K], N kad.NodeID[K], V any] struct {
	// self is the identifier of the local node, selfKey its key
	self    N
	selfKey K

	// cfg is a copy of the optional configuration supplied to the table
	cfg Config

	log *logrus.Entry

	// buckets has one entry per bit of the key, indexed by BucketIndex
	buckets []bucket[K, N, V]
}

var _ kad.RoutingTable[key.Key256, kad.NodeID[key.Key256]] = (*Table[key.Key256, kad.NodeID[key.Key256], any])(nil)

// New creates a routing table for the local node self. All buckets are allocated immediately.
// If cfg is nil the default configuration is used.
//
// New panics if the key type of self reports a bit length of zero or less.
func New[K kad.Key[K], N kad.NodeID[K], V any](self N, cfg *Config) (*Table[K, N, V], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	selfKey := self.Key()
	numBits := selfKey.BitLen()
	if numBits <= 0 {
		panic(fmt.Sprintf("pingrt: key type %T has invalid bit length %d", selfKey, numBits))
	}

	rt := &Table[K, N, V]{
		self:    self,
		selfKey: selfKey,
		cfg:     *cfg,
		log: cfg.Logger.WithFields(logrus.Fields{
			"component": "pingrt",
			"self":      self.String(),
		}),
		buckets: make([]bucket[K, N, V], numBits),
	}

	now := cfg.Clock.Now()
	for i := range rt.buckets {
		if err := rt.buckets[i].init(cfg.BucketSize, now); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

// BucketIndex returns the index of the bucket that holds other in a table whose local key is self.
// It is (BitLen-1) minus the number of leading zeros of the distance between the keys. It returns
// false if the keys are equal since the local key has no bucket.
func BucketIndex[K kad.Key[K]](self, other K) (int, bool) {
	lz := self.Xor(other).LeadingZeros()
	if lz >= self.BitLen() {
		return 0, false
	}
	return self.BitLen() - 1 - lz, true
}

// Self returns the local node's Kademlia key.
func (rt *Table[K, N, V]) Self() K {
	return rt.selfKey
}

// SelfID returns the identifier of the local node.
func (rt *Table[K, N, V]) SelfID() N {
	return rt.self
}

// BucketSize returns the maximum number of contacts held by each bucket.
func (rt *Table[K, N, V]) BucketSize() int {
	return rt.cfg.BucketSize
}

// NumBuckets returns the number of buckets of the table, which is the bit length of the key.
func (rt *Table[K, N, V]) NumBuckets() int {
	return len(rt.buckets)
}

// PingTimeout returns how long a pending contact waits before it replaces the least recently seen
// contact of its bucket.
func (rt *Table[K, N, V]) PingTimeout() time.Duration {
	return rt.cfg.PingTimeout
}

// lock acquires the lock of bucket i and resolves its pending contact.
// The caller must unlock the returned bucket.
func (rt *Table[K, N, V]) lock(i int) (*bucket[K, N, V], time.Time) {
	b := &rt.buckets[i]
	b.mu.Lock()
	now := rt.cfg.Clock.Now()

	promoted, evicted := b.flush(now, rt.cfg.PingTimeout)
	if promoted != nil && rt.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		fields := logrus.Fields{
			"bucket":   i,
			"promoted": promoted.id.String(),
		}
		if evicted != nil {
			fields["evicted"] = evicted.id.String()
		}
		rt.log.WithFields(fields).Debug("Evicted unresponsive contact")
	}

	return b, now
}

// Update records that the node id was seen with the given value. The returned result tells
// the caller what happened and whether a ping is needed.
func (rt *Table[K, N, V]) Update(id N, value V) UpdateResult {
	kk := id.Key()
	bid, ok := BucketIndex(rt.selfKey, kk)
	if !ok {
		rt.log.WithField("id", id.String()).Warn("Rejected update of the local node")
		return &UpdateSelfRejected{}
	}

	b, now := rt.lock(bid)
	defer b.mu.Unlock()

	ck := contactKey(kk)
	if c, found := b.get(kk); found {
		prev := c.value
		oldest, _ := b.oldest()
		b.contacts.Remove(ck)
		if oldest == c {
			// the oldest contact just proved it is alive: drop any contact waiting to replace it
			b.pending = nil
			b.pendingSince = time.Time{}
			for b.contacts.Len() > rt.cfg.BucketSize-1 {
				b.contacts.RemoveOldest()
			}
		}
		c.value = value
		b.contacts.Add(ck, c)
		b.lastUpdated = now
		return &UpdateRefreshed[V]{Previous: prev}
	}

	if b.contacts.Len() < rt.cfg.BucketSize {
		b.contacts.Add(ck, &contact[K, N, V]{id: id, value: value})
		b.lastUpdated = now
		return &UpdateAdded{}
	}

	if b.pending == nil {
		b.pending = &contact[K, N, V]{id: id, value: value}
		b.pendingSince = now

		oldest, _ := b.oldest()
		if rt.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			rt.log.WithFields(logrus.Fields{
				"bucket":  bid,
				"pending": id.String(),
				"oldest":  oldest.id.String(),
			}).Debug("Bucket full, oldest contact needs a ping")
		}
		return &UpdateNeedPing[K, N]{Oldest: oldest.id}
	}

	if rt.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		rt.log.WithFields(logrus.Fields{
			"bucket":  bid,
			"id":      id.String(),
			"pending": b.pending.id.String(),
		}).Debug("Bucket full with a pending contact, discarded contact")
	}
	return &UpdateDiscarded{}
}

// Find returns the identifier and value of the contact with the given key.
func (rt *Table[K, N, V]) Find(kk K) (N, V, bool) {
	var (
		zeroN N
		zeroV V
	)
	bid, ok := BucketIndex(rt.selfKey, kk)
	if !ok {
		return zeroN, zeroV, false
	}

	b, _ := rt.lock(bid)
	defer b.mu.Unlock()

	c, found := b.get(kk)
	if !found {
		return zeroN, zeroV, false
	}
	return c.id, c.value, true
}

// FindClosest returns the identifiers of all known contacts sorted by ascending xor distance to
// target. The local node is never included.
//
// Buckets in which no contact was added or refreshed for longer than the ping timeout are
// skipped entirely, including any healthy contacts they hold.
//
// Buckets are locked one at a time so the result may interleave with concurrent updates.
func (rt *Table[K, N, V]) FindClosest(target K) []N {
	type candidate struct {
		id   N
		dist K
	}

	var cands []candidate
	for i := range rt.buckets {
		b, now := rt.lock(i)
		if now.Sub(b.lastUpdated) > rt.cfg.PingTimeout {
			b.mu.Unlock()
			continue
		}
		for _, c := range b.list() {
			cands = append(cands, candidate{id: c.id, dist: c.id.Key().Xor(target)})
		}
		b.mu.Unlock()
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].dist.Compare(cands[j].dist) < 0
	})

	ids := make([]N, len(cands))
	for i, c := range cands {
		ids[i] = c.id
	}
	return ids
}

// FindClosestWithSelf returns the result of FindClosest with the local node inserted at the
// position given by its distance to target.
func (rt *Table[K, N, V]) FindClosestWithSelf(target K) []N {
	ids := rt.FindClosest(target)
	selfDist := rt.selfKey.Xor(target)

	pos := sort.Search(len(ids), func(i int) bool {
		return ids[i].Key().Xor(target).Compare(selfDist) >= 0
	})
	if pos == len(ids) {
		return append(ids, rt.self)
	}
	if key.Equal(ids[pos].Key(), rt.selfKey) {
		return ids
	}

	var zero N
	ids = append(ids, zero)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = rt.self
	return ids
}

// Size returns the number of contacts held by the table. Pending contacts are not counted.
func (rt *Table[K, N, V]) Size() int {
	n := 0
	for i := range rt.buckets {
		n += rt.SizeOfBucket(i)
	}
	return n
}

// SizeOfBucket returns the number of contacts held by bucket i.
func (rt *Table[K, N, V]) SizeOfBucket(i int) int {
	b, _ := rt.lock(i)
	defer b.mu.Unlock()
	return b.contacts.Len()
}

// AddNode adds or refreshes the node with a zero value. It reports whether the node is held by
// the table after the call.
func (rt *Table[K, N, V]) AddNode(id N) bool {
	var zero V
	switch rt.Update(id, zero).(type) {
	case *UpdateAdded, *UpdateRefreshed[V]:
		return true
	default:
		return false
	}
}

// NearestNodes returns at most n identifiers from FindClosest.
func (rt *Table[K, N, V]) NearestNodes(target K, n int) []N {
	ids := rt.FindClosest(target)
	if n < 0 {
		n = 0
	}
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}
