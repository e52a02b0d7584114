package pingrt

import (
	"time"

	"github.com/plprobelab/go-kbucket/kad"
)

// BucketView is a read-only view of one bucket. The bucket is locked from the moment the view is
// created until Release is called: the holder of a view must not update the table's contacts
// that fall into the same bucket, and must not use the view after releasing it.
type BucketView[K kad.Key[K], N kad.NodeID[K], V any] struct {
	index int
	b     *bucket[K, N, V]
}

// Bucket locks bucket i, resolves its pending contact and returns a view of it.
// Bucket panics if i is not in the range [0, NumBuckets()-1].
func (rt *Table[K, N, V]) Bucket(i int) *BucketView[K, N, V] {
	b, _ := rt.lock(i)
	return &BucketView[K, N, V]{index: i, b: b}
}

// Index returns the index of the bucket in the table.
func (v *BucketView[K, N, V]) Index() int {
	return v.index
}

// Len returns the number of contacts in the bucket.
func (v *BucketView[K, N, V]) Len() int {
	return v.b.contacts.Len()
}

// HasPending reports whether a contact is waiting to replace the least recently seen contact.
func (v *BucketView[K, N, V]) HasPending() bool {
	return v.b.pending != nil
}

// LastUpdated returns the last time a contact of the bucket was added or refreshed, or the
// creation time of the table if that never happened.
func (v *BucketView[K, N, V]) LastUpdated() time.Time {
	return v.b.lastUpdated
}

// Contacts returns the identifiers of the contacts in the bucket from least recently seen to
// most recently seen.
func (v *BucketView[K, N, V]) Contacts() []N {
	cs := v.b.list()
	ids := make([]N, len(cs))
	for i, c := range cs {
		ids[i] = c.id
	}
	return ids
}

// Release unlocks the bucket. Calling Release more than once has no effect.
func (v *BucketView[K, N, V]) Release() {
	if v.b == nil {
		return
	}
	v.b.mu.Unlock()
	v.b = nil
}

// BucketIter walks the buckets of a table from the closest to the farthest, that is by
// ascending bucket index. Each step locks one bucket and releases the previously returned one.
type BucketIter[K kad.Key[K], N kad.NodeID[K], V any] struct {
	rt   *Table[K, N, V]
	next int
	cur  *BucketView[K, N, V]
}

// Buckets returns an iterator over all buckets of the table. The caller must call Close if it
// stops iterating before Next returns false.
func (rt *Table[K, N, V]) Buckets() *BucketIter[K, N, V] {
	return &BucketIter[K, N, V]{rt: rt}
}

// Len returns the number of buckets the iterator yields in total.
func (it *BucketIter[K, N, V]) Len() int {
	return len(it.rt.buckets)
}

// Next releases the previously returned view and returns a view of the next bucket. It returns
// false once every bucket has been visited.
func (it *BucketIter[K, N, V]) Next() (*BucketView[K, N, V], bool) {
	it.Close()
	if it.next >= len(it.rt.buckets) {
		return nil, false
	}
	it.cur = it.rt.Bucket(it.next)
	it.next++
	return it.cur, true
}

// Close releases the view most recently returned by Next.
func (it *BucketIter[K, N, V]) Close() {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
}

// ForEachBucket calls fn with a view of each bucket, closest first, until fn returns false.
// The view is only valid for the duration of the call.
func (rt *Table[K, N, V]) ForEachBucket(fn func(*BucketView[K, N, V]) bool) {
	it := rt.Buckets()
	defer it.Close()
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		if !fn(v) {
			return
		}
	}
}
