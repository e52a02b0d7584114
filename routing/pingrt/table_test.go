package pingrt

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/plprobelab/go-kbucket/internal/kadtest"
	"github.com/plprobelab/go-kbucket/internal/testutil"
	"github.com/plprobelab/go-kbucket/kad"
	"github.com/plprobelab/go-kbucket/key"
)

const testPingTimeout = time.Minute

type (
	id8    = *kadtest.ID[key.Key8]
	table8 = Table[key.Key8, id8, string]
)

func newTestConfig(clk clock.Clock, bucketSize int) (*Config, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := DefaultConfig()
	cfg.Clock = clk
	cfg.BucketSize = bucketSize
	cfg.PingTimeout = testPingTimeout
	cfg.Logger = logger
	return cfg, hook
}

func newTable8(t *testing.T, self key.Key8, bucketSize int) (*table8, *clock.Mock, *logtest.Hook) {
	t.Helper()
	clk := clock.NewMock()
	cfg, hook := newTestConfig(clk, bucketSize)
	rt, err := New[key.Key8, id8, string](kadtest.NewID(self), cfg)
	require.NoError(t, err)
	return rt, clk, hook
}

func keysOf[K kad.Key[K], N kad.NodeID[K]](ids []N) []K {
	ks := make([]K, len(ids))
	for i, id := range ids {
		ks[i] = id.Key()
	}
	return ks
}

func TestNew(t *testing.T) {
	rt, _, _ := newTable8(t, key.Key8(0x42), 5)
	require.Equal(t, key.Key8(0x42), rt.Self())
	require.Equal(t, key.Key8(0x42), rt.SelfID().Key())
	require.Equal(t, 5, rt.BucketSize())
	require.Equal(t, 8, rt.NumBuckets())
	require.Equal(t, testPingTimeout, rt.PingTimeout())
	require.Equal(t, 0, rt.Size())
}

func TestNewDefaultConfig(t *testing.T) {
	rt, err := New[key.Key256, *kadtest.StringID, string](kadtest.NewStringID("self"), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultBucketSize, rt.BucketSize())
	require.Equal(t, 256, rt.NumBuckets())
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PingTimeout = 0
	_, err := New[key.Key8, id8, string](kadtest.NewID(key.Key8(0)), cfg)
	require.Error(t, err)
}

// zeroKey is a misconfigured key type without any bits.
type zeroKey struct{}

func (zeroKey) BitLen() int                    { return 0 }
func (zeroKey) Bit(int) uint                   { panic("zeroKey has no bits") }
func (zeroKey) Xor(zeroKey) zeroKey            { return zeroKey{} }
func (zeroKey) CommonPrefixLength(zeroKey) int { return 0 }
func (zeroKey) LeadingZeros() int              { return 0 }
func (zeroKey) Compare(zeroKey) int            { return 0 }

func TestNewPanicsOnZeroBitLen(t *testing.T) {
	require.Panics(t, func() {
		_, _ = New[zeroKey, *kadtest.ID[zeroKey], string](kadtest.NewID(zeroKey{}), nil)
	})
}

func TestBucketIndex(t *testing.T) {
	self := key.Key8(0)

	testCases := []struct {
		other key.Key8
		index int
	}{
		{other: 0x01, index: 0}, // differs only in the least significant bit
		{other: 0x02, index: 1},
		{other: 0x03, index: 1},
		{other: 0x10, index: 4},
		{other: 0x1f, index: 4},
		{other: 0x40, index: 6},
		{other: 0x80, index: 7}, // differs in the most significant bit
		{other: 0xff, index: 7},
	}

	for _, tc := range testCases {
		t.Run(key.BitString(tc.other), func(t *testing.T) {
			index, ok := BucketIndex(self, tc.other)
			require.True(t, ok)
			require.Equal(t, tc.index, index)
			require.Equal(t, tc.other.BitLen()-1-self.Xor(tc.other).LeadingZeros(), index)

			// indexing is symmetric
			index, ok = BucketIndex(tc.other, self)
			require.True(t, ok)
			require.Equal(t, tc.index, index)
		})
	}

	_, ok := BucketIndex(self, self)
	require.False(t, ok)
	_, ok = BucketIndex(key.Key8(0x5a), key.Key8(0x5a))
	require.False(t, ok)
}

func TestUpdateSelfRejected(t *testing.T) {
	self := key.Key8(0x5a)
	rt, _, hook := newTable8(t, self, 5)

	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(key.Key8(0x01)), "a"))

	res := rt.Update(kadtest.NewID(self), "self")
	require.IsType(t, &UpdateSelfRejected{}, res)
	require.Equal(t, 1, rt.Size())

	_, _, found := rt.Find(self)
	require.False(t, found)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
}

func TestUpdatePlacement(t *testing.T) {
	// every 8-bit key fits: bucket i holds 2^i keys
	rt, _, _ := newTable8(t, key.Key8(0), 128)

	for x := 1; x < 256; x++ {
		kk := key.Key8(x)
		bid, ok := BucketIndex(rt.Self(), kk)
		require.True(t, ok)

		before := rt.SizeOfBucket(bid)
		res := rt.Update(kadtest.NewID(kk), fmt.Sprint(x))
		require.IsType(t, &UpdateAdded{}, res)
		require.Equal(t, before+1, rt.SizeOfBucket(bid))
	}

	for i := 0; i < rt.NumBuckets(); i++ {
		require.Equal(t, 1<<i, rt.SizeOfBucket(i))
	}
	require.Equal(t, 255, rt.Size())

	rt.ForEachBucket(func(v *BucketView[key.Key8, id8, string]) bool {
		for _, id := range v.Contacts() {
			bid, _ := BucketIndex(rt.Self(), id.Key())
			require.Equal(t, v.Index(), bid)
			require.Equal(t, 8-1-v.Index(), rt.Self().Xor(id.Key()).LeadingZeros())
		}
		return true
	})
}

func TestUpdateRefresh(t *testing.T) {
	rt, clk, _ := newTable8(t, key.Key8(0), 5)

	x := key.Key8(0x81)
	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(x), "v1"))
	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(key.Key8(0x82)), "other"))

	clk.Add(time.Second)
	res := rt.Update(kadtest.NewID(x), "v2")
	require.IsType(t, &UpdateRefreshed[string]{}, res)
	require.Equal(t, "v1", res.(*UpdateRefreshed[string]).Previous)

	_, v, found := rt.Find(x)
	require.True(t, found)
	require.Equal(t, "v2", v)

	view := rt.Bucket(7)
	defer view.Release()
	require.Equal(t, 2, view.Len())
	require.Equal(t, []key.Key8{0x82, 0x81}, keysOf[key.Key8](view.Contacts()))
	require.Equal(t, clk.Now(), view.LastUpdated())
}

func TestUpdateCapacityAndPending(t *testing.T) {
	rt, _, _ := newTable8(t, key.Key8(0), DefaultBucketSize)

	// keys 0x80-0xff all land in bucket 7
	for i := 0; i < DefaultBucketSize; i++ {
		res := rt.Update(kadtest.NewID(key.Key8(0x80+i)), fmt.Sprint(i))
		require.IsType(t, &UpdateAdded{}, res)
	}
	require.Equal(t, DefaultBucketSize, rt.SizeOfBucket(7))

	res := rt.Update(kadtest.NewID(key.Key8(0xf0)), "pending")
	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, res)
	require.Equal(t, key.Key8(0x80), res.(*UpdateNeedPing[key.Key8, id8]).Oldest.Key())
	require.Equal(t, DefaultBucketSize, rt.SizeOfBucket(7))

	res = rt.Update(kadtest.NewID(key.Key8(0xf1)), "dropped")
	require.IsType(t, &UpdateDiscarded{}, res)
	require.Equal(t, DefaultBucketSize, rt.SizeOfBucket(7))

	// the pending contact is not a member of the bucket
	_, _, found := rt.Find(key.Key8(0xf0))
	require.False(t, found)

	// other buckets are unaffected
	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(key.Key8(0x01)), "near"))
}

func fillBucket7(t *testing.T, rt *table8, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(key.Key8(0x80+i)), fmt.Sprint(i)))
	}
}

func TestPendingPromotedAfterTimeout(t *testing.T) {
	rt, clk, hook := newTable8(t, key.Key8(0), 4)
	fillBucket7(t, rt, 4)

	res := rt.Update(kadtest.NewID(key.Key8(0xf0)), "pending")
	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, res)
	oldest := res.(*UpdateNeedPing[key.Key8, id8]).Oldest.Key()

	clk.Add(testPingTimeout)

	// any access to the bucket resolves the pending contact
	require.Equal(t, 4, rt.SizeOfBucket(7))

	_, _, found := rt.Find(oldest)
	require.False(t, found)
	_, v, found := rt.Find(key.Key8(0xf0))
	require.True(t, found)
	require.Equal(t, "pending", v)

	view := rt.Bucket(7)
	require.False(t, view.HasPending())
	require.Equal(t, []key.Key8{0x81, 0x82, 0x83, 0xf0}, keysOf[key.Key8](view.Contacts()))
	view.Release()

	closest := keysOf[key.Key8](rt.FindClosest(key.Key8(0x80)))
	require.NotContains(t, closest, oldest)
	require.Contains(t, closest, key.Key8(0xf0))

	var evicted bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel && e.Data["evicted"] == kadtest.NewID(oldest).String() {
			evicted = true
		}
	}
	require.True(t, evicted)
}

func TestPendingKeptBeforeTimeout(t *testing.T) {
	rt, clk, _ := newTable8(t, key.Key8(0), 4)
	fillBucket7(t, rt, 4)

	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, rt.Update(kadtest.NewID(key.Key8(0xf0)), "pending"))

	clk.Add(testPingTimeout - time.Second)

	view := rt.Bucket(7)
	require.True(t, view.HasPending())
	require.Equal(t, []key.Key8{0x80, 0x81, 0x82, 0x83}, keysOf[key.Key8](view.Contacts()))
	view.Release()

	// still full with a pending contact
	require.IsType(t, &UpdateDiscarded{}, rt.Update(kadtest.NewID(key.Key8(0xf1)), "dropped"))
}

func TestRefreshOldestClearsPending(t *testing.T) {
	rt, clk, _ := newTable8(t, key.Key8(0), 4)
	fillBucket7(t, rt, 4)

	res := rt.Update(kadtest.NewID(key.Key8(0xf0)), "pending")
	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, res)

	// the oldest contact answered the ping
	res = rt.Update(res.(*UpdateNeedPing[key.Key8, id8]).Oldest, "alive")
	require.IsType(t, &UpdateRefreshed[string]{}, res)
	require.Equal(t, "0", res.(*UpdateRefreshed[string]).Previous)

	view := rt.Bucket(7)
	require.False(t, view.HasPending())
	require.Equal(t, 4, view.Len())
	require.Equal(t, []key.Key8{0x81, 0x82, 0x83, 0x80}, keysOf[key.Key8](view.Contacts()))
	view.Release()

	// nothing is evicted once the timeout expires
	clk.Add(2 * testPingTimeout)
	_, _, found := rt.Find(key.Key8(0xf0))
	require.False(t, found)
	_, v, found := rt.Find(key.Key8(0x80))
	require.True(t, found)
	require.Equal(t, "alive", v)

	// the pending slot is free again
	res = rt.Update(kadtest.NewID(key.Key8(0xf1)), "next")
	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, res)
	require.Equal(t, key.Key8(0x81), res.(*UpdateNeedPing[key.Key8, id8]).Oldest.Key())
}

func TestRefreshOtherKeepsPending(t *testing.T) {
	rt, clk, _ := newTable8(t, key.Key8(0), 4)
	fillBucket7(t, rt, 4)

	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, rt.Update(kadtest.NewID(key.Key8(0xf0)), "pending"))

	// refreshing a contact that is not the oldest does not answer the ping
	require.IsType(t, &UpdateRefreshed[string]{}, rt.Update(kadtest.NewID(key.Key8(0x82)), "fresh"))

	view := rt.Bucket(7)
	require.True(t, view.HasPending())
	require.Equal(t, []key.Key8{0x80, 0x81, 0x83, 0x82}, keysOf[key.Key8](view.Contacts()))
	view.Release()

	clk.Add(testPingTimeout)

	view = rt.Bucket(7)
	require.False(t, view.HasPending())
	require.Equal(t, []key.Key8{0x81, 0x83, 0x82, 0xf0}, keysOf[key.Key8](view.Contacts()))
	view.Release()
}

func TestPromotionFreesPendingSlot(t *testing.T) {
	rt, clk, _ := newTable8(t, key.Key8(0), 2)
	fillBucket7(t, rt, 2)

	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, rt.Update(kadtest.NewID(key.Key8(0xf0)), "p1"))
	clk.Add(testPingTimeout)

	// flush runs before the decision, so the slot is free for the next contact
	res := rt.Update(kadtest.NewID(key.Key8(0xf1)), "p2")
	require.IsType(t, &UpdateNeedPing[key.Key8, id8]{}, res)
	require.Equal(t, key.Key8(0x81), res.(*UpdateNeedPing[key.Key8, id8]).Oldest.Key())
}

// Four buckets of two contacts: local key 0000, keys 1xxx land in bucket 3.
func TestFourBitScenario(t *testing.T) {
	type id4 = *kadtest.ID[kadtest.Key4]

	clk := clock.NewMock()
	cfg, _ := newTestConfig(clk, 2)
	rt, err := New[kadtest.Key4, id4, string](kadtest.NewID(kadtest.Key4(0)), cfg)
	require.NoError(t, err)
	require.Equal(t, 4, rt.NumBuckets())

	for _, k := range []kadtest.Key4{0x8, 0x9, 0xa} {
		bid, ok := BucketIndex(rt.Self(), k)
		require.True(t, ok)
		require.Equal(t, 3, bid)
	}

	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(kadtest.Key4(0x8)), "first"))
	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(kadtest.Key4(0x9)), "second"))

	res := rt.Update(kadtest.NewID(kadtest.Key4(0xa)), "third")
	require.IsType(t, &UpdateNeedPing[kadtest.Key4, id4]{}, res)
	require.Equal(t, kadtest.Key4(0x8), res.(*UpdateNeedPing[kadtest.Key4, id4]).Oldest.Key())

	res = rt.Update(kadtest.NewID(kadtest.Key4(0x8)), "first again")
	require.IsType(t, &UpdateRefreshed[string]{}, res)
	require.Equal(t, "first", res.(*UpdateRefreshed[string]).Previous)

	view := rt.Bucket(3)
	defer view.Release()
	require.False(t, view.HasPending())
	require.Equal(t, 2, view.Len())
	require.Equal(t, []kadtest.Key4{0x9, 0x8}, keysOf[kadtest.Key4](view.Contacts()))
}

func TestFindClosestAscending(t *testing.T) {
	rt, _, _ := newTable8(t, key.Key8(0), 20)
	for _, k := range []key.Key8{0xff, 0x02, 0x80, 0x10, 0x03, 0x01} {
		require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(k), ""))
	}

	// distances to 0x11: 0x10->0x01 0x01->0x10 0x03->0x12 0x02->0x13 0x80->0x91 0xff->0xee
	got := keysOf[key.Key8](rt.FindClosest(key.Key8(0x11)))
	require.Equal(t, []key.Key8{0x10, 0x01, 0x03, 0x02, 0x80, 0xff}, got)

	got = keysOf[key.Key8](rt.FindClosest(key.Key8(0x00)))
	require.Equal(t, []key.Key8{0x01, 0x02, 0x03, 0x10, 0x80, 0xff}, got)

	// the closest key first, even when it is far from the local node
	got = keysOf[key.Key8](rt.FindClosest(key.Key8(0xfe)))
	require.Equal(t, key.Key8(0xff), got[0])
}

func TestFindClosestEmpty(t *testing.T) {
	rt, _, _ := newTable8(t, key.Key8(0), 20)
	require.Empty(t, rt.FindClosest(key.Key8(0x11)))
	require.Equal(t, []key.Key8{0x00}, keysOf[key.Key8](rt.FindClosestWithSelf(key.Key8(0x11))))
}

func TestFindClosestSkipsStaleBuckets(t *testing.T) {
	rt, clk, _ := newTable8(t, key.Key8(0), 20)

	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(key.Key8(0x01)), "old"))

	clk.Add(testPingTimeout)
	require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(key.Key8(0x80)), "new"))

	// a bucket untouched for exactly the ping timeout is still used
	require.Equal(t, []key.Key8{0x01, 0x80}, keysOf[key.Key8](rt.FindClosest(key.Key8(0))))

	clk.Add(time.Second)
	require.Equal(t, []key.Key8{0x80}, keysOf[key.Key8](rt.FindClosest(key.Key8(0))))

	// stale buckets still hold their contacts
	_, _, found := rt.Find(key.Key8(0x01))
	require.True(t, found)

	// and become visible again once refreshed
	require.IsType(t, &UpdateRefreshed[string]{}, rt.Update(kadtest.NewID(key.Key8(0x01)), "old"))
	require.Equal(t, []key.Key8{0x01, 0x80}, keysOf[key.Key8](rt.FindClosest(key.Key8(0))))
}

func TestFindClosestWithSelf(t *testing.T) {
	rt, _, _ := newTable8(t, key.Key8(0), 20)
	for _, k := range []key.Key8{0xff, 0x02, 0x80, 0x10, 0x03, 0x01} {
		require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewID(k), ""))
	}

	t.Run("self in the middle", func(t *testing.T) {
		// the local key is at distance 0x11 from the target
		got := keysOf[key.Key8](rt.FindClosestWithSelf(key.Key8(0x11)))
		require.Equal(t, []key.Key8{0x10, 0x01, 0x00, 0x03, 0x02, 0x80, 0xff}, got)
	})

	t.Run("self closest", func(t *testing.T) {
		got := keysOf[key.Key8](rt.FindClosestWithSelf(key.Key8(0x00)))
		require.Equal(t, []key.Key8{0x00, 0x01, 0x02, 0x03, 0x10, 0x80, 0xff}, got)
	})

	t.Run("self farthest", func(t *testing.T) {
		got := keysOf[key.Key8](rt.FindClosestWithSelf(key.Key8(0xff)))
		require.Equal(t, []key.Key8{0xff, 0x80, 0x10, 0x03, 0x02, 0x01, 0x00}, got)
	})
}

func TestFindClosestWithSelfProperties(t *testing.T) {
	clk := clock.NewMock()
	cfg, _ := newTestConfig(clk, 20)
	self := testutil.Random256()
	rt, err := New[key.Key256, *kadtest.ID[key.Key256], int](kadtest.NewID(self), cfg)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		rt.Update(kadtest.NewID(testutil.Random256()), i)
	}
	// populate the close buckets too
	for cpl := 0; cpl < 40; cpl++ {
		rt.Update(kadtest.NewID(testutil.RandomAtCpl(self, cpl)), cpl)
	}

	for i := 0; i < 10; i++ {
		target := testutil.Random256()
		closest := rt.FindClosest(target)
		withSelf := rt.FindClosestWithSelf(target)
		require.Len(t, withSelf, len(closest)+1)

		selfCount := 0
		for j, id := range withSelf {
			if key.Equal(id.Key(), self) {
				selfCount++
			}
			if j > 0 {
				prev := withSelf[j-1].Key().Xor(target)
				require.True(t, prev.Compare(id.Key().Xor(target)) <= 0, "not sorted at %d", j)
			}
		}
		require.Equal(t, 1, selfCount)

		for _, id := range closest {
			require.False(t, key.Equal(id.Key(), self))
			require.Contains(t, withSelf, id)
		}
	}
}

func TestStringIDTable(t *testing.T) {
	clk := clock.NewMock()
	cfg, _ := newTestConfig(clk, 20)
	rt, err := New[key.Key256, *kadtest.StringID, string](kadtest.NewStringID("self"), cfg)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		s := fmt.Sprintf("node-%d", i)
		rt.Update(kadtest.NewStringID(s), s)
	}

	target := kadtest.NewStringID("target").Key()
	closest := rt.FindClosest(target)
	require.NotEmpty(t, closest)
	for i := 1; i < len(closest); i++ {
		require.True(t, key.Closer(target, closest[i-1].Key(), closest[i].Key()))
	}

	id, v, found := rt.Find(closest[0].Key())
	require.True(t, found)
	require.Equal(t, closest[0].String(), v)
	require.Equal(t, closest[0].String(), id.String())
}

func TestAddNodeAndNearestNodes(t *testing.T) {
	rt, _, _ := newTable8(t, key.Key8(0), 2)
	var krt kad.RoutingTable[key.Key8, id8] = rt

	require.True(t, krt.AddNode(kadtest.NewID(key.Key8(0x80))))
	require.True(t, krt.AddNode(kadtest.NewID(key.Key8(0x81))))
	require.True(t, krt.AddNode(kadtest.NewID(key.Key8(0x80)))) // refreshed
	require.False(t, krt.AddNode(kadtest.NewID(key.Key8(0x82)))) // needs ping
	require.False(t, krt.AddNode(kadtest.NewID(key.Key8(0x00)))) // self
	require.True(t, krt.AddNode(kadtest.NewID(key.Key8(0x01))))

	require.Equal(t, []key.Key8{0x01, 0x80}, keysOf[key.Key8](krt.NearestNodes(key.Key8(0), 2)))
	require.Equal(t, []key.Key8{0x01, 0x80, 0x81}, keysOf[key.Key8](krt.NearestNodes(key.Key8(0), 10)))
	require.Empty(t, krt.NearestNodes(key.Key8(0), 0))
	require.Empty(t, krt.NearestNodes(key.Key8(0), -1))
}

func TestConcurrentAccess(t *testing.T) {
	clk := clock.NewMock()
	cfg, _ := newTestConfig(clk, 20)
	self := kadtest.NewStringID("self")
	rt, err := New[key.Key256, *kadtest.StringID, int](self, cfg)
	require.NoError(t, err)

	const (
		workers = 8
		updates = 200
	)

	for i := 0; i < 10; i++ {
		require.IsType(t, &UpdateAdded{}, rt.Update(kadtest.NewStringID(fmt.Sprintf("shared-%d", i)), -1))
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < updates; i++ {
				id := kadtest.NewStringID(fmt.Sprintf("node-%d-%d", w, i))
				rt.Update(id, i)
				// every worker also refreshes a shared set of contacts
				rt.Update(kadtest.NewStringID(fmt.Sprintf("shared-%d", i%10)), w)
				if i%20 == 0 {
					rt.FindClosest(id.Key())
					rt.FindClosestWithSelf(id.Key())
				}
			}
		}(w)
	}
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				rt.ForEachBucket(func(v *BucketView[key.Key256, *kadtest.StringID, int]) bool {
					_ = v.Len()
					return true
				})
				clk.Add(time.Second)
			}
		}()
	}
	wg.Wait()

	total := 0
	rt.ForEachBucket(func(v *BucketView[key.Key256, *kadtest.StringID, int]) bool {
		require.LessOrEqual(t, v.Len(), 20)
		seen := map[string]bool{}
		for _, id := range v.Contacts() {
			bid, ok := BucketIndex(rt.Self(), id.Key())
			require.True(t, ok)
			require.Equal(t, v.Index(), bid)
			require.False(t, seen[id.String()], "duplicate contact %s", id)
			seen[id.String()] = true
		}
		total += v.Len()
		return true
	})
	require.Equal(t, total, rt.Size())
	require.Greater(t, total, 0)

	for i := 0; i < 10; i++ {
		_, _, found := rt.Find(kadtest.NewStringID(fmt.Sprintf("shared-%d", i)).Key())
		require.True(t, found)
	}
}

func BenchmarkUpdate(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Logger = logrus.New()
	rt, err := New[key.Key256, *kadtest.ID[key.Key256], int](kadtest.NewID(testutil.Random256()), cfg)
	require.NoError(b, err)

	ids := make([]*kadtest.ID[key.Key256], 1024)
	for i := range ids {
		ids[i] = kadtest.NewID(testutil.Random256())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rt.Update(ids[i%len(ids)], i)
	}
}

func BenchmarkFindClosest(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Logger = logrus.New()
	self := testutil.Random256()
	rt, err := New[key.Key256, *kadtest.ID[key.Key256], int](kadtest.NewID(self), cfg)
	require.NoError(b, err)

	for i := 0; i < 1000; i++ {
		rt.Update(kadtest.NewID(testutil.Random256()), i)
	}
	for cpl := 0; cpl < 30; cpl++ {
		rt.Update(kadtest.NewID(testutil.RandomAtCpl(self, cpl)), cpl)
	}
	target := testutil.Random256()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rt.FindClosest(target)
	}
}
