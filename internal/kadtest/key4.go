package kadtest

import (
	"fmt"
	"math/bits"

	"github.com/plprobelab/go-kbucket/kad"
)

// Key4 is a 4-bit Kademlia key held in the low nibble of a byte. The high nibble is
// always ignored. It yields a routing table of only four buckets, which keeps bucket
// arithmetic easy to follow in tests.
type Key4 uint8

var _ kad.Key[Key4] = Key4(0)

func (Key4) BitLen() int {
	return 4
}

func (k Key4) Bit(i int) uint {
	if i < 0 || i > 3 {
		panic(fmt.Sprintf("bit index out of range: %d", i))
	}
	return uint((k >> (3 - i)) & 1)
}

func (k Key4) Xor(o Key4) Key4 {
	return (k ^ o) & 0x0f
}

func (k Key4) CommonPrefixLength(o Key4) int {
	return k.Xor(o).LeadingZeros()
}

func (k Key4) LeadingZeros() int {
	return bits.LeadingZeros8(uint8(k&0x0f)) - 4
}

func (k Key4) Compare(o Key4) int {
	a, b := k&0x0f, o&0x0f
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func (k Key4) BitString() string {
	return fmt.Sprintf("%04b", uint8(k&0x0f))
}
