package testutil

import (
	"encoding/binary"
	"math/rand"
	"strconv"

	"github.com/plprobelab/go-kbucket/key"
)

var rng = rand.New(rand.NewSource(299792458))

// Random256 returns a 256-bit key populated with random data.
func Random256() key.Key256 {
	buf := make([]byte, 32)
	rng.Read(buf)
	return key.NewKey256(buf)
}

// RandomWithPrefix returns a 256-bit key having a prefix equal to the bit pattern held in s.
// A prefix of up to 64 bits is supported.
func RandomWithPrefix(s string) key.Key256 {
	if s == "" {
		return Random256()
	}

	prefixbits := len(s)
	if prefixbits > 64 {
		panic("RandomWithPrefix: prefix too long")
	}
	n, err := strconv.ParseUint(s, 2, 64)
	if err != nil {
		panic("RandomWithPrefix: " + err.Error())
	}
	prefix := n << (64 - prefixbits)

	buf := make([]byte, 32)
	rng.Read(buf)

	lead := binary.BigEndian.Uint64(buf)
	lead <<= prefixbits
	lead >>= prefixbits
	lead |= prefix
	binary.BigEndian.PutUint64(buf, lead)
	return key.NewKey256(buf)
}

// RandomAtCpl returns a 256-bit key that shares exactly cpl leading bits with k.
func RandomAtCpl(k key.Key256, cpl int) key.Key256 {
	if cpl < 0 || cpl >= 256 {
		panic("RandomAtCpl: cpl out of range")
	}
	buf := make([]byte, 32)
	rng.Read(buf)

	kb, _ := k.MarshalBinary()
	for i := 0; i <= cpl; i++ {
		mask := byte(1) << (7 - i%8)
		bit := kb[i/8] & mask
		if i == cpl {
			// flip the first differing bit
			bit ^= mask
		}
		buf[i/8] = buf[i/8]&^mask | bit
	}
	return key.NewKey256(buf)
}
