package key

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/bits"

	"github.com/plprobelab/go-kbucket/kad"
)

// Key256 is a 256-bit Kademlia key.
type Key256 struct {
	b *[32]byte // this is a pointer to keep the size of Key256 small since it is often passed as argument
}

var _ kad.Key[Key256] = Key256{}

// NewKey256 returns a 256-bit Kademlia key whose bits are set from the supplied bytes.
func NewKey256(data []byte) Key256 {
	if len(data) != 32 {
		panic("invalid data length for key")
	}
	var b [32]byte
	copy(b[:], data)
	return Key256{b: &b}
}

// ZeroKey256 returns a 256-bit Kademlia key with all bits zeroed.
func ZeroKey256() Key256 {
	var b [32]byte
	return Key256{b: &b}
}

// ParseKey256Hex parses a 64 character hex string into a 256-bit Kademlia key.
func ParseKey256Hex(s string) (Key256, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Key256{}, fmt.Errorf("decode key: %w", err)
	}
	if len(data) != 32 {
		return Key256{}, ErrInvalidKey(32)
	}
	return NewKey256(data), nil
}

// Bit returns the value of the i'th bit of the key from most significant to least.
func (k Key256) Bit(i int) uint {
	if i < 0 || i > 255 {
		panic(fmt.Sprintf("bit index out of range: %d", i))
	}
	if k.b == nil {
		return 0
	}
	if k.b[i/8]&(byte(1)<<(7-i%8)) == 0 {
		return 0
	}
	return 1
}

// BitLen returns the length of the key in bits, which is always 256.
func (Key256) BitLen() int {
	return 256
}

// Xor returns the result of the eXclusive OR operation between the key and another key.
func (k Key256) Xor(o Key256) Key256 {
	var xored [32]byte
	if k.b != nil && o.b != nil {
		for i := 0; i < 32; i++ {
			xored[i] = k.b[i] ^ o.b[i]
		}
	} else if k.b != nil && o.b == nil {
		copy(xored[:], k.b[:])
	} else if k.b == nil && o.b != nil {
		copy(xored[:], o.b[:])
	}
	return Key256{b: &xored}
}

// CommonPrefixLength returns the number of leading bits the key shares with another key.
func (k Key256) CommonPrefixLength(o Key256) int {
	return k.Xor(o).LeadingZeros()
}

// LeadingZeros returns the number of leading zero bits of the key.
func (k Key256) LeadingZeros() int {
	if k.b == nil {
		return 256
	}
	for i := 0; i < 32; i++ {
		if k.b[i] != 0 {
			return i*8 + bits.LeadingZeros8(k.b[i])
		}
	}
	return 256
}

// Compare compares the numeric value of the key with another key of the same type.
func (k Key256) Compare(o Key256) int {
	if k.b != nil && o.b != nil {
		return bytes.Compare(k.b[:], o.b[:])
	}

	var zero [32]byte
	if k.b == nil {
		if o.b == nil {
			return 0
		}
		return bytes.Compare(zero[:], o.b[:])
	}

	return bytes.Compare(k.b[:], zero[:])
}

// HexString returns a string containing the hexadecimal representation of the key.
func (k Key256) HexString() string {
	if k.b == nil {
		var zero [32]byte
		return hex.EncodeToString(zero[:])
	}
	return hex.EncodeToString(k.b[:])
}

// MarshalBinary marshals the key into a byte slice.
// The bytes may be passed to NewKey256 to construct a new key with the same value.
func (k Key256) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 32)
	if k.b != nil {
		copy(buf, k.b[:])
	}
	return buf, nil
}

// Key32 is a 32-bit Kademlia key, suitable for testing and simulation of small networks.
type Key32 uint32

var _ kad.Key[Key32] = Key32(0)

// BitLen returns the length of the key in bits, which is always 32.
func (Key32) BitLen() int {
	return 32
}

// Bit returns the value of the i'th bit of the key from most significant to least.
func (k Key32) Bit(i int) uint {
	if i < 0 || i > 31 {
		panic(fmt.Sprintf("bit index out of range: %d", i))
	}
	return uint((k >> (31 - i)) & 1)
}

// Xor returns the result of the eXclusive OR operation between the key and another key.
func (k Key32) Xor(o Key32) Key32 {
	return k ^ o
}

// CommonPrefixLength returns the number of leading bits the key shares with another key.
func (k Key32) CommonPrefixLength(o Key32) int {
	return k.Xor(o).LeadingZeros()
}

// LeadingZeros returns the number of leading zero bits of the key.
func (k Key32) LeadingZeros() int {
	return bits.LeadingZeros32(uint32(k))
}

// Compare compares the numeric value of the key with another key of the same type.
func (k Key32) Compare(o Key32) int {
	if k < o {
		return -1
	} else if k > o {
		return 1
	}
	return 0
}

// HexString returns a string containing the hexadecimal representation of the key.
func (k Key32) HexString() string {
	return fmt.Sprintf("%08x", uint32(k))
}

// BitString returns a string containing the binary representation of the key.
func (k Key32) BitString() string {
	return fmt.Sprintf("%032b", uint32(k))
}

// Key8 is an 8-bit Kademlia key, suitable for testing and simulation of very small networks.
type Key8 uint8

var _ kad.Key[Key8] = Key8(0)

// BitLen returns the length of the key in bits, which is always 8.
func (Key8) BitLen() int {
	return 8
}

// Bit returns the value of the i'th bit of the key from most significant to least.
func (k Key8) Bit(i int) uint {
	if i < 0 || i > 7 {
		panic(fmt.Sprintf("bit index out of range: %d", i))
	}
	return uint((k >> (7 - i)) & 1)
}

// Xor returns the result of the eXclusive OR operation between the key and another key.
func (k Key8) Xor(o Key8) Key8 {
	return k ^ o
}

// CommonPrefixLength returns the number of leading bits the key shares with another key.
func (k Key8) CommonPrefixLength(o Key8) int {
	return k.Xor(o).LeadingZeros()
}

// LeadingZeros returns the number of leading zero bits of the key.
func (k Key8) LeadingZeros() int {
	return bits.LeadingZeros8(uint8(k))
}

// Compare compares the numeric value of the key with another key of the same type.
func (k Key8) Compare(o Key8) int {
	if k < o {
		return -1
	} else if k > o {
		return 1
	}
	return 0
}

// HexString returns a string containing the hexadecimal representation of the key.
func (k Key8) HexString() string {
	return fmt.Sprintf("%02x", uint8(k))
}

// BitString returns a string containing the binary representation of the key.
func (k Key8) BitString() string {
	return fmt.Sprintf("%08b", uint8(k))
}
