// Package sha256key256 derives 256-bit Kademlia keys from arbitrary content using the SHA2-256
// multihash function.
package sha256key256

import (
	"crypto/sha256"

	mh "github.com/multiformats/go-multihash"
	mhreg "github.com/multiformats/go-multihash/core"

	"github.com/plprobelab/go-kbucket/key"
)

const (
	// HasherID is the identifier hash function used to derive the second hash
	// identifiers associated with a CID or multihash
	HasherID = mh.SHA2_256

	// Keysize is the length in bytes of the hash function's digest, which is
	// equivalent to the keysize in the Kademlia keyspace
	Keysize = sha256.Size
)

// Key produces a 256-bit Kademlia key from the digest of data.
func Key(data []byte) key.Key256 {
	// hasher is the hash function used to derive the second hash identifiers
	hasher, err := mhreg.GetHasher(HasherID)
	if err != nil {
		// sha2-256 is always registered by go-multihash
		panic(err)
	}
	hasher.Write(data)
	return key.NewKey256(hasher.Sum(nil))
}

// StringKey produces a 256-bit Kademlia key from a string.
func StringKey(s string) key.Key256 {
	return Key([]byte(s))
}
