package kad

// Key is the interface all Kademlia key types support.
//
// A Kademlia key is defined as a bit string of arbitrary size. In practice, different Kademlia implementations use
// different key sizes. For instance, the Kademlia paper (https://pdos.csail.mit.edu/~petar/papers/maymounkov-kademlia-lncs.pdf)
// defines keys as 160-bits long and IPFS uses 256-bit keys.
//
// Keys are usually generated using cryptographic hash functions, however the specifics of key generation
// do not matter for key operations.
//
// The distance between two keys is the result of Xor, which is itself a key of the same type and bit length.
// Distances are ordered by Compare.
type Key[K any] interface {
	// BitLen returns the length of the key in bits. It is constant for a given key type and must be
	// greater than zero.
	BitLen() int

	// Bit returns the value of the i'th bit of the key from most significant to least. It is equivalent to (key>>(bitlen-i-1))&1.
	// Bit will panic if i is out of the range [0,BitLen()-1].
	Bit(i int) uint

	// Xor returns the result of the eXclusive OR operation between the key and another key of the same type.
	// The result is symmetric and is zero if and only if both keys are equal.
	Xor(other K) K

	// CommonPrefixLength returns the number of leading bits the key shares with another key of the same type.
	// The CommonPrefixLength of a key with itself is equal to BitLen.
	CommonPrefixLength(other K) int

	// LeadingZeros returns the number of leading zero bits of the key, using BitLen as the field width.
	// The LeadingZeros of the zero key is equal to BitLen.
	LeadingZeros() int

	// Compare compares the numeric value of the key with another key of the same type.
	// It returns -1 if the key is numerically less than other, +1 if it is greater
	// and 0 if both keys are equal.
	Compare(other K) int
}

// NodeID is a generic node identifier. It is used to identify a node.
type NodeID[K Key[K]] interface {
	// Key returns the Kademlia key of the NodeID.
	Key() K

	// String returns the string representation of the NodeID. String
	// representation should be unique for each NodeID.
	String() string
}

// RoutingTable is the interface all Kademlia Routing Tables types support.
type RoutingTable[K Key[K], N NodeID[K]] interface {
	// Self returns the local node's Kademlia key
	Self() K

	// AddNode tries to add a node to the routing table
	AddNode(N) bool

	// NearestNodes returns the closest nodes to a given key
	NearestNodes(K, int) []N
}
