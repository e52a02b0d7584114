// Package peerid adapts libp2p peer identities to Kademlia node identifiers.
package peerid

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/plprobelab/go-kbucket/kad"
	"github.com/plprobelab/go-kbucket/key"
	"github.com/plprobelab/go-kbucket/key/sha256key256"
)

// PeerID is a libp2p peer identity whose Kademlia key is the SHA2-256 digest of the peer id bytes.
type PeerID struct {
	peer.ID
}

var _ kad.NodeID[key.Key256] = (*PeerID)(nil)

func NewPeerID(p peer.ID) *PeerID {
	return &PeerID{p}
}

func (id PeerID) Key() key.Key256 {
	return sha256key256.Key([]byte(id.ID))
}

// Equal reports whether both identifiers name the same peer. A nil PeerID is only equal to
// another nil PeerID.
func (id *PeerID) Equal(other *PeerID) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.ID == other.ID
}
