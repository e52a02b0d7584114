// Package addrinfo pairs a libp2p peer identity with the multiaddresses it can be dialed on,
// so a routing table can carry dialing information as the value of each contact.
package addrinfo

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/plprobelab/go-kbucket/kad"
	"github.com/plprobelab/go-kbucket/key"
	"github.com/plprobelab/go-kbucket/network/address/peerid"
)

type AddrInfo struct {
	peer.AddrInfo
	id *peerid.PeerID
}

var _ kad.NodeID[key.Key256] = (*AddrInfo)(nil)

func NewAddrInfo(ai peer.AddrInfo) *AddrInfo {
	return &AddrInfo{
		AddrInfo: ai,
		id:       peerid.NewPeerID(ai.ID),
	}
}

// Parse builds an AddrInfo from a multiaddress that ends with a /p2p component.
func Parse(s string) (*AddrInfo, error) {
	maddr, err := ma.NewMultiaddr(s)
	if err != nil {
		return nil, err
	}
	ai, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return nil, err
	}
	return NewAddrInfo(*ai), nil
}

func (ai AddrInfo) Key() key.Key256 {
	return ai.id.Key()
}

func (ai AddrInfo) String() string {
	return ai.id.String()
}

func (ai AddrInfo) PeerID() *peerid.PeerID {
	return ai.id
}

func (ai AddrInfo) Addresses() []ma.Multiaddr {
	addrs := make([]ma.Multiaddr, len(ai.Addrs))
	copy(addrs, ai.Addrs)
	return addrs
}

// Merge returns an AddrInfo holding the addresses of ai followed by the addresses of other that
// ai does not already have. It is meant for refreshing a contact with newly learned addresses.
func (ai AddrInfo) Merge(other *AddrInfo) *AddrInfo {
	merged := peer.AddrInfo{ID: ai.ID, Addrs: ai.Addresses()}
	if other != nil {
		for _, a := range other.Addrs {
			if !hasAddr(merged.Addrs, a) {
				merged.Addrs = append(merged.Addrs, a)
			}
		}
	}
	return NewAddrInfo(merged)
}

func hasAddr(addrs []ma.Multiaddr, a ma.Multiaddr) bool {
	for _, b := range addrs {
		if a.Equal(b) {
			return true
		}
	}
	return false
}
