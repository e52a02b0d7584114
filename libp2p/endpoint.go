// Package libp2p connects a pingrt routing table of libp2p peers to a libp2p host. The Endpoint
// answers the table's ping requests with the libp2p ping protocol and the Tracker adds every peer
// the host connects to into the table.
package libp2p

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/plprobelab/go-kbucket/key"
	"github.com/plprobelab/go-kbucket/network/address/addrinfo"
	"github.com/plprobelab/go-kbucket/network/address/peerid"
	"github.com/plprobelab/go-kbucket/routing/probe"
	"github.com/plprobelab/go-kbucket/util"
)

// DefaultPeerstoreTTL is how long addresses learned from the routing table stay in the peerstore.
const DefaultPeerstoreTTL = 30 * time.Minute

// Endpoint dials and pings peers through a libp2p host.
type Endpoint struct {
	host host.Host
	ttl  time.Duration
}

var _ probe.PingFunc[key.Key256, *peerid.PeerID] = (*Endpoint)(nil).Ping

// NewEndpoint creates an Endpoint for h. Addresses it adds to the peerstore expire after
// peerstoreTTL, or DefaultPeerstoreTTL if peerstoreTTL is not positive.
func NewEndpoint(h host.Host, peerstoreTTL time.Duration) *Endpoint {
	if peerstoreTTL <= 0 {
		peerstoreTTL = DefaultPeerstoreTTL
	}
	return &Endpoint{host: h, ttl: peerstoreTTL}
}

// Self returns the identity of the local host.
func (e *Endpoint) Self() *peerid.PeerID {
	return peerid.NewPeerID(e.host.ID())
}

// AddrInfo returns the identity and listen addresses of the local host.
func (e *Endpoint) AddrInfo() *addrinfo.AddrInfo {
	return addrinfo.NewAddrInfo(peer.AddrInfo{ID: e.host.ID(), Addrs: e.host.Addrs()})
}

// MaybeAddToPeerstore adds the addresses of ai to the peerstore unless ai is the local host or
// is already connected.
func (e *Endpoint) MaybeAddToPeerstore(ctx context.Context, ai *addrinfo.AddrInfo) {
	_, span := util.StartSpan(ctx, "Endpoint.MaybeAddToPeerstore",
		trace.WithAttributes(attribute.String("PeerID", ai.String())))
	defer span.End()

	// Don't add addresses for self or our connected peers. We have better ones.
	if ai.ID == e.host.ID() || e.host.Network().Connectedness(ai.ID) == network.Connected {
		return
	}
	e.host.Peerstore().AddAddrs(ai.ID, ai.Addrs, e.ttl)
}

// DialPeer connects to id using the addresses in the peerstore. It returns immediately if a
// connection already exists.
func (e *Endpoint) DialPeer(ctx context.Context, id *peerid.PeerID) error {
	ctx, span := util.StartSpan(ctx, "Endpoint.DialPeer", trace.WithAttributes(
		attribute.String("PeerID", id.String()),
	))
	defer span.End()

	if e.host.Network().Connectedness(id.ID) == network.Connected {
		span.AddEvent("Already connected")
		return nil
	}

	if err := e.host.Connect(ctx, peer.AddrInfo{ID: id.ID}); err != nil {
		span.RecordError(err)
		return err
	}
	span.AddEvent("Connection successful")
	return nil
}

// Ping dials id if needed and waits for one reply of the libp2p ping protocol.
func (e *Endpoint) Ping(ctx context.Context, id *peerid.PeerID) error {
	if id.ID == e.host.ID() {
		return ErrSelfPing
	}
	if err := e.DialPeer(ctx, id); err != nil {
		return err
	}

	ctx, span := util.StartSpan(ctx, "Endpoint.Ping", trace.WithAttributes(
		attribute.String("PeerID", id.String()),
	))
	defer span.End()

	// ping.Ping keeps pinging until ctx is cancelled
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res, ok := <-ping.Ping(ctx, e.host, id.ID):
		if !ok {
			return ErrNoPingReply
		}
		if res.Error != nil {
			span.RecordError(res.Error)
			return res.Error
		}
		span.SetAttributes(attribute.Int64("rtt_us", res.RTT.Microseconds()))
		return nil
	}
}
