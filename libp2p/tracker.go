package libp2p

import (
	"context"
	"sync"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/sirupsen/logrus"

	"github.com/plprobelab/go-kbucket/key"
	"github.com/plprobelab/go-kbucket/network/address/addrinfo"
	"github.com/plprobelab/go-kbucket/network/address/peerid"
	"github.com/plprobelab/go-kbucket/routing/pingrt"
	"github.com/plprobelab/go-kbucket/routing/probe"
)

// PeerTable is a routing table of libp2p peers that keeps the known addresses of every peer.
type PeerTable = pingrt.Table[key.Key256, *peerid.PeerID, *addrinfo.AddrInfo]

// NewPeerTable creates a routing table for the local host of ep.
func NewPeerTable(ep *Endpoint, cfg *pingrt.Config) (*PeerTable, error) {
	return pingrt.New[key.Key256, *peerid.PeerID, *addrinfo.AddrInfo](ep.Self(), cfg)
}

// Tracker adds the remote peer of every new connection of a host to a routing table. Full
// buckets are resolved by pinging their oldest contact through the Endpoint.
type Tracker struct {
	ep     *Endpoint
	rt     *PeerTable
	prober *probe.Prober[key.Key256, *peerid.PeerID, *addrinfo.AddrInfo]
	log    *logrus.Entry

	// mu guards cancel and notify, which are set by Start and cleared by Close
	mu     sync.Mutex
	cancel context.CancelFunc
	notify *network.NotifyBundle
	wg     sync.WaitGroup
}

// NewTracker creates a Tracker. It does nothing until Start is called. If cfg is nil the
// default prober configuration is used.
func NewTracker(ep *Endpoint, rt *PeerTable, cfg *probe.Config) (*Tracker, error) {
	if cfg == nil {
		cfg = probe.DefaultConfig()
	}
	t := &Tracker{
		ep:  ep,
		rt:  rt,
		log: cfg.Logger.WithField("component", "tracker"),
	}

	prober, err := probe.New[key.Key256, *peerid.PeerID, *addrinfo.AddrInfo](rt, t.ping, cfg)
	if err != nil {
		return nil, err
	}
	t.prober = prober
	return t, nil
}

// ping pings id using the addresses the table holds for it. The peerstore may have dropped them
// since the peer disconnected.
func (t *Tracker) ping(ctx context.Context, id *peerid.PeerID) error {
	if _, ai, found := t.rt.Find(id.Key()); found && ai != nil {
		t.ep.MaybeAddToPeerstore(ctx, ai)
	}
	return t.ep.Ping(ctx, id)
}

// Start subscribes to the connection events of the host and adds the peers that are already
// connected. Calling Start on a started Tracker has no effect.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.notify != nil {
		return
	}

	ctx, t.cancel = context.WithCancel(ctx)
	t.notify = &network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			t.observe(ctx, c.RemotePeer(), c.RemoteMultiaddr())
		},
	}

	nw := t.ep.host.Network()
	nw.Notify(t.notify)
	for _, c := range nw.Conns() {
		t.observe(ctx, c.RemotePeer(), c.RemoteMultiaddr())
	}
}

// Close unsubscribes from the host and waits for pending pings to finish. It is safe to call
// Close more than once and concurrently.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.notify == nil {
		return
	}
	t.ep.host.Network().StopNotify(t.notify)
	t.cancel()
	t.wg.Wait()
	t.notify = nil
	t.cancel = nil
}

// observe must not block: notifications are delivered synchronously by the swarm.
func (t *Tracker) observe(ctx context.Context, p peer.ID, addr ma.Multiaddr) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if ctx.Err() != nil {
			return
		}

		id := peerid.NewPeerID(p)
		ai := addrinfo.NewAddrInfo(peer.AddrInfo{ID: p, Addrs: []ma.Multiaddr{addr}})
		if _, known, found := t.rt.Find(id.Key()); found && known != nil {
			ai = known.Merge(ai)
		}

		res, err := t.prober.Observe(ctx, id, ai)
		if err != nil {
			t.log.WithError(err).WithField("peer", p.String()).Debug("Oldest contact failed ping")
			return
		}
		if _, ok := res.(*pingrt.UpdateDiscarded); ok {
			t.log.WithField("peer", p.String()).Debug("Bucket full, peer not added")
		}
	}()
}
