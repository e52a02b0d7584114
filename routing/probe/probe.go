// Package probe answers the ping requests raised by a pingrt.Table.
//
// A Table never talks to the network. When a bucket is full it reports UpdateNeedPing and
// leaves it to the caller to find out whether the least recently seen contact is still alive.
// A Prober performs that ping with a caller supplied function and feeds the answer back into
// the table.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plprobelab/go-kbucket/kad"
	"github.com/plprobelab/go-kbucket/routing/pingrt"
	"github.com/plprobelab/go-kbucket/util"
)

var (
	// ErrNotPending is returned by Handle for update results that do not ask for a ping.
	ErrNotPending = errors.New("update result does not require a ping")

	// ErrContactGone is returned by Handle when the pinged contact answered but was evicted from the
	// table in the meantime.
	ErrContactGone = errors.New("contact is no longer in the routing table")
)

// PingFunc checks whether the node id is reachable. It must return once ctx is done.
type PingFunc[K kad.Key[K], N kad.NodeID[K]] func(ctx context.Context, id N) error

// Prober pings the least recently seen contacts of full buckets.
type Prober[K kad.Key[K], N kad.NodeID[K], V any] struct {
	rt   *pingrt.Table[K, N, V]
	ping PingFunc[K, N]

	// cfg is a copy of the optional configuration supplied to the Prober
	cfg Config

	log *logrus.Entry
}

// New creates a Prober for the table rt. If cfg is nil the default configuration is used.
func New[K kad.Key[K], N kad.NodeID[K], V any](rt *pingrt.Table[K, N, V], ping PingFunc[K, N], cfg *Config) (*Prober[K, N, V], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if rt == nil {
		return nil, fmt.Errorf("routing table must not be nil")
	}
	if ping == nil {
		return nil, fmt.Errorf("ping function must not be nil")
	}

	return &Prober[K, N, V]{
		rt:   rt,
		ping: ping,
		cfg:  *cfg,
		log: cfg.Logger.WithFields(logrus.Fields{
			"component": "probe",
			"self":      rt.SelfID().String(),
		}),
	}, nil
}

// Observe records that id was seen with value and, if its bucket is full, pings the bucket's
// least recently seen contact. It returns the result of the update. The error is only set when
// a ping was attempted and did not keep the oldest contact in the table.
func (p *Prober[K, N, V]) Observe(ctx context.Context, id N, value V) (pingrt.UpdateResult, error) {
	res := p.rt.Update(id, value)
	if _, ok := res.(*pingrt.UpdateNeedPing[K, N]); !ok {
		return res, nil
	}
	_, err := p.Handle(ctx, res)
	return res, err
}

// Handle pings the contact named by an UpdateNeedPing result. If the contact answers in time it
// is refreshed in the table, which drops the contact waiting for its slot, and the result of
// that refresh is returned. If it does not answer, Handle returns the ping error and the table
// evicts the contact once its ping timeout expires.
func (p *Prober[K, N, V]) Handle(ctx context.Context, res pingrt.UpdateResult) (pingrt.UpdateResult, error) {
	ctx, span := util.StartSpan(ctx, "Prober.Handle")
	defer span.End()

	np, ok := res.(*pingrt.UpdateNeedPing[K, N])
	if !ok {
		span.SetStatus(codes.Error, ErrNotPending.Error())
		return nil, ErrNotPending
	}
	span.SetAttributes(attribute.String("oldest", np.Oldest.String()))

	pctx, cancel := p.cfg.Clock.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.ping(pctx, np.Oldest); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping failed")
		if p.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			p.log.WithError(err).WithField("oldest", np.Oldest.String()).Debug("Oldest contact did not answer ping")
		}
		return nil, fmt.Errorf("ping %s: %w", np.Oldest, err)
	}

	// keep the value the table already holds for the contact
	_, v, found := p.rt.Find(np.Oldest.Key())
	if !found {
		span.SetStatus(codes.Error, ErrContactGone.Error())
		return nil, ErrContactGone
	}

	refreshed := p.rt.Update(np.Oldest, v)
	span.AddEvent("refreshed", trace.WithAttributes(attribute.String("id", np.Oldest.String())))
	return refreshed, nil
}
