package libp2p

import "errors"

var (
	// ErrSelfPing is returned by Ping when asked to ping the local host.
	ErrSelfPing = errors.New("cannot ping the local peer")

	// ErrNoPingReply is returned by Ping when the ping protocol ends without a result.
	ErrNoPingReply = errors.New("ping stream closed without a reply")
)
