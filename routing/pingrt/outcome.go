package pingrt

import (
	"github.com/plprobelab/go-kbucket/kad"
)

// UpdateResult is the outcome of a call to Table.Update. None of the outcomes is an error:
// callers are expected to handle each of them.
type UpdateResult interface {
	updateResult()
}

// UpdateAdded indicates that the contact was not known and has been appended to its bucket
// as the most recently seen contact.
type UpdateAdded struct{}

// UpdateRefreshed indicates that the contact was already known. Its value has been replaced and
// it is now the most recently seen contact of its bucket.
type UpdateRefreshed[V any] struct {
	Previous V // the value that was associated with the contact before the update
}

// UpdateNeedPing indicates that the contact's bucket is full. The contact has been placed in the
// bucket's pending slot and the caller should ping Oldest. If Oldest responds, the caller should
// call Update for it again, which drops the pending contact. If it does not respond within the
// table's ping timeout, the next access to the bucket evicts Oldest in favour of the pending contact.
type UpdateNeedPing[K kad.Key[K], N kad.NodeID[K]] struct {
	Oldest N
}

// UpdateDiscarded indicates that the contact's bucket is full and already has a pending
// contact. The contact has been dropped.
type UpdateDiscarded struct{}

// UpdateSelfRejected indicates that the caller tried to add the local node to its own table.
// Nothing was changed.
type UpdateSelfRejected struct{}

// updateResult() ensures that only Update outcomes can be assigned to an UpdateResult.
func (*UpdateAdded) updateResult()          {}
func (*UpdateRefreshed[V]) updateResult()   {}
func (*UpdateNeedPing[K, N]) updateResult() {}
func (*UpdateDiscarded) updateResult()      {}
func (*UpdateSelfRejected) updateResult()   {}
