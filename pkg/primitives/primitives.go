// Package primitives defines the small scalar identifiers shared across the
// storage core: page and slot ids, record ids, and log sequence numbers.
package primitives

import "fmt"

// PageID identifies a page within a heap file. Zero is a valid page id;
// -1 is reserved as InvalidPageID.
type PageID int32

// InvalidPageID sentinels "no such page".
const InvalidPageID PageID = -1

// SlotID identifies a slot within a page's slot directory. Dense starting
// at 0 for the lifetime of a page.
type SlotID int32

// InvalidSlotID sentinels "no such slot".
const InvalidSlotID SlotID = -1

// LSN is a monotonically increasing log sequence number assigned by the
// log manager.
type LSN int64

// InvalidLSN marks a page or record that has never been logged.
const InvalidLSN LSN = -1

// TxnID identifies a transaction.
type TxnID int64

// RID (record identifier) is the stable address of a tuple: the page it
// lives on and its ordinal slot within that page's directory. Stable for
// the record's lifetime, including while marked-deleted; invalidated only
// by apply-delete.
type RID struct {
	PageID PageID
	SlotID SlotID
}

// InvalidRID is returned by iterator/lookup helpers to signal "none".
var InvalidRID = RID{PageID: InvalidPageID, SlotID: InvalidSlotID}

// IsValid reports whether both halves of the RID are non-sentinel.
func (r RID) IsValid() bool {
	return r.PageID != InvalidPageID && r.SlotID != InvalidSlotID
}

func (r RID) String() string {
	return fmt.Sprintf("RID(page=%d,slot=%d)", r.PageID, r.SlotID)
}
