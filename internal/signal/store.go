package signal

import "context"

// Key names a slot in the local signal store.
type Key string

const (
	KeySelfReport  Key = "mother_log"
	KeyPhysical    Key = "physical_status"
	KeyMentalScore Key = "mental_health_score"
	KeyJournal     Key = "journal_history"
	KeyMindfulness Key = "is_breathing"
)

// Keys lists every local signal key in refresh order.
var Keys = []Key{KeySelfReport, KeyPhysical, KeyMentalScore, KeyJournal, KeyMindfulness}

// Store is the local key-value signal store. Subscribe delivers the key of
// every write made by any writer of the store until ctx is done.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Set(ctx context.Context, key Key, value []byte) error
	Subscribe(ctx context.Context) (<-chan Key, error)
}

// VisionStore persists nurse vision logs. Latest returns the most recent
// record by creation time.
type VisionStore interface {
	Latest(ctx context.Context) (*VisionLog, bool, error)
	Insert(ctx context.Context, log *VisionLog) error
}
