package ledger

import "context"

// Store is the persistence contract the storage layer must satisfy. Load
// returns the state plus an opaque version token; Save commits a state
// computed from exactly that version and fails with ErrConflict when a
// concurrent writer got there first — the caller reloads and re-evaluates
// instead of force-overwriting.
type Store interface {
	Load(ctx context.Context, fid int64) (UserRewardState, int64, error)
	Save(ctx context.Context, state UserRewardState, version int64) error
}
