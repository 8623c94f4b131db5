package journal

import (
	"time"

	"github.com/veridie/veridie/internal/platform/id"
	"github.com/veridie/veridie/internal/platform/logging"
)

// Emitter records journal entries. A nil emitter, or one over a nil
// store, is a no-op; store failures are logged, never surfaced.
type Emitter struct {
	store Store
	clock func() time.Time
	newID func() string
}

// NewEmitter creates an emitter over store.
func NewEmitter(store Store) *Emitter {
	return &Emitter{
		store: store,
		clock: time.Now,
		newID: func() string {
			s, err := id.NewID()
			if err != nil {
				return ""
			}
			return s
		},
	}
}

// Emit appends a record of the given kind.
func (e *Emitter) Emit(kind, detail string) {
	if e == nil || e.store == nil {
		return
	}
	rec := Record{
		ID:        e.newID(),
		Timestamp: e.clock().UTC(),
		Kind:      kind,
		Detail:    detail,
	}
	if err := e.store.Append(rec); err != nil {
		logging.Errorf("Journal", "append %s record: %v", kind, err)
	}
}
