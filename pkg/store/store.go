package store

import (
	"4d63.com/optional"
)

// Store is the opaque handle engines bind to. Implementations are
// compared by identity; two binds with the same Store value are the
// same binding. Engines hold a non-owning reference only.
type Store interface {
	Name() string
}

// ChangePublisher receives change events emitted by a store on
// mutation. notify.ChangeBus satisfies it.
type ChangePublisher interface {
	Publish(st Store, table string, key optional.Optional[PrimaryKeyValues])
}
