package store

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// PrimaryKeyValues is the ordered tuple identifying one row. Parts
// must be comparable scalars (ints, strings, bools, ...). The tuple is
// fixed for the life of one binding; callers must not mutate it after
// handing it to a store or an engine.
type PrimaryKeyValues []interface{}

func PK(parts ...interface{}) PrimaryKeyValues {
	return PrimaryKeyValues(parts)
}

func (pk PrimaryKeyValues) Equal(other PrimaryKeyValues) bool {
	if len(pk) != len(other) {
		return false
	}
	for i := range pk {
		if pk[i] != other[i] {
			return false
		}
	}
	return true
}

// Hash returns a stable hash of the tuple, used by the notifier to
// index row-scoped subscriptions.
func (pk PrimaryKeyValues) Hash() uint64 {
	return xxhash.Sum64String(pk.canonical())
}

// canonical renders a type-tagged encoding with no collisions across
// part types; used as the ordering key in the in-memory row table.
func (pk PrimaryKeyValues) canonical() string {
	var sb strings.Builder
	for _, part := range pk {
		fmt.Fprintf(&sb, "%T\x00%v\x00", part, part)
	}
	return sb.String()
}

func (pk PrimaryKeyValues) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, part := range pk {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%v", part)
	}
	sb.WriteByte(')')
	return sb.String()
}
