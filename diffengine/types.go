// Package diffengine computes a minimum-cost edit script between two
// ordered sequences of row.Item and post-processes it into insertions,
// deletions, moves and updates.
package diffengine

import "github.com/kasuganosora/fetchedrecords/row"

// Kind tags an ItemChange's variant.
type Kind int

const (
	KindInsertion Kind = iota
	KindDeletion
	KindMove
	KindUpdate
)

func (k Kind) String() string {
	switch k {
	case KindInsertion:
		return "insertion"
	case KindDeletion:
		return "deletion"
	case KindMove:
		return "move"
	case KindUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// ItemChange is one atom of an edit script. Fields not meaningful for a
// given Kind are left zero: From is meaningful for KindDeletion and
// KindMove; At is meaningful for KindInsertion and KindUpdate; To is
// meaningful for KindMove; ChangedColumns is meaningful for KindMove and
// KindUpdate.
type ItemChange[R any] struct {
	Kind           Kind
	Item           *row.Item[R]
	From           int
	To             int
	At             int
	ChangedColumns map[string]any
}

// Insertion builds a KindInsertion ItemChange.
func Insertion[R any](item *row.Item[R], at int) ItemChange[R] {
	return ItemChange[R]{Kind: KindInsertion, Item: item, At: at}
}

// Deletion builds a KindDeletion ItemChange.
func Deletion[R any](item *row.Item[R], from int) ItemChange[R] {
	return ItemChange[R]{Kind: KindDeletion, Item: item, From: from}
}
