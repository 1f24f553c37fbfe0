package diffengine

import (
	"github.com/kasuganosora/fetchedrecords/identity"
	"github.com/kasuganosora/fetchedrecords/row"
)

// Diff computes the standardized edit script transforming s into t:
// insertions, deletions and moves first, in discovery order, followed
// by all updates. same is used to recognize a deletion/insertion pair
// as referring to the same logical record (a Move or Update) instead
// of two independent structural edits; identity.Never degrades every
// such pair to a plain deletion+insertion, which remains correct.
func Diff[R any](s, t []*row.Item[R], same identity.Func[R]) []ItemChange[R] {
	raw := rawDiff(s, t)
	return standardize(raw, same)
}

// standardize implements spec §4.D's merge pass: walk the raw script,
// maintaining an accumulator M. A deletion/insertion whose record
// matches (by same) an opposite entry already in M is merged into a
// Move (different index) or Update (same index); updates are buffered
// and appended after every non-update entry, moves stay where the
// matched entry sat in M.
func standardize[R any](raw []ItemChange[R], same identity.Func[R]) []ItemChange[R] {
	m := make([]ItemChange[R], 0, len(raw))
	var updates []ItemChange[R]

	for _, c := range raw {
		matchIdx := -1
		for i, existing := range m {
			if !opposite(existing.Kind, c.Kind) {
				continue
			}
			if same(existing.Item.Record(), c.Item.Record()) {
				matchIdx = i
				break
			}
		}

		if matchIdx == -1 {
			m = append(m, c)
			continue
		}

		matched := m[matchIdx]
		var delSide, insSide ItemChange[R]
		if c.Kind == KindDeletion {
			delSide, insSide = c, matched
		} else {
			delSide, insSide = matched, c
		}

		oldRow := delSide.Item.Row()
		newRow := insSide.Item.Row()
		if !newRow.SameColumnSet(oldRow) {
			// Schema mismatch: fall back to two distinct events instead
			// of merging. The matched entry stays in M; c is appended
			// as its own event.
			m = append(m, c)
			continue
		}

		changed := newRow.ChangedColumns(oldRow)
		merged := ItemChange[R]{
			Item:           insSide.Item,
			ChangedColumns: changed,
		}

		if delSide.From == insSide.At {
			merged.Kind = KindUpdate
			merged.At = insSide.At
			updates = append(updates, merged)
			m = append(m[:matchIdx], m[matchIdx+1:]...)
		} else {
			merged.Kind = KindMove
			merged.From = delSide.From
			merged.To = insSide.At
			m[matchIdx] = merged
		}
	}

	return append(m, updates...)
}

func opposite(a, b Kind) bool {
	return (a == KindDeletion && b == KindInsertion) || (a == KindInsertion && b == KindDeletion)
}
