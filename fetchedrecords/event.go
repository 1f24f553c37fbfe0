package fetchedrecords

import "github.com/kasuganosora/fetchedrecords/diffengine"

// IndexPath locates a record within the projection. The controller
// never groups into more than one section, so Section is always 0;
// the field exists so Delegate callbacks carry the same shape a
// sectioned consumer (e.g. a table/collection view) expects.
type IndexPath struct {
	Section int
	Row     int
}

// FetchedRecordsEvent is the public projection of diffengine.ItemChange:
// the same tagged variants, with the decoded-record handle omitted
// (DidChangeRecord receives the record as a separate argument) and
// positions expressed as IndexPath instead of bare ints.
type FetchedRecordsEvent struct {
	Kind diffengine.Kind

	// IndexPath is the event's primary position: the inserted-at index
	// for Insertion, the removed-from index for Deletion, the
	// moved-from index for Move, or the position for Update.
	IndexPath IndexPath

	// NewIndexPath is meaningful only for Move: the destination index.
	NewIndexPath IndexPath

	// ChangedColumns is meaningful only for Move and Update: the map
	// from changed column name to its old value.
	ChangedColumns map[string]any
}

func eventFromChange[R any](c diffengine.ItemChange[R]) FetchedRecordsEvent {
	switch c.Kind {
	case diffengine.KindInsertion:
		return FetchedRecordsEvent{Kind: c.Kind, IndexPath: IndexPath{Row: c.At}}
	case diffengine.KindDeletion:
		return FetchedRecordsEvent{Kind: c.Kind, IndexPath: IndexPath{Row: c.From}}
	case diffengine.KindMove:
		return FetchedRecordsEvent{
			Kind:           c.Kind,
			IndexPath:      IndexPath{Row: c.From},
			NewIndexPath:   IndexPath{Row: c.To},
			ChangedColumns: c.ChangedColumns,
		}
	case diffengine.KindUpdate:
		return FetchedRecordsEvent{
			Kind:           c.Kind,
			IndexPath:      IndexPath{Row: c.At},
			ChangedColumns: c.ChangedColumns,
		}
	default:
		return FetchedRecordsEvent{Kind: c.Kind}
	}
}

// SectionView is a read-only view over the controller's single
// section: the projection's records, wrapped the way a sectioned
// consumer (table view, list adapter) expects to walk them.
type SectionView[R any] struct {
	records []R
}

// Count returns the number of records in the section.
func (s SectionView[R]) Count() int { return len(s.records) }

// RecordAt returns the record at the given position within the
// section. Out-of-range access is a programmer error, matching
// Controller.RecordAt.
func (s SectionView[R]) RecordAt(index int) R {
	return s.records[index]
}
