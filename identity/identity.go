// Package identity provides the RecordIdentity predicate used by the
// diff engine to recognize that two decoded records denote the same
// logical entity despite possibly different column values.
package identity

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Func decides whether a and b denote the same logical record. It is
// constructed once, at fetch time (ByPrimaryKey builders require
// schema access), and is then called both by the diff worker and, via
// Controller.IndexOf, on the consumer context, so implementations must
// be safe for concurrent use — no concurrent identity construction is
// ever performed by fetchedrecords.Controller.
type Func[R any] func(a, b R) bool

// Never returns a Func that always reports non-identity. This is the
// safe default: it degrades every move/update to a deletion+insertion
// pair but remains correct.
func Never[R any]() Func[R] {
	return func(a, b R) bool { return false }
}

// ByKey builds a Func from a key-extraction function, comparing the
// extracted keys with ==. This is the common case for primary-key
// identity once a schema lookup has produced the key column(s); callers
// typically build keyOf from a Database handle inside their
// identityBuilder (see fetchedrecords.Controller's performFetch).
func ByKey[R any, K comparable](keyOf func(R) K) Func[R] {
	return func(a, b R) bool { return keyOf(a) == keyOf(b) }
}

// CollatedString builds a Func over a string-valued key, comparing
// under a locale collation instead of byte equality — useful when
// primary keys are natural-language strings (e.g. slugs, usernames)
// that should compare equal under case and width folding. Accents are
// not folded: "é" and "e" compare unequal.
func CollatedString[R any](keyOf func(R) string, lang language.Tag) Func[R] {
	col := collate.New(lang, collate.IgnoreCase, collate.IgnoreWidth)
	return func(a, b R) bool {
		return col.CompareString(keyOf(a), keyOf(b)) == 0
	}
}
