package diffengine

import (
	"github.com/kasuganosora/fetchedrecords/row"
)

// cost/way bookkeeping for the Wagner-Fischer matrix. way encodes which
// transition produced d[i][j]'s minimum cost.
type way int

const (
	wayMatch way = iota
	wayDelete
	wayInsert
	waySubstitute
)

type cell struct {
	cost int
	way  way
}

// rawDiff computes the minimum-length edit script transforming s into
// t using row equality, with the tie-break order deletion before
// insertion before substitution. It is O(m*n) time and space, matching
// the matrix-of-script-prefixes model described by the spec; the
// returned script is already in forward (left-to-right discovery)
// order.
func rawDiff[R any](s, t []*row.Item[R]) []ItemChange[R] {
	m, n := len(s), len(t)
	d := make([][]cell, m+1)
	for i := range d {
		d[i] = make([]cell, n+1)
	}
	for i := 1; i <= m; i++ {
		d[i][0] = cell{cost: i, way: wayDelete}
	}
	for j := 1; j <= n; j++ {
		d[0][j] = cell{cost: j, way: wayInsert}
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s[i-1].Row().Equal(t[j-1].Row()) {
				d[i][j] = cell{cost: d[i-1][j-1].cost, way: wayMatch}
				continue
			}
			best := cell{cost: d[i-1][j].cost + 1, way: wayDelete}
			if c := d[i][j-1].cost + 1; c < best.cost {
				best = cell{cost: c, way: wayInsert}
			}
			if c := d[i-1][j-1].cost + 2; c < best.cost {
				best = cell{cost: c, way: waySubstitute}
			}
			d[i][j] = best
		}
	}

	var reversed []ItemChange[R]
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && d[i][j].way == wayMatch:
			i--
			j--
		case i > 0 && (j == 0 || d[i][j].way == wayDelete):
			reversed = append(reversed, Deletion(s[i-1], i-1))
			i--
		case j > 0 && (i == 0 || d[i][j].way == wayInsert):
			reversed = append(reversed, Insertion(t[j-1], j-1))
			j--
		default: // waySubstitute
			reversed = append(reversed, Insertion(t[j-1], j-1))
			reversed = append(reversed, Deletion(s[i-1], i-1))
			i--
			j--
		}
	}

	script := make([]ItemChange[R], len(reversed))
	for k, op := range reversed {
		script[len(reversed)-1-k] = op
	}
	return script
}
