// Package group models the transaction group: the logical unit of work
// spanning one or more file handles between commits. Exactly one group is
// open at any time; the commit scheduler owns it and serializes all access.
package group

import (
	"sort"
	"time"
)

// Group tracks which files were touched since the last commit. It is not
// safe for concurrent use; the scheduler serializes access.
type Group struct {
	seq       uint64
	createdAt time.Time
	touched   map[string]struct{}
}

// New creates an empty group with the given sequence number.
func New(seq uint64, now time.Time) *Group {
	return &Group{
		seq:       seq,
		createdAt: now,
		touched:   make(map[string]struct{}),
	}
}

func (g *Group) Seq() uint64 { return g.seq }

func (g *Group) CreatedAt() time.Time { return g.createdAt }

// Touch records that fileID was mutated in this group. Idempotent.
func (g *Group) Touch(fileID string) {
	g.touched[fileID] = struct{}{}
}

// Touched reports whether fileID was mutated in this group.
func (g *Group) Touched(fileID string) bool {
	_, ok := g.touched[fileID]
	return ok
}

// Pending returns the touched file identities in the deterministic commit
// order: lexicographic by identity. Committing in this fixed order every
// cycle bounds crash skew to "some prefix committed, rest unchanged".
func (g *Group) Pending() []string {
	ids := make([]string, 0, len(g.touched))
	for id := range g.touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether no file was touched. An empty group requires no
// commit action when closed.
func (g *Group) Empty() bool { return len(g.touched) == 0 }

func (g *Group) Len() int { return len(g.touched) }
