package core

import "sort"

// RankTally counts the distinct nodes created at each rank during a run.
type RankTally map[string]int

// Inc records the creation of one node at rank.
func (t RankTally) Inc(rank string) { t[rank]++ }

// Get returns the number of nodes created at rank.
func (t RankTally) Get(rank string) int { return t[rank] }

// Ranks returns the tallied rank labels sorted alphabetically.
func (t RankTally) Ranks() []string {
	out := make([]string, 0, len(t))
	for r := range t {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (t RankTally) Clone() RankTally {
	out := make(RankTally, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
