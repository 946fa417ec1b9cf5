package game

import (
	"fmt"
	"sort"
)

// multiset counts card names. Counts never go below zero.
type multiset struct {
	counts map[string]int
}

func newMultiset(names ...string) *multiset {
	m := &multiset{counts: make(map[string]int, len(names))}
	for _, n := range names {
		m.Add(n, 1)
	}
	return m
}

// Add adds amount copies of name.
func (m *multiset) Add(name string, amount int) {
	if amount > 0 {
		m.counts[name] += amount
	}
}

// Remove takes one copy of name out. It reports false when there was none
// left to take.
func (m *multiset) Remove(name string) bool {
	if m.counts[name] <= 0 {
		return false
	}
	m.counts[name]--
	if m.counts[name] == 0 {
		delete(m.counts, name)
	}
	return true
}

// Count returns the copies of name remaining.
func (m *multiset) Count(name string) int {
	return m.counts[name]
}

// Len returns the total number of copies.
func (m *multiset) Len() int {
	n := 0
	for _, c := range m.counts {
		n += c
	}
	return n
}

// Names returns the distinct names in ascending order.
func (m *multiset) Names() []string {
	out := make([]string, 0, len(m.counts))
	for name := range m.counts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Summary renders "name xN" for every name, sorted by name.
func (m *multiset) Summary() []string {
	names := m.Names()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, summaryLine(name, m.counts[name]))
	}
	return out
}

func summaryLine(name string, count int) string {
	return fmt.Sprintf("%s x%d", name, count)
}
