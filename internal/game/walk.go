package game

import "github.com/hsautopilot/tracker-go/internal/powerlog"

// DefaultMaxDepth bounds how deeply nested block records are followed.
const DefaultMaxDepth = 50

// Visitor receives each record reached by Walk, in log order.
type Visitor func(rec *powerlog.Record)

// Walk visits records depth-first, a block before its children. Records
// nested deeper than maxDepth are not visited; the number of block records
// whose children were cut off is returned so callers can report it.
func Walk(records []*powerlog.Record, maxDepth int, visitors ...Visitor) int {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return walk(records, 0, maxDepth, visitors)
}

func walk(records []*powerlog.Record, depth, maxDepth int, visitors []Visitor) int {
	truncated := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, visit := range visitors {
			visit(rec)
		}
		if len(rec.Children) == 0 {
			continue
		}
		if depth+1 > maxDepth {
			truncated++
			continue
		}
		truncated += walk(rec.Children, depth+1, maxDepth, visitors)
	}
	return truncated
}
