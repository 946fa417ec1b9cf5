package game

import "github.com/hsautopilot/tracker-go/internal/powerlog"

// RevealedCache remembers the last card id each object was seen as. Entries
// are only ever added or overwritten, never removed, so an object that goes
// face down again keeps its identity.
type RevealedCache struct {
	cards map[int]string
}

// NewRevealedCache returns an empty cache.
func NewRevealedCache() *RevealedCache {
	return &RevealedCache{cards: make(map[int]string)}
}

// Record stores cardID for object id. Empty card ids are ignored. It reports
// whether the cache changed.
func (c *RevealedCache) Record(id int, cardID string) bool {
	if cardID == "" {
		return false
	}
	if c.cards[id] == cardID {
		return false
	}
	c.cards[id] = cardID
	return true
}

// Lookup returns the remembered card id for object id.
func (c *RevealedCache) Lookup(id int) (string, bool) {
	if c == nil {
		return "", false
	}
	cardID, ok := c.cards[id]
	return cardID, ok
}

// Len returns the number of remembered objects.
func (c *RevealedCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.cards)
}

// Clone returns an independent copy.
func (c *RevealedCache) Clone() *RevealedCache {
	out := NewRevealedCache()
	if c == nil {
		return out
	}
	for id, cardID := range c.cards {
		out.cards[id] = cardID
	}
	return out
}

// Observe records every FULL_ENTITY and SHOW_ENTITY carrying a card id.
func (c *RevealedCache) Observe(rec *powerlog.Record) {
	switch rec.Kind {
	case powerlog.KindFullEntity, powerlog.KindShowEntity:
		c.Record(rec.Entity, rec.CardID)
	}
}

// Resolve returns the object's own card id, falling back to the cache.
func (c *RevealedCache) Resolve(o *Object) string {
	if o == nil {
		return ""
	}
	if o.CardID != "" {
		return o.CardID
	}
	cardID, _ := c.Lookup(o.ID)
	return cardID
}
