package game

import (
	"sort"

	"github.com/hsautopilot/tracker-go/internal/cards"
	"github.com/hsautopilot/tracker-go/internal/deckstring"
	"github.com/hsautopilot/tracker-go/internal/game/tags"
)

// CardLookup is the read-only card database. Lookup must never fail: unknown
// ids come back with the id as the name.
type CardLookup interface {
	Lookup(id string) cards.Card
	ByDBFID(dbfID int) (cards.Card, bool)
}

// UnknownBucket names the count of deck objects with no known identity.
const UnknownBucket = cards.UnknownName

// BaselineCard is one copy of a card in the supplied decklist.
type BaselineCard struct {
	CardID string
	Name   string
	Text   string
}

// Display renders the card as "name: text", or just the name without text.
func (b BaselineCard) Display() string {
	return displayLine(b.Name, b.Text)
}

func displayLine(name, text string) string {
	if text == "" {
		return name
	}
	return name + ": " + text
}

// DeckKnowledge is the full decklist used as the elimination baseline,
// one entry per copy, sorted by display string.
type DeckKnowledge struct {
	cards []BaselineCard
}

// NewDeckKnowledge sorts a copy of entries.
func NewDeckKnowledge(entries []BaselineCard) *DeckKnowledge {
	list := append([]BaselineCard(nil), entries...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Display() < list[j].Display() })
	return &DeckKnowledge{cards: list}
}

// DeckKnowledgeFromCode resolves a decoded deck code against the card
// database. Cards the database does not know are skipped; their count is
// returned alongside.
func DeckKnowledgeFromCode(d *deckstring.Deck, lookup CardLookup) (*DeckKnowledge, int) {
	var entries []BaselineCard
	missing := 0
	for _, cc := range d.Cards {
		c, ok := lookup.ByDBFID(cc.DBFID)
		if !ok {
			missing += cc.Count
			continue
		}
		for i := 0; i < cc.Count; i++ {
			entries = append(entries, BaselineCard{CardID: c.ID, Name: c.Name, Text: c.Text})
		}
	}
	return NewDeckKnowledge(entries), missing
}

// Len returns the number of cards in the list.
func (k *DeckKnowledge) Len() int {
	if k == nil {
		return 0
	}
	return len(k.cards)
}

// Cards returns the entries in display order.
func (k *DeckKnowledge) Cards() []BaselineCard {
	if k == nil {
		return nil
	}
	return append([]BaselineCard(nil), k.cards...)
}

// Displays returns every entry's display string.
func (k *DeckKnowledge) Displays() []string {
	if k == nil {
		return nil
	}
	out := make([]string, len(k.cards))
	for i, c := range k.cards {
		out[i] = c.Display()
	}
	return out
}

func (k *DeckKnowledge) names() *multiset {
	m := newMultiset()
	for _, c := range k.cards {
		m.Add(c.Name, 1)
	}
	return m
}

// DeckMode selects how the remaining deck is derived.
type DeckMode int

const (
	// DeckDirect lists the objects currently in the deck zone.
	DeckDirect DeckMode = iota
	// DeckElimination subtracts everything seen outside the deck from the baseline.
	DeckElimination
)

func (d DeckMode) String() string {
	if d == DeckElimination {
		return "elimination"
	}
	return "direct"
}

// DeckInference derives a player's undrawn cards from the current model.
type DeckInference struct {
	Model    *Model
	Revealed *RevealedCache
	Lookup   CardLookup
	Baseline *DeckKnowledge
}

// Mode is DeckElimination whenever a non-empty baseline is present.
func (d DeckInference) Mode() DeckMode {
	if d.Baseline.Len() > 0 {
		return DeckElimination
	}
	return DeckDirect
}

// Infer lists slot's remaining deck. Detail mode yields display strings,
// summary mode "name xN" lines.
func (d DeckInference) Infer(slot int, detail bool) []string {
	if slot == 0 || d.Model.Len() == 0 {
		return nil
	}
	if d.Mode() == DeckElimination {
		return d.eliminate(slot, detail)
	}
	return d.direct(slot, detail)
}

func (d DeckInference) direct(slot int, detail bool) []string {
	seen := newMultiset()
	unknown := 0
	for _, o := range d.Model.Objects(slot, Filter{Zone: tags.ZoneDeck}) {
		cardID := d.Revealed.Resolve(o)
		if cardID == "" {
			unknown++
			continue
		}
		c := d.Lookup.Lookup(cardID)
		if detail {
			seen.Add(displayLine(c.Name, c.Text), 1)
		} else {
			seen.Add(c.Name, 1)
		}
	}

	var out []string
	if detail {
		out = seen.Names()
	} else {
		out = seen.Summary()
	}
	if unknown > 0 {
		out = append(out, summaryLine(UnknownBucket, unknown))
	}
	return out
}

// remaining is the baseline minus every named card slot holds outside the
// deck zone. Objects with no resolvable identity are not counted.
func (d DeckInference) remaining(slot int) *multiset {
	left := d.Baseline.names()
	for _, o := range d.Model.Objects(slot, Filter{}) {
		if o.Zone() == tags.ZoneDeck {
			continue
		}
		cardID := d.Revealed.Resolve(o)
		if cardID == "" {
			continue
		}
		left.Remove(d.Lookup.Lookup(cardID).Name)
	}
	return left
}

func (d DeckInference) eliminate(slot int, detail bool) []string {
	left := d.remaining(slot)
	if !detail {
		return left.Summary()
	}
	out := make([]string, 0, left.Len())
	for _, c := range d.Baseline.cards {
		if left.Remove(c.Name) {
			out = append(out, c.Display())
		}
	}
	return out
}
