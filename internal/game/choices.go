package game

import (
	"github.com/hsautopilot/tracker-go/internal/cards"
	"github.com/hsautopilot/tracker-go/internal/game/tags"
	"github.com/hsautopilot/tracker-go/internal/powerlog"
)

// ChoiceState is the resolution state of an issued choice.
type ChoiceState int

const (
	ChoiceIssued ChoiceState = iota
	ChoiceResolved
)

func (s ChoiceState) String() string {
	if s == ChoiceResolved {
		return "RESOLVED"
	}
	return "ISSUED"
}

// Choice is an interactive discover or choose-one prompt.
type Choice struct {
	ID         int
	Type       string
	Player     int
	Source     int
	Candidates []int
	Turn       int
	State      ChoiceState
}

// ChoiceTracker follows choice prompts and turn changes in log order.
// Only the most recent prompt is kept: a new one supersedes the last even
// when the last was never answered.
type ChoiceTracker struct {
	gameEntityID int
	currentTurn  int
	latest       *Choice
}

// NewChoiceTracker tracks turn changes on the given root game object.
func NewChoiceTracker(gameEntityID int) *ChoiceTracker {
	return &ChoiceTracker{gameEntityID: gameEntityID}
}

// TrackChoices walks g and returns the resulting tracker.
func TrackChoices(g *powerlog.Game, maxDepth int) *ChoiceTracker {
	if g == nil {
		return NewChoiceTracker(1)
	}
	t := NewChoiceTracker(g.GameEntityID)
	Walk(g.Records, maxDepth, t.Observe)
	return t
}

// Observe advances the tracker by one record.
func (t *ChoiceTracker) Observe(rec *powerlog.Record) {
	switch rec.Kind {
	case powerlog.KindTagChange:
		if rec.Tag == tags.TagTurn && rec.Entity == t.gameEntityID {
			t.currentTurn = rec.Value
		}
	case powerlog.KindChoices:
		t.latest = &Choice{
			ID:         rec.ChoiceID,
			Type:       rec.ChoiceType,
			Player:     rec.Player,
			Source:     rec.Source,
			Candidates: append([]int(nil), rec.Choices...),
			Turn:       t.currentTurn,
			State:      ChoiceIssued,
		}
	case powerlog.KindSendChoices, powerlog.KindChosenEntities:
		if t.latest != nil {
			t.latest.State = ChoiceResolved
		}
	}
}

// CurrentTurn is the last turn value set on the root game object.
func (t *ChoiceTracker) CurrentTurn() int { return t.currentTurn }

// Latest returns the most recent prompt, resolved or not.
func (t *ChoiceTracker) Latest() *Choice { return t.latest }

// Pending returns the latest prompt when it is unanswered and was issued on
// the current turn. A prompt left open on an earlier turn is stale.
func (t *ChoiceTracker) Pending() (*Choice, bool) {
	if t == nil || t.latest == nil {
		return nil, false
	}
	if t.latest.State != ChoiceIssued || t.latest.Turn != t.currentTurn {
		return nil, false
	}
	return t.latest, true
}

// ChoiceOption is a labelled candidate of a pending choice.
type ChoiceOption struct {
	ID     int    `json:"id"`
	CardID string `json:"card_id"`
	Name   string `json:"name"`
}

// LabelChoice resolves each candidate to a card name. Candidates missing
// from the model are dropped; known objects with no card id are labelled
// cards.UnknownName. The second result counts dropped candidates.
func LabelChoice(c *Choice, m *Model, revealed *RevealedCache, lookup CardLookup) ([]ChoiceOption, int) {
	if c == nil {
		return nil, 0
	}
	out := make([]ChoiceOption, 0, len(c.Candidates))
	dropped := 0
	for _, id := range c.Candidates {
		o, ok := m.Object(id)
		if !ok {
			dropped++
			continue
		}
		opt := ChoiceOption{ID: id, CardID: revealed.Resolve(o), Name: cards.UnknownName}
		if opt.CardID != "" {
			opt.Name = lookup.Lookup(opt.CardID).Name
		}
		out = append(out, opt)
	}
	return out, dropped
}
