// Package game rebuilds the live state of one game from the decoded Power.log
// tree: the entity/zone model, the revealed-card cache, pending choices and
// the remaining deck.
package game

import (
	"sort"

	"github.com/hsautopilot/tracker-go/internal/game/tags"
	"github.com/hsautopilot/tracker-go/internal/powerlog"
)

// Object is any tracked game entity: a card instance, a hero, a player or the
// game itself.
type Object struct {
	ID     int
	CardID string
	Tags   map[tags.GameTag]int
}

func newObject(id int) *Object {
	return &Object{ID: id, Tags: make(map[tags.GameTag]int)}
}

// Tag returns the value of t, or 0 when unset.
func (o *Object) Tag(t tags.GameTag) int {
	if o == nil {
		return 0
	}
	return o.Tags[t]
}

// TagOr returns the value of t, or def when unset.
func (o *Object) TagOr(t tags.GameTag, def int) int {
	if o == nil {
		return def
	}
	if v, ok := o.Tags[t]; ok {
		return v
	}
	return def
}

func (o *Object) Zone() tags.Zone         { return tags.Zone(o.Tag(tags.TagZone)) }
func (o *Object) Controller() int         { return o.Tag(tags.TagController) }
func (o *Object) CardType() tags.CardType { return tags.CardType(o.Tag(tags.TagCardType)) }

// Flag reports whether a boolean tag is set.
func (o *Object) Flag(t tags.GameTag) bool { return o.Tag(t) == 1 }

func (o *Object) applyTags(list []powerlog.Tag) {
	for _, t := range list {
		o.Tags[t.Tag] = t.Value
	}
}

// Filter selects a player's objects. Zero fields match anything.
type Filter struct {
	Zone     tags.Zone
	CardType tags.CardType
}

func (f Filter) match(o *Object) bool {
	if f.Zone != tags.ZoneInvalid && o.Zone() != f.Zone {
		return false
	}
	if f.CardType != tags.CardTypeInvalid && o.CardType() != f.CardType {
		return false
	}
	return true
}

// Model is the table of every object in one game, rebuilt from the tree.
// A nil *Model is a valid "no game observed yet" model.
type Model struct {
	objects      map[int]*Object
	order        []int
	gameEntityID int
	players      map[int]int // slot -> player entity id
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		objects:      make(map[int]*Object),
		gameEntityID: 1,
		players:      make(map[int]int),
	}
}

// BuildModel replays every record of g in order. It also returns the number
// of blocks cut off by maxDepth.
func BuildModel(g *powerlog.Game, maxDepth int) (*Model, int) {
	m := NewModel()
	if g == nil {
		return m, 0
	}
	m.gameEntityID = g.GameEntityID
	truncated := Walk(g.Records, maxDepth, m.Apply)
	return m, truncated
}

// Apply applies the effect of one record. Kinds without an effect on
// object attributes are ignored.
func (m *Model) Apply(rec *powerlog.Record) {
	switch rec.Kind {
	case powerlog.KindGameEntity:
		m.gameEntityID = rec.Entity
		o := m.ensure(rec.Entity)
		o.applyTags(rec.Tags)
		if _, ok := o.Tags[tags.TagCardType]; !ok {
			o.Tags[tags.TagCardType] = int(tags.CardTypeGame)
		}
	case powerlog.KindPlayer:
		o := m.ensure(rec.Entity)
		o.applyTags(rec.Tags)
		m.players[rec.PlayerID] = rec.Entity
		if _, ok := o.Tags[tags.TagPlayerID]; !ok {
			o.Tags[tags.TagPlayerID] = rec.PlayerID
		}
	case powerlog.KindFullEntity, powerlog.KindShowEntity, powerlog.KindChangeEntity:
		o := m.ensure(rec.Entity)
		o.CardID = rec.CardID
		o.applyTags(rec.Tags)
	case powerlog.KindHideEntity:
		if o, ok := m.objects[rec.Entity]; ok {
			o.CardID = ""
			o.Tags[rec.Tag] = rec.Value
		}
	case powerlog.KindTagChange:
		if o, ok := m.objects[rec.Entity]; ok {
			o.Tags[rec.Tag] = rec.Value
		}
	}
}

func (m *Model) ensure(id int) *Object {
	if o, ok := m.objects[id]; ok {
		return o
	}
	o := newObject(id)
	m.objects[id] = o
	m.order = append(m.order, id)
	return o
}

// Len returns the number of known objects.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.objects)
}

// Object finds an object by id.
func (m *Model) Object(id int) (*Object, bool) {
	if m == nil {
		return nil, false
	}
	o, ok := m.objects[id]
	return o, ok
}

// GameEntity returns the root game object, or nil.
func (m *Model) GameEntity() *Object {
	if m == nil {
		return nil
	}
	return m.objects[m.gameEntityID]
}

// PlayerEntity returns the player object for slot 1 or 2, or nil.
func (m *Model) PlayerEntity(slot int) *Object {
	if m == nil {
		return nil
	}
	if id, ok := m.players[slot]; ok {
		return m.objects[id]
	}
	// player entities follow the game entity when the Player record was missed
	return m.objects[m.gameEntityID+slot]
}

// Objects lists the objects controlled by slot that match f, ordered by
// zone position and then by creation order.
func (m *Model) Objects(slot int, f Filter) []*Object {
	if m == nil {
		return nil
	}
	var out []*Object
	for _, id := range m.order {
		o := m.objects[id]
		if o.Controller() != slot || !f.match(o) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tag(tags.TagZonePosition) < out[j].Tag(tags.TagZonePosition)
	})
	return out
}

// Hero returns the hero slot controls in play, or nil.
func (m *Model) Hero(slot int) *Object {
	if m == nil {
		return nil
	}
	for _, id := range m.order {
		o := m.objects[id]
		if o.Controller() == slot && o.Zone() == tags.ZonePlay && o.CardType() == tags.CardTypeHero {
			return o
		}
	}
	return nil
}

// Turn reads the root object's turn counter; 1 before it is set.
func (m *Model) Turn() int {
	return m.GameEntity().TagOr(tags.TagTurn, 1)
}

// Mana returns the mana slot can still spend this turn and its mana pool.
func (m *Model) Mana(slot int) (available, total int) {
	p := m.PlayerEntity(slot)
	if p == nil {
		return 0, 0
	}
	total = p.Tag(tags.TagResources)
	return total - p.Tag(tags.TagResourcesUsed), total
}

// Phase values.
const (
	PhaseUnknown  = "unknown"
	PhaseMulligan = "mulligan"
	PhasePlaying  = "playing"
)

// Phase is PhaseMulligan while slot's mulligan is awaiting input or being
// dealt, PhasePlaying otherwise, and PhaseUnknown with no game.
func (m *Model) Phase(slot int) string {
	if m.Len() == 0 {
		return PhaseUnknown
	}
	switch tags.Mulligan(m.PlayerEntity(slot).Tag(tags.TagMulliganState)) {
	case tags.MulliganInput, tags.MulliganDealing:
		return PhaseMulligan
	default:
		return PhasePlaying
	}
}

// IsPlayersTurn is always true during the opening mulligan step, since both
// players act at once. Otherwise it follows slot's current-player flag.
func (m *Model) IsPlayersTurn(slot int) bool {
	if m.Len() == 0 || slot == 0 {
		return false
	}
	if tags.Step(m.GameEntity().Tag(tags.TagStep)) == tags.StepBeginMulligan {
		return true
	}
	return m.PlayerEntity(slot).Flag(tags.TagCurrentPlayer)
}
