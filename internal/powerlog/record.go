// Package powerlog decodes the game client's Power.log text into a tree of
// typed records, one tree per game found in the text.
package powerlog

import (
	"fmt"
	"sort"

	"github.com/hsautopilot/tracker-go/internal/game/tags"
)

// Kind discriminates the record variants found in the log.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreateGame
	KindGameEntity
	KindPlayer
	KindFullEntity
	KindShowEntity
	KindHideEntity
	KindChangeEntity
	KindTagChange
	KindBlock
	KindMetaData
	KindChoices
	KindChosenEntities
	KindSendChoices
	KindShuffleDeck
)

var kindNames = map[Kind]string{
	KindUnknown:        "UNKNOWN",
	KindCreateGame:     "CREATE_GAME",
	KindGameEntity:     "GAME_ENTITY",
	KindPlayer:         "PLAYER",
	KindFullEntity:     "FULL_ENTITY",
	KindShowEntity:     "SHOW_ENTITY",
	KindHideEntity:     "HIDE_ENTITY",
	KindChangeEntity:   "CHANGE_ENTITY",
	KindTagChange:      "TAG_CHANGE",
	KindBlock:          "BLOCK",
	KindMetaData:       "META_DATA",
	KindChoices:        "CHOICES",
	KindChosenEntities: "CHOSEN_ENTITIES",
	KindSendChoices:    "SEND_CHOICES",
	KindShuffleDeck:    "SHUFFLE_DECK",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// acceptsTags reports whether indented tag lines following a record of this
// kind belong to it.
func (k Kind) acceptsTags() bool {
	switch k {
	case KindGameEntity, KindPlayer, KindFullEntity, KindShowEntity, KindChangeEntity:
		return true
	default:
		return false
	}
}

// Tag is one attribute assignment carried by a record.
type Tag struct {
	Tag   tags.GameTag
	Value int
}

// Record is a single decoded log event. Which fields are meaningful depends
// on Kind; Block records own their nested Children.
type Record struct {
	Kind   Kind
	Line   int
	Entity int
	CardID string

	// TagChange, HideEntity
	Tag   tags.GameTag
	Value int

	// GameEntity, Player, FullEntity, ShowEntity, ChangeEntity
	Tags []Tag

	// Player, ShuffleDeck
	PlayerID int

	// Block, MetaData
	BlockType string
	Children  []*Record

	// Choices, ChosenEntities, SendChoices
	ChoiceID   int
	ChoiceType string
	Player     int
	Source     int
	Choices    []int
}

// TagValue returns the value the record assigns to tag, if any.
func (r *Record) TagValue(tag tags.GameTag) (int, bool) {
	for _, t := range r.Tags {
		if t.Tag == tag {
			return t.Value, true
		}
	}
	return 0, false
}

// Game is the record sequence of one CREATE_GAME and everything after it.
type Game struct {
	Records      []*Record
	GameEntityID int
	StartLine    int

	playerEntities map[int]int    // player slot -> player entity id
	playerNames    map[string]int // player name -> player slot
}

func newGame(line int) *Game {
	return &Game{
		GameEntityID:   1,
		StartLine:      line,
		playerEntities: make(map[int]int),
		playerNames:    make(map[string]int),
	}
}

// PlayerEntity returns the entity id of the player in the given slot.
func (g *Game) PlayerEntity(slot int) (int, bool) {
	id, ok := g.playerEntities[slot]
	return id, ok
}

// PlayerName returns the name registered for a player slot, or "".
func (g *Game) PlayerName(slot int) string {
	for name, s := range g.playerNames {
		if s == slot {
			return name
		}
	}
	return ""
}

func (g *Game) registerName(name string, slot int) {
	if name == "" || slot <= 0 {
		return
	}
	g.playerNames[name] = slot
}

func (g *Game) sortedSlots() []int {
	slots := make([]int, 0, len(g.playerEntities))
	for slot := range g.playerEntities {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

func (g *Game) slotNamed(slot int) bool {
	for _, s := range g.playerNames {
		if s == slot {
			return true
		}
	}
	return false
}

// Tree holds every game decoded from one buffer, oldest first.
type Tree struct {
	Games []*Game
}

// LastGame returns the newest game, or nil when the tree is empty.
func (t *Tree) LastGame() *Game {
	if t == nil || len(t.Games) == 0 {
		return nil
	}
	return t.Games[len(t.Games)-1]
}
