package game

import (
	"time"

	"github.com/hsautopilot/tracker-go/internal/cards"
	"github.com/hsautopilot/tracker-go/internal/game/tags"
)

// DefaultHeroHealth is reported before any game has been observed.
const DefaultHeroHealth = 30

// HandCard is one card in the local player's hand.
type HandCard struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Text         string `json:"text"`
	Atk          int    `json:"atk"`
	Health       int    `json:"health"`
	Cost         int    `json:"cost"`
	DivineShield bool   `json:"divine_shield"`
	Taunt        bool   `json:"taunt"`
	Exhausted    bool   `json:"exhausted"`
}

// Minion is a minion on the board.
type Minion struct {
	Name         string `json:"name"`
	Text         string `json:"text"`
	Atk          int    `json:"atk"`
	Health       int    `json:"health"`
	DivineShield bool   `json:"divine_shield"`
	Taunt        bool   `json:"taunt"`
}

// FriendlyMinion is a minion on the local player's side.
type FriendlyMinion struct {
	Minion
	CanAttack bool `json:"can_attack"`
}

// HeroState is one side's hero. Health is not clamped at zero.
type HeroState struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Health int    `json:"health"`
	Armor  int    `json:"armor"`
	Atk    int    `json:"atk"`
	Class  string `json:"class"`
}

// Snapshot is everything a caller needs to act on the current game.
type Snapshot struct {
	GameID      string           `json:"game_id"`
	Mana        int              `json:"mana"`
	MaxMana     int              `json:"max_mana"`
	Phase       string           `json:"game_phase"`
	Turn        int              `json:"turn"`
	IsMyTurn    bool             `json:"is_my_turn"`
	Hand        []HandCard       `json:"hand_cards"`
	MyBoard     []FriendlyMinion `json:"my_minions"`
	OppBoard    []Minion         `json:"enemy_minions"`
	MyHero      HeroState        `json:"my_hero"`
	OppHero     HeroState        `json:"enemy_hero"`
	Choices     []ChoiceOption   `json:"choices"`
	InitialDeck []string         `json:"initial_deck"`
	Deck        []string         `json:"my_deck"`
	Timestamp   time.Time        `json:"timestamp"`
	Fingerprint string           `json:"fingerprint"`
}

// view answers queries against one consistent set of derived state.
type view struct {
	model    *Model
	revealed *RevealedCache
	lookup   CardLookup
	friendly int
}

// slot is the local player, defaulting to 1 until detected.
func (v view) slot() int {
	if v.friendly == 0 {
		return 1
	}
	return v.friendly
}

func (v view) card(o *Object) cards.Card {
	return v.lookup.Lookup(v.revealed.Resolve(o))
}

func health(o *Object) int {
	return o.Tag(tags.TagHealth) - o.Tag(tags.TagDamage)
}

func (v view) hand() []HandCard {
	if v.friendly == 0 {
		return nil
	}
	objs := v.model.Objects(v.friendly, Filter{Zone: tags.ZoneHand})
	out := make([]HandCard, 0, len(objs))
	for _, o := range objs {
		cardID := v.revealed.Resolve(o)
		c := v.lookup.Lookup(cardID)
		out = append(out, HandCard{
			ID:           cardID,
			Name:         c.Name,
			Text:         c.Text,
			Atk:          o.Tag(tags.TagAtk),
			Health:       health(o),
			Cost:         o.Tag(tags.TagCost),
			DivineShield: o.Flag(tags.TagDivineShield),
			Taunt:        o.Flag(tags.TagTaunt),
			Exhausted:    o.Flag(tags.TagExhausted),
		})
	}
	return out
}

func (v view) minions(slot int) []Minion {
	objs := v.model.Objects(slot, Filter{Zone: tags.ZonePlay, CardType: tags.CardTypeMinion})
	out := make([]Minion, 0, len(objs))
	for _, o := range objs {
		c := v.card(o)
		out = append(out, Minion{
			Name:         c.Name,
			Text:         c.Text,
			Atk:          o.Tag(tags.TagAtk),
			Health:       health(o),
			DivineShield: o.Flag(tags.TagDivineShield),
			Taunt:        o.Flag(tags.TagTaunt),
		})
	}
	return out
}

func (v view) myBoard() []FriendlyMinion {
	if v.friendly == 0 {
		return nil
	}
	objs := v.model.Objects(v.friendly, Filter{Zone: tags.ZonePlay, CardType: tags.CardTypeMinion})
	base := v.minions(v.friendly)
	out := make([]FriendlyMinion, len(base))
	for i, m := range base {
		o := objs[i]
		out[i] = FriendlyMinion{
			Minion:    m,
			CanAttack: !o.Flag(tags.TagExhausted) && !o.Flag(tags.TagFrozen),
		}
	}
	return out
}

func (v view) oppBoard() []Minion {
	if v.friendly == 0 {
		return nil
	}
	return v.minions(3 - v.friendly)
}

func (v view) hero(slot int) HeroState {
	if v.model.Len() == 0 {
		return HeroState{Name: cards.UnknownName, Health: DefaultHeroHealth, Class: tags.ClassInvalid.String()}
	}
	o := v.model.Hero(slot)
	if o == nil {
		return HeroState{Name: cards.UnknownName, Class: tags.ClassInvalid.String()}
	}
	c := v.card(o)
	return HeroState{
		Name:   c.Name,
		Text:   c.Text,
		Health: o.TagOr(tags.TagHealth, DefaultHeroHealth) - o.Tag(tags.TagDamage),
		Armor:  o.Tag(tags.TagArmor),
		Atk:    o.Tag(tags.TagAtk),
		Class:  tags.CardClass(o.Tag(tags.TagClass)).String(),
	}
}

// relevant reports whether a snapshot carries anything worth acting on.
func (s *Snapshot) relevant() bool {
	return len(s.Hand) > 0 || s.Phase == PhaseMulligan || len(s.MyBoard) > 0 || len(s.Choices) > 0
}
