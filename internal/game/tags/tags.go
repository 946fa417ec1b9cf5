package tags

import (
	"fmt"
	"strconv"
	"strings"
)

// GameTag identifies an attribute of a game object.
// Values match the numeric tag ids the game client writes to its log.
type GameTag int

const (
	TagPlayState      GameTag = 17
	TagStep           GameTag = 19
	TagTurn           GameTag = 20
	TagCurrentPlayer  GameTag = 23
	TagFirstPlayer    GameTag = 24
	TagResourcesUsed  GameTag = 25
	TagResources      GameTag = 26
	TagHeroEntity     GameTag = 27
	TagPlayerID       GameTag = 30
	TagExhausted      GameTag = 43
	TagDamage         GameTag = 44
	TagHealth         GameTag = 45
	TagAtk            GameTag = 47
	TagCost           GameTag = 48
	TagZone           GameTag = 49
	TagController     GameTag = 50
	TagEntityID       GameTag = 53
	TagSilenced       GameTag = 188
	TagWindfury       GameTag = 189
	TagTaunt          GameTag = 190
	TagStealth        GameTag = 191
	TagDivineShield   GameTag = 194
	TagCharge         GameTag = 197
	TagNextStep       GameTag = 198
	TagClass          GameTag = 199
	TagCardType       GameTag = 202
	TagState          GameTag = 204
	TagImmune         GameTag = 240
	TagFrozen         GameTag = 260
	TagZonePosition   GameTag = 263
	TagNumTurnsInPlay GameTag = 271
	TagArmor          GameTag = 292
	TagTempResources  GameTag = 295
	TagMulliganState  GameTag = 305
	TagPoisonous      GameTag = 363
	TagOverloadLocked GameTag = 393
	TagLifesteal      GameTag = 685
	TagRush           GameTag = 791
	TagReborn         GameTag = 1085
)

var gameTagNames = map[GameTag]string{
	TagPlayState:      "PLAYSTATE",
	TagStep:           "STEP",
	TagTurn:           "TURN",
	TagCurrentPlayer:  "CURRENT_PLAYER",
	TagFirstPlayer:    "FIRST_PLAYER",
	TagResourcesUsed:  "RESOURCES_USED",
	TagResources:      "RESOURCES",
	TagHeroEntity:     "HERO_ENTITY",
	TagPlayerID:       "PLAYER_ID",
	TagExhausted:      "EXHAUSTED",
	TagDamage:         "DAMAGE",
	TagHealth:         "HEALTH",
	TagAtk:            "ATK",
	TagCost:           "COST",
	TagZone:           "ZONE",
	TagController:     "CONTROLLER",
	TagEntityID:       "ENTITY_ID",
	TagSilenced:       "SILENCED",
	TagWindfury:       "WINDFURY",
	TagTaunt:          "TAUNT",
	TagStealth:        "STEALTH",
	TagDivineShield:   "DIVINE_SHIELD",
	TagCharge:         "CHARGE",
	TagNextStep:       "NEXT_STEP",
	TagClass:          "CLASS",
	TagCardType:       "CARDTYPE",
	TagState:          "STATE",
	TagImmune:         "IMMUNE",
	TagFrozen:         "FROZEN",
	TagZonePosition:   "ZONE_POSITION",
	TagNumTurnsInPlay: "NUM_TURNS_IN_PLAY",
	TagArmor:          "ARMOR",
	TagTempResources:  "TEMP_RESOURCES",
	TagMulliganState:  "MULLIGAN_STATE",
	TagPoisonous:      "POISONOUS",
	TagOverloadLocked: "OVERLOAD_LOCKED",
	TagLifesteal:      "LIFESTEAL",
	TagRush:           "RUSH",
	TagReborn:         "REBORN",
}

var gameTagByName = invert(gameTagNames)

func (t GameTag) String() string {
	if name, ok := gameTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TAG_%d", int(t))
}

// ParseGameTag accepts either a known tag name or a numeric tag id.
// Unknown names report false; numeric ids are always accepted.
func ParseGameTag(s string) (GameTag, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return GameTag(n), true
	}
	t, ok := gameTagByName[s]
	return t, ok
}

// Zone is the location category of a game object.
type Zone int

const (
	ZoneInvalid Zone = iota
	ZonePlay
	ZoneDeck
	ZoneHand
	ZoneGraveyard
	ZoneRemovedFromGame
	ZoneSetAside
	ZoneSecret
)

var zoneNames = map[Zone]string{
	ZoneInvalid:         "INVALID",
	ZonePlay:            "PLAY",
	ZoneDeck:            "DECK",
	ZoneHand:            "HAND",
	ZoneGraveyard:       "GRAVEYARD",
	ZoneRemovedFromGame: "REMOVEDFROMGAME",
	ZoneSetAside:        "SETASIDE",
	ZoneSecret:          "SECRET",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZONE_%d", int(z))
}

// CardType is the object kind of a game object.
type CardType int

const (
	CardTypeInvalid     CardType = 0
	CardTypeGame        CardType = 1
	CardTypePlayer      CardType = 2
	CardTypeHero        CardType = 3
	CardTypeMinion      CardType = 4
	CardTypeSpell       CardType = 5
	CardTypeEnchantment CardType = 6
	CardTypeWeapon      CardType = 7
	CardTypeItem        CardType = 8
	CardTypeToken       CardType = 9
	CardTypeHeroPower   CardType = 10
	CardTypeLocation    CardType = 39
)

var cardTypeNames = map[CardType]string{
	CardTypeInvalid:     "INVALID",
	CardTypeGame:        "GAME",
	CardTypePlayer:      "PLAYER",
	CardTypeHero:        "HERO",
	CardTypeMinion:      "MINION",
	CardTypeSpell:       "SPELL",
	CardTypeEnchantment: "ENCHANTMENT",
	CardTypeWeapon:      "WEAPON",
	CardTypeItem:        "ITEM",
	CardTypeToken:       "TOKEN",
	CardTypeHeroPower:   "HERO_POWER",
	CardTypeLocation:    "LOCATION",
}

func (c CardType) String() string {
	if name, ok := cardTypeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CARDTYPE_%d", int(c))
}

// Mulligan is the per-player mulligan state.
type Mulligan int

const (
	MulliganInvalid Mulligan = iota
	MulliganInput
	MulliganDealing
	MulliganWaiting
	MulliganDone
)

var mulliganNames = map[Mulligan]string{
	MulliganInvalid: "INVALID",
	MulliganInput:   "INPUT",
	MulliganDealing: "DEALING",
	MulliganWaiting: "WAITING",
	MulliganDone:    "DONE",
}

func (m Mulligan) String() string {
	if name, ok := mulliganNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MULLIGAN_%d", int(m))
}

// Step is the game-wide step carried by the root game object.
type Step int

const (
	StepInvalid Step = iota
	StepBeginFirst
	StepBeginShuffle
	StepBeginDraw
	StepBeginMulligan
	StepMainBegin
	StepMainReady
	StepMainResource
	StepMainDraw
	StepMainStart
	StepMainAction
	StepMainCombat
	StepMainEnd
	StepMainNext
	StepFinalWrapup
	StepFinalGameover
	StepMainCleanup
	StepMainStartTriggers
)

var stepNames = map[Step]string{
	StepInvalid:           "INVALID",
	StepBeginFirst:        "BEGIN_FIRST",
	StepBeginShuffle:      "BEGIN_SHUFFLE",
	StepBeginDraw:         "BEGIN_DRAW",
	StepBeginMulligan:     "BEGIN_MULLIGAN",
	StepMainBegin:         "MAIN_BEGIN",
	StepMainReady:         "MAIN_READY",
	StepMainResource:      "MAIN_RESOURCE",
	StepMainDraw:          "MAIN_DRAW",
	StepMainStart:         "MAIN_START",
	StepMainAction:        "MAIN_ACTION",
	StepMainCombat:        "MAIN_COMBAT",
	StepMainEnd:           "MAIN_END",
	StepMainNext:          "MAIN_NEXT",
	StepFinalWrapup:       "FINAL_WRAPUP",
	StepFinalGameover:     "FINAL_GAMEOVER",
	StepMainCleanup:       "MAIN_CLEANUP",
	StepMainStartTriggers: "MAIN_START_TRIGGERS",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// PlayState is a player's win/loss state.
type PlayState int

const (
	PlayStateInvalid PlayState = iota
	PlayStatePlaying
	PlayStateWinning
	PlayStateLosing
	PlayStateWon
	PlayStateLost
	PlayStateTied
	PlayStateDisconnected
	PlayStateConceded
	PlayStateQuit
)

var playStateNames = map[PlayState]string{
	PlayStateInvalid:      "INVALID",
	PlayStatePlaying:      "PLAYING",
	PlayStateWinning:      "WINNING",
	PlayStateLosing:       "LOSING",
	PlayStateWon:          "WON",
	PlayStateLost:         "LOST",
	PlayStateTied:         "TIED",
	PlayStateDisconnected: "DISCONNECTED",
	PlayStateConceded:     "CONCEDED",
	PlayStateQuit:         "QUIT",
}

func (p PlayState) String() string {
	if name, ok := playStateNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PLAYSTATE_%d", int(p))
}

// State is the root game object's lifecycle state.
type State int

const (
	StateInvalid State = iota
	StateLoading
	StateRunning
	StateComplete
)

var stateNames = map[State]string{
	StateInvalid:  "INVALID",
	StateLoading:  "LOADING",
	StateRunning:  "RUNNING",
	StateComplete: "COMPLETE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE_%d", int(s))
}

// CardClass is the hero class of a card.
type CardClass int

const (
	ClassInvalid     CardClass = 0
	ClassDeathKnight CardClass = 1
	ClassDruid       CardClass = 2
	ClassHunter      CardClass = 3
	ClassMage        CardClass = 4
	ClassPaladin     CardClass = 5
	ClassPriest      CardClass = 6
	ClassRogue       CardClass = 7
	ClassShaman      CardClass = 8
	ClassWarlock     CardClass = 9
	ClassWarrior     CardClass = 10
	ClassDream       CardClass = 11
	ClassNeutral     CardClass = 12
	ClassWhizbang    CardClass = 13
	ClassDemonHunter CardClass = 14
)

var cardClassNames = map[CardClass]string{
	ClassDeathKnight: "DEATHKNIGHT",
	ClassDruid:       "DRUID",
	ClassHunter:      "HUNTER",
	ClassMage:        "MAGE",
	ClassPaladin:     "PALADIN",
	ClassPriest:      "PRIEST",
	ClassRogue:       "ROGUE",
	ClassShaman:      "SHAMAN",
	ClassWarlock:     "WARLOCK",
	ClassWarrior:     "WARRIOR",
	ClassDream:       "DREAM",
	ClassNeutral:     "NEUTRAL",
	ClassWhizbang:    "WHIZBANG",
	ClassDemonHunter: "DEMONHUNTER",
}

// String returns "UNKNOWN" for classes outside the known set.
func (c CardClass) String() string {
	if name, ok := cardClassNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// enum value tables keyed by the tag that carries them
var valueTables = map[GameTag]map[string]int{
	TagZone:          valuesOf(zoneNames),
	TagCardType:      valuesOf(cardTypeNames),
	TagMulliganState: valuesOf(mulliganNames),
	TagStep:          valuesOf(stepNames),
	TagNextStep:      valuesOf(stepNames),
	TagPlayState:     valuesOf(playStateNames),
	TagState:         valuesOf(stateNames),
	TagClass:         valuesOf(cardClassNames),
}

// ParseValue converts a logged tag value to its integer form.
// Integers pass through; enum names are looked up in the table for tag.
func ParseValue(tag GameTag, s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	table, ok := valueTables[tag]
	if !ok {
		return 0, false
	}
	v, ok := table[s]
	return v, ok
}

func invert[K ~int](names map[K]string) map[string]K {
	out := make(map[string]K, len(names))
	for k, name := range names {
		out[name] = k
	}
	return out
}

func valuesOf[K ~int](names map[K]string) map[string]int {
	out := make(map[string]int, len(names))
	for k, name := range names {
		out[name] = int(k)
	}
	return out
}
