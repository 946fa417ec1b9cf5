package game

import (
	"strings"

	"github.com/hsautopilot/tracker-go/internal/cards"
	"github.com/hsautopilot/tracker-go/internal/powerlog"
)

var testCards = cards.NewDatabase([]cards.Card{
	{ID: "CS2_029", DBFID: 315, Name: "Fireball", Text: "Deal $6 damage.", Cost: 4, Type: "SPELL"},
	{ID: "CS2_024", DBFID: 662, Name: "Frostbolt", Text: "Deal $3 damage and <b>Freeze</b> it.", Cost: 2, Type: "SPELL"},
	{ID: "EX1_306", DBFID: 592, Name: "Succubus", Text: "<b>Battlecry:</b> Discard a random card.", Cost: 2, Type: "MINION"},
	{ID: "CS2_182", DBFID: 1, Name: "Chillwind Yeti", Cost: 4, Type: "MINION"},
	{ID: "HERO_08", DBFID: 637, Name: "Jaina Proudmoore", Type: "HERO"},
	{ID: "HERO_01", DBFID: 7, Name: "Garrosh Hellscream", Type: "HERO"},
	{ID: "GAME_005", DBFID: 1746, Name: "The Coin", Type: "SPELL"},
})

// logText renders DebugPrintPower bodies as Power.log lines.
func logText(bodies ...string) string {
	return methodLines("DebugPrintPower", bodies...)
}

func methodLines(method string, bodies ...string) string {
	var b strings.Builder
	for _, body := range bodies {
		b.WriteString("D 12:00:00.0000000 GameState.")
		b.WriteString(method)
		b.WriteString("() - ")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

// gameStart opens a game between two players, each with a hero in play.
// Player 1 has 5 mana with 2 spent and holds the current-player flag.
func gameStart() string {
	return logText(
		"CREATE_GAME",
		"    GameEntity EntityID=1",
		"        tag=STEP value=MAIN_ACTION",
		"    Player EntityID=2 PlayerID=1 GameAccountId=[hi=1 lo=1]",
		"        tag=CONTROLLER value=1",
		"        tag=RESOURCES value=5",
		"        tag=RESOURCES_USED value=2",
		"        tag=CURRENT_PLAYER value=1",
		"        tag=MULLIGAN_STATE value=DONE",
		"    Player EntityID=3 PlayerID=2 GameAccountId=[hi=2 lo=2]",
		"        tag=CONTROLLER value=2",
		"        tag=MULLIGAN_STATE value=DONE",
		"FULL_ENTITY - Creating ID=4 CardID=HERO_08",
		"    tag=ZONE value=PLAY",
		"    tag=CONTROLLER value=1",
		"    tag=CARDTYPE value=HERO",
		"    tag=HEALTH value=30",
		"    tag=DAMAGE value=5",
		"    tag=ARMOR value=2",
		"    tag=CLASS value=MAGE",
		"FULL_ENTITY - Creating ID=5 CardID=HERO_01",
		"    tag=ZONE value=PLAY",
		"    tag=CONTROLLER value=2",
		"    tag=CARDTYPE value=HERO",
		"    tag=HEALTH value=30",
		"    tag=CLASS value=WARRIOR",
	) + methodLines("DebugPrintGame",
		"PlayerID=1, PlayerName=Alice#1234",
		"PlayerID=2, PlayerName=Bob#5678",
	)
}

// midGame adds hand, board and deck objects. Hand and board objects are
// created out of position order on purpose.
func midGame() string {
	return gameStart() + logText(
		"TAG_CHANGE Entity=GameEntity tag=TURN value=3",
		"FULL_ENTITY - Creating ID=10 CardID=CS2_029",
		"    tag=ZONE value=HAND",
		"    tag=CONTROLLER value=1",
		"    tag=ZONE_POSITION value=2",
		"    tag=COST value=4",
		"    tag=CARDTYPE value=SPELL",
		"FULL_ENTITY - Creating ID=11 CardID=EX1_306",
		"    tag=ZONE value=HAND",
		"    tag=CONTROLLER value=1",
		"    tag=ZONE_POSITION value=1",
		"    tag=COST value=2",
		"    tag=ATK value=4",
		"    tag=HEALTH value=3",
		"    tag=CARDTYPE value=MINION",
		"FULL_ENTITY - Creating ID=12 CardID=CS2_182",
		"    tag=ZONE value=PLAY",
		"    tag=CONTROLLER value=1",
		"    tag=ZONE_POSITION value=2",
		"    tag=CARDTYPE value=MINION",
		"    tag=ATK value=4",
		"    tag=HEALTH value=5",
		"    tag=EXHAUSTED value=1",
		"FULL_ENTITY - Creating ID=13 CardID=EX1_306",
		"    tag=ZONE value=PLAY",
		"    tag=CONTROLLER value=1",
		"    tag=ZONE_POSITION value=1",
		"    tag=CARDTYPE value=MINION",
		"    tag=ATK value=4",
		"    tag=HEALTH value=3",
		"    tag=TAUNT value=1",
		"    tag=DIVINE_SHIELD value=1",
		"FULL_ENTITY - Creating ID=14 CardID=CS2_182",
		"    tag=ZONE value=PLAY",
		"    tag=CONTROLLER value=2",
		"    tag=ZONE_POSITION value=1",
		"    tag=CARDTYPE value=MINION",
		"    tag=ATK value=4",
		"    tag=HEALTH value=5",
		"    tag=DAMAGE value=2",
		"FULL_ENTITY - Creating ID=20 CardID=",
		"    tag=ZONE value=DECK",
		"    tag=CONTROLLER value=1",
		"FULL_ENTITY - Creating ID=21 CardID=",
		"    tag=ZONE value=DECK",
		"    tag=CONTROLLER value=1",
	)
}

func mustParse(text string) *powerlog.Game {
	tree, err := powerlog.ParseString(text)
	if err != nil {
		panic(err)
	}
	return tree.LastGame()
}
