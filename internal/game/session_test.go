package game

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hsautopilot/tracker-go/internal/cards"
	"github.com/hsautopilot/tracker-go/internal/deckstring"
	"github.com/hsautopilot/tracker-go/internal/powerlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return NewSession(testCards, zaptest.NewLogger(t), opts)
}

func TestSessionBeforeAnyGame(t *testing.T) {
	s := newTestSession(t, Options{})

	assert.Empty(t, s.GameID())
	assert.Nil(t, s.Model())
	assert.Equal(t, 1, s.Turn())
	assert.Equal(t, PhaseUnknown, s.Phase())
	assert.False(t, s.IsMyTurn())
	assert.Equal(t, DefaultHeroHealth, s.Hero(1).Health)
	assert.Equal(t, "Unknown", s.Hero(2).Name)
	assert.Nil(t, s.Deck(false))

	_, ok := s.Snapshot()
	assert.False(t, ok)
}

func TestSessionFeedNoGame(t *testing.T) {
	s := newTestSession(t, Options{})

	err := s.Feed(methodLines("DebugPrintPower", "TAG_CHANGE Entity=GameEntity tag=TURN value=2"))
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.ErrorIs(t, err, powerlog.ErrNoGame)
	assert.Nil(t, s.Model())
}

func TestSessionSnapshot(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(midGame()))

	assert.NotEmpty(t, s.GameID())
	assert.Equal(t, 1, s.Friendly())

	snap, ok := s.Snapshot()
	require.True(t, ok)

	assert.Equal(t, s.GameID(), snap.GameID)
	assert.Equal(t, 3, snap.Mana)
	assert.Equal(t, 5, snap.MaxMana)
	assert.Equal(t, PhasePlaying, snap.Phase)
	assert.Equal(t, 3, snap.Turn)
	assert.True(t, snap.IsMyTurn)
	assert.Equal(t, fixedNow, snap.Timestamp)
	assert.NotEmpty(t, snap.Fingerprint)

	require.Len(t, snap.Hand, 2)
	assert.Equal(t, "Succubus", snap.Hand[0].Name)
	assert.Equal(t, "Battlecry: Discard a random card.", snap.Hand[0].Text)
	assert.Equal(t, 3, snap.Hand[0].Health)
	assert.Equal(t, "Fireball", snap.Hand[1].Name)
	assert.Equal(t, 4, snap.Hand[1].Cost)

	require.Len(t, snap.MyBoard, 2)
	assert.Equal(t, "Succubus", snap.MyBoard[0].Name)
	assert.True(t, snap.MyBoard[0].Taunt)
	assert.True(t, snap.MyBoard[0].DivineShield)
	assert.True(t, snap.MyBoard[0].CanAttack)
	assert.Equal(t, "Chillwind Yeti", snap.MyBoard[1].Name)
	assert.False(t, snap.MyBoard[1].CanAttack, "exhausted")

	require.Len(t, snap.OppBoard, 1)
	assert.Equal(t, 3, snap.OppBoard[0].Health)

	assert.Equal(t, HeroState{Name: "Jaina Proudmoore", Health: 25, Armor: 2, Class: "MAGE"}, snap.MyHero)
	assert.Equal(t, "Garrosh Hellscream", snap.OppHero.Name)
	assert.Equal(t, 30, snap.OppHero.Health)
	assert.Equal(t, "WARRIOR", snap.OppHero.Class)

	assert.Empty(t, snap.Choices)
	assert.Equal(t, []string{"Unknown x2"}, snap.Deck, "summary mode outside the mulligan")
}

func TestSessionSnapshotNothingRelevant(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(gameStart()))

	_, ok := s.Snapshot()
	assert.False(t, ok, "no hand, board or choice and not in mulligan")
}

func TestSessionMulliganSnapshotUsesDetailDeck(t *testing.T) {
	s := newTestSession(t, Options{})
	text := gameStart() + logText(
		"TAG_CHANGE Entity=GameEntity tag=STEP value=BEGIN_MULLIGAN",
		"TAG_CHANGE Entity=Alice#1234 tag=MULLIGAN_STATE value=INPUT",
		"FULL_ENTITY - Creating ID=20 CardID=CS2_029",
		"    tag=ZONE value=DECK",
		"    tag=CONTROLLER value=1",
		"FULL_ENTITY - Creating ID=21 CardID=CS2_029",
		"    tag=ZONE value=HAND",
		"    tag=CONTROLLER value=1",
	)
	require.NoError(t, s.Feed(text))

	snap, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, PhaseMulligan, snap.Phase)
	assert.True(t, snap.IsMyTurn)
	assert.Equal(t, []string{"Fireball: Deal 6 damage."}, snap.Deck)
}

func TestSessionRefreshIdempotent(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(midGame()+discoverOn("4")))

	first, ok := s.Snapshot()
	require.True(t, ok)
	firstModel := s.Model()

	require.NoError(t, s.Feed(""))
	require.NoError(t, s.Feed(""))
	second, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Same(t, firstModel, s.Model(), "an empty chunk does not refresh")

	require.NoError(t, s.Refresh())
	require.NoError(t, s.Refresh())
	third, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, first, third)
}

func TestSessionFailedRefreshKeepsState(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(midGame()))
	before, ok := s.Snapshot()
	require.True(t, ok)

	// a line longer than the scanner accepts makes the whole re-parse fail
	err := s.Feed(strings.Repeat("x", 2<<20) + "\n")
	require.Error(t, err)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))

	after, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestSessionMonotonicReveal(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(midGame()))
	require.NoError(t, s.Feed(logText(
		"SHOW_ENTITY - Updating Entity=20 CardID=CS2_024",
		"    tag=ZONE value=HAND",
	)))
	require.NoError(t, s.Feed(logText(
		"HIDE_ENTITY - Entity=20 tag=ZONE value=DECK",
	)))

	o, ok := s.Model().Object(20)
	require.True(t, ok)
	assert.Empty(t, o.CardID)

	cardID, ok := s.RevealedCardID(20)
	require.True(t, ok)
	assert.Equal(t, "CS2_024", cardID)
	assert.Equal(t, []string{"Frostbolt x1", "Unknown x1"}, s.Deck(false))

	require.NoError(t, s.Feed(logText("TAG_CHANGE Entity=GameEntity tag=TURN value=9")))
	cardID, ok = s.RevealedCardID(20)
	require.True(t, ok)
	assert.Equal(t, "CS2_024", cardID)
}

func TestSessionPendingChoiceAndTurnChange(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(midGame()+discoverOn("4")))

	pending, ok := s.PendingChoice()
	require.True(t, ok)
	assert.Equal(t, 7, pending.ID)
	assert.Equal(t, []ChoiceOption{
		{ID: 101, CardID: "CS2_029", Name: "Fireball"},
		{ID: 102, CardID: "CS2_024", Name: "Frostbolt"},
	}, s.Choices())

	require.NoError(t, s.Feed(logText("TAG_CHANGE Entity=GameEntity tag=TURN value=5")))
	_, ok = s.PendingChoice()
	assert.False(t, ok)
	assert.Empty(t, s.Choices())
}

func TestSessionPoll(t *testing.T) {
	s := newTestSession(t, Options{})

	_, ok := s.Poll()
	assert.False(t, ok)

	require.NoError(t, s.Feed(midGame()))
	first, ok := s.Poll()
	require.True(t, ok)

	_, ok = s.Poll()
	assert.False(t, ok, "nothing changed")

	require.NoError(t, s.Feed(logText("TAG_CHANGE Entity=Alice#1234 tag=RESOURCES_USED value=5")))
	second, ok := s.Poll()
	require.True(t, ok)
	assert.Equal(t, 0, second.Mana)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
}

func TestSessionNewGameKeepsRevealedCache(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(midGame()))
	firstID := s.GameID()

	require.NoError(t, s.Feed(gameStart()))
	assert.NotEqual(t, firstID, s.GameID())
	_, ok := s.Model().Object(10)
	assert.False(t, ok, "objects of the previous game are gone")

	cardID, ok := s.RevealedCardID(10)
	require.True(t, ok)
	assert.Equal(t, "CS2_029", cardID)

	s.Reset()
	_, ok = s.RevealedCardID(10)
	assert.False(t, ok)
	assert.Empty(t, s.GameID())
}

func TestSessionFriendlyOverride(t *testing.T) {
	s := newTestSession(t, Options{FriendlyPlayer: 2})
	require.NoError(t, s.Feed(midGame()))

	assert.Equal(t, 2, s.Friendly())
	assert.Empty(t, s.Hand())
	assert.Len(t, s.MyBoard(), 1)
	assert.Len(t, s.OppBoard(), 2)
	assert.False(t, s.IsMyTurn())
}

func TestSessionFriendlySkipsCoin(t *testing.T) {
	s := newTestSession(t, Options{})
	text := gameStart() + logText(
		"FULL_ENTITY - Creating ID=40 CardID=GAME_005",
		"    tag=ZONE value=HAND",
		"    tag=CONTROLLER value=2",
		"FULL_ENTITY - Creating ID=41 CardID=",
		"    tag=ZONE value=DECK",
		"    tag=CONTROLLER value=1",
		"TAG_CHANGE Entity=41 tag=ZONE value=HAND",
		"SHOW_ENTITY - Updating Entity=41 CardID=CS2_029",
	)
	require.NoError(t, s.Feed(text))
	assert.Equal(t, 1, s.Friendly())
}

func TestSessionApplyDeckCode(t *testing.T) {
	s := newTestSession(t, Options{})
	code := deckstring.Encode(&deckstring.Deck{
		Format: deckstring.FormatStandard,
		Heroes: []int{637},
		Cards:  []deckstring.CardCount{{DBFID: 315, Count: 2}, {DBFID: 662, Count: 2}},
	})
	require.NoError(t, s.ApplyDeckCode(code))
	assert.Equal(t, DeckElimination, s.DeckMode())
	assert.Len(t, s.InitialDeck(), 4)

	require.NoError(t, s.Feed(midGame()))
	assert.Equal(t, []string{"Fireball x1", "Frostbolt x2"}, s.Deck(false))
	assert.Equal(t, []string{
		"Fireball: Deal 6 damage.",
		"Frostbolt: Deal 3 damage and Freeze it.",
		"Frostbolt: Deal 3 damage and Freeze it.",
	}, s.Deck(true))
}

func TestSessionApplyDeckCodeFailure(t *testing.T) {
	s := newTestSession(t, Options{})

	err := s.ApplyDeckCode("definitely not a deck")
	require.Error(t, err)
	assert.Equal(t, DeckDirect, s.DeckMode())
	assert.Empty(t, s.InitialDeck())

	require.NoError(t, s.ApplyDeckCode("   "))
}

func TestSessionApplyDeckCodeMidGame(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.Feed(midGame()))
	require.Equal(t, []string{"Unknown x2"}, s.Deck(false))

	code := deckstring.Encode(&deckstring.Deck{
		Format: deckstring.FormatStandard,
		Heroes: []int{637},
		Cards:  []deckstring.CardCount{{DBFID: 315, Count: 2}, {DBFID: 662, Count: 2}},
	})
	gameID := s.GameID()
	require.NoError(t, s.ApplyDeckCode(code))

	assert.Equal(t, DeckElimination, s.DeckMode())
	assert.Equal(t, []string{"Fireball x1", "Frostbolt x2"}, s.Deck(false), "deck views follow the new decklist at once")
	assert.Equal(t, gameID, s.GameID())

	err := s.ApplyDeckCode("definitely not a deck")
	require.Error(t, err)
	assert.Equal(t, DeckDirect, s.DeckMode(), "a bad code drops the earlier decklist")
	assert.Equal(t, []string{"Unknown x2"}, s.Deck(false))
}

func TestSessionCapturesInitialDeck(t *testing.T) {
	list := make([]cards.Card, 0, 22)
	bodies := []string{}
	for i := 0; i < 22; i++ {
		id := fmt.Sprintf("TST_%02d", i)
		list = append(list, cards.Card{ID: id, DBFID: 5000 + i, Name: fmt.Sprintf("Card %02d", i)})
		bodies = append(bodies,
			fmt.Sprintf("FULL_ENTITY - Creating ID=%d CardID=%s", 100+i, id),
			"    tag=ZONE value=DECK",
			"    tag=CONTROLLER value=1",
		)
	}
	s := NewSession(cards.NewDatabase(list), zaptest.NewLogger(t), Options{FriendlyPlayer: 1})
	require.NoError(t, s.Feed(gameStart()+logText(bodies...)))

	initial := s.InitialDeck()
	require.Len(t, initial, 22)
	assert.Equal(t, "Card 00", initial[0])

	// later draws do not change the captured list
	require.NoError(t, s.Feed(logText("TAG_CHANGE Entity=100 tag=ZONE value=HAND")))
	assert.Len(t, s.InitialDeck(), 22)
	assert.Len(t, s.Deck(true), 21)
}
