package game

import (
	"testing"

	"github.com/hsautopilot/tracker-go/internal/game/tags"
	"github.com/hsautopilot/tracker-go/internal/powerlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectIDs(objs []*Object) []int {
	ids := make([]int, 0, len(objs))
	for _, o := range objs {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestBuildModelQueries(t *testing.T) {
	m, truncated := BuildModel(mustParse(midGame()), DefaultMaxDepth)
	require.Zero(t, truncated)

	assert.Equal(t, 3, m.Turn())
	available, total := m.Mana(1)
	assert.Equal(t, 3, available)
	assert.Equal(t, 5, total)
	assert.Equal(t, PhasePlaying, m.Phase(1))
	assert.True(t, m.IsPlayersTurn(1))
	assert.False(t, m.IsPlayersTurn(2))

	hero := m.Hero(1)
	require.NotNil(t, hero)
	assert.Equal(t, 4, hero.ID)
	assert.Equal(t, 5, m.Hero(2).ID)

	o, ok := m.Object(12)
	require.True(t, ok)
	assert.Equal(t, "CS2_182", o.CardID)
	assert.True(t, o.Flag(tags.TagExhausted))

	_, ok = m.Object(999)
	assert.False(t, ok)
}

func TestObjectsOrderedByZonePosition(t *testing.T) {
	m, _ := BuildModel(mustParse(midGame()), DefaultMaxDepth)

	assert.Equal(t, []int{11, 10}, objectIDs(m.Objects(1, Filter{Zone: tags.ZoneHand})))
	assert.Equal(t, []int{13, 12}, objectIDs(m.Objects(1, Filter{Zone: tags.ZonePlay, CardType: tags.CardTypeMinion})))
	assert.Equal(t, []int{14}, objectIDs(m.Objects(2, Filter{Zone: tags.ZonePlay, CardType: tags.CardTypeMinion})))
	assert.Equal(t, []int{20, 21}, objectIDs(m.Objects(1, Filter{Zone: tags.ZoneDeck})))
}

func TestZonePositionFollowsTagChanges(t *testing.T) {
	text := midGame() + logText(
		"TAG_CHANGE Entity=10 tag=ZONE_POSITION value=1",
		"TAG_CHANGE Entity=11 tag=ZONE_POSITION value=2",
	)
	m, _ := BuildModel(mustParse(text), DefaultMaxDepth)
	assert.Equal(t, []int{10, 11}, objectIDs(m.Objects(1, Filter{Zone: tags.ZoneHand})))
}

func TestModelMulliganPhase(t *testing.T) {
	text := gameStart() + logText(
		"TAG_CHANGE Entity=GameEntity tag=STEP value=BEGIN_MULLIGAN",
		"TAG_CHANGE Entity=Alice#1234 tag=MULLIGAN_STATE value=INPUT",
		"TAG_CHANGE Entity=Bob#5678 tag=CURRENT_PLAYER value=0",
	)
	m, _ := BuildModel(mustParse(text), DefaultMaxDepth)

	assert.Equal(t, PhaseMulligan, m.Phase(1))
	assert.Equal(t, PhasePlaying, m.Phase(2))
	assert.True(t, m.IsPlayersTurn(2), "both players act during the mulligan step")

	text += logText("TAG_CHANGE Entity=Alice#1234 tag=MULLIGAN_STATE value=DEALING")
	m, _ = BuildModel(mustParse(text), DefaultMaxDepth)
	assert.Equal(t, PhaseMulligan, m.Phase(1))

	text += logText("TAG_CHANGE Entity=Alice#1234 tag=MULLIGAN_STATE value=DONE")
	m, _ = BuildModel(mustParse(text), DefaultMaxDepth)
	assert.Equal(t, PhasePlaying, m.Phase(1))
}

func TestNilModelDefaults(t *testing.T) {
	var m *Model

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 1, m.Turn())
	available, total := m.Mana(1)
	assert.Zero(t, available)
	assert.Zero(t, total)
	assert.Equal(t, PhaseUnknown, m.Phase(1))
	assert.False(t, m.IsPlayersTurn(1))
	assert.Nil(t, m.Objects(1, Filter{}))
	assert.Nil(t, m.Hero(1))
	assert.Nil(t, m.GameEntity())
}

func TestHideEntityClearsCardID(t *testing.T) {
	text := midGame() + logText(
		"SHOW_ENTITY - Updating Entity=[entityName=UNKNOWN ENTITY [cardType=INVALID] id=20 zone=DECK zonePos=0 cardId= player=1] CardID=CS2_024",
		"    tag=ZONE value=HAND",
		"HIDE_ENTITY - Entity=[entityName=Frostbolt id=20 zone=HAND zonePos=3 cardId=CS2_024 player=1] tag=ZONE value=DECK",
	)
	m, _ := BuildModel(mustParse(text), DefaultMaxDepth)

	o, ok := m.Object(20)
	require.True(t, ok)
	assert.Empty(t, o.CardID)
	assert.Equal(t, tags.ZoneDeck, o.Zone())
}

func TestTagChangeOnUnknownObjectIgnored(t *testing.T) {
	text := gameStart() + logText("TAG_CHANGE Entity=77 tag=ZONE value=HAND")
	m, _ := BuildModel(mustParse(text), DefaultMaxDepth)

	_, ok := m.Object(77)
	assert.False(t, ok)
}

func TestWalkDepthLimit(t *testing.T) {
	leaf := &powerlog.Record{Kind: powerlog.KindTagChange, Entity: 9}
	root := &powerlog.Record{Kind: powerlog.KindBlock}
	cur := root
	for i := 0; i < 60; i++ {
		child := &powerlog.Record{Kind: powerlog.KindBlock}
		cur.Children = []*powerlog.Record{child}
		cur = child
	}
	cur.Children = []*powerlog.Record{leaf}

	visited := 0
	reachedLeaf := false
	truncated := Walk([]*powerlog.Record{root}, DefaultMaxDepth, func(rec *powerlog.Record) {
		visited++
		if rec == leaf {
			reachedLeaf = true
		}
	})

	assert.Equal(t, 1, truncated)
	assert.False(t, reachedLeaf)
	assert.Equal(t, DefaultMaxDepth+1, visited)

	reachedLeaf = false
	Walk([]*powerlog.Record{root}, 100, func(rec *powerlog.Record) {
		if rec == leaf {
			reachedLeaf = true
		}
	})
	assert.True(t, reachedLeaf)
}
