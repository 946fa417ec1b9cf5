package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIgnoresTimestamp(t *testing.T) {
	a := Snapshot{GameID: "g", Turn: 2, Hand: []HandCard{{ID: "CS2_029", Name: "Fireball"}}, Timestamp: fixedNow}
	b := a
	b.Timestamp = fixedNow.Add(time.Hour)
	b.Fingerprint = "stale"
	assert.Equal(t, Fingerprint(&a), Fingerprint(&b))
	assert.Len(t, Fingerprint(&a), 64)
}

func TestFingerprintTracksState(t *testing.T) {
	base := Snapshot{
		GameID:   "g",
		Turn:     2,
		Hand:     []HandCard{{ID: "CS2_029", Name: "Fireball"}, {ID: "CS2_024", Name: "Frostbolt"}},
		MyHero:   HeroState{Name: "Jaina Proudmoore", Health: 30},
		Deck:     []string{"Fireball x1"},
		IsMyTurn: true,
	}
	want := Fingerprint(&base)

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"hand order", func(s *Snapshot) { s.Hand = []HandCard{s.Hand[1], s.Hand[0]} }},
		{"hero health", func(s *Snapshot) { s.MyHero.Health = 29 }},
		{"turn", func(s *Snapshot) { s.Turn = 3 }},
		{"deck", func(s *Snapshot) { s.Deck = []string{"Fireball x2"} }},
		{"choices", func(s *Snapshot) { s.Choices = []ChoiceOption{{ID: 101, CardID: "CS2_029", Name: "Fireball"}} }},
		{"opponent board", func(s *Snapshot) { s.OppBoard = []Minion{{Name: "Chillwind Yeti", Atk: 4, Health: 5}} }},
		{"whose turn", func(s *Snapshot) { s.IsMyTurn = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			s.Hand = append([]HandCard(nil), base.Hand...)
			tt.mutate(&s)
			assert.NotEqual(t, want, Fingerprint(&s))
		})
	}
}
