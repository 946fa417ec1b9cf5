package game

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes the deterministic rendering of a snapshot. The
// timestamp and any existing fingerprint are excluded, so two snapshots of
// the same state always match.
func Fingerprint(snap *Snapshot) string {
	sum := blake2b.Sum256([]byte(snap.deterministicRepresentation()))
	return hex.EncodeToString(sum[:])
}

// deterministicRepresentation renders every state field in a fixed order.
// List order is kept: hand and board order carry meaning.
func (snap *Snapshot) deterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%d|%t|%d/%d\n",
		snap.GameID,
		snap.Phase,
		snap.Turn,
		snap.IsMyTurn,
		snap.Mana,
		snap.MaxMana,
	)

	for i, c := range snap.Hand {
		fmt.Fprintf(&buf, "HAND:%d|%s|%s|%d|%d|%d|%t|%t|%t\n",
			i, c.ID, c.Name, c.Atk, c.Health, c.Cost, c.DivineShield, c.Taunt, c.Exhausted)
	}
	for i, m := range snap.MyBoard {
		fmt.Fprintf(&buf, "MINE:%d|%s|%d|%d|%t|%t|%t\n",
			i, m.Name, m.Atk, m.Health, m.DivineShield, m.Taunt, m.CanAttack)
	}
	for i, m := range snap.OppBoard {
		fmt.Fprintf(&buf, "THEIRS:%d|%s|%d|%d|%t|%t\n",
			i, m.Name, m.Atk, m.Health, m.DivineShield, m.Taunt)
	}

	for _, h := range []struct {
		label string
		hero  HeroState
	}{{"MY_HERO", snap.MyHero}, {"OPP_HERO", snap.OppHero}} {
		fmt.Fprintf(&buf, "%s:%s|%s|%d|%d|%d\n",
			h.label, h.hero.Name, h.hero.Class, h.hero.Health, h.hero.Armor, h.hero.Atk)
	}

	for _, c := range snap.Choices {
		fmt.Fprintf(&buf, "CHOICE:%d|%s|%s\n", c.ID, c.CardID, c.Name)
	}

	buf.WriteString("INITIAL_DECK:")
	buf.WriteString(strings.Join(snap.InitialDeck, ","))
	buf.WriteString("\n")
	buf.WriteString("DECK:")
	buf.WriteString(strings.Join(snap.Deck, ","))
	buf.WriteString("\n")

	return buf.String()
}
