package powerlog

import (
	"regexp"
	"strconv"
	"strings"
)

var bracketIDRe = regexp.MustCompile(`(?:^|[\s\[])id=(\d+)`)

// resolve turns an entity reference as written in the log into an entity id.
// References are an integer, "GameEntity", a bracketed description carrying
// id=N, or a player name. Unresolvable references yield 0.
func (g *Game) resolve(ref string) int {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0
	}
	if strings.HasPrefix(ref, "[") {
		m := bracketIDRe.FindStringSubmatch(ref)
		if m == nil {
			return 0
		}
		id, _ := strconv.Atoi(m[1])
		return id
	}
	if id, err := strconv.Atoi(ref); err == nil {
		return id
	}
	if ref == "GameEntity" {
		return g.GameEntityID
	}
	return g.playerByName(ref)
}

// playerByName maps a player name to its entity. A name seen for the first
// time is bound to the lowest player slot that has no name yet.
func (g *Game) playerByName(name string) int {
	if slot, ok := g.playerNames[name]; ok {
		return g.playerEntities[slot]
	}
	for _, slot := range g.sortedSlots() {
		if !g.slotNamed(slot) {
			g.registerName(name, slot)
			return g.playerEntities[slot]
		}
	}
	return 0
}
