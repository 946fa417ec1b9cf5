package game

import (
	"github.com/hsautopilot/tracker-go/internal/game/tags"
	"github.com/hsautopilot/tracker-go/internal/powerlog"
)

// coinCardID is dealt face up to the second player and says nothing about
// who is watching.
const coinCardID = "GAME_005"

// friendlyDetector finds the local player: the controller of the first card
// revealed while in hand. Only the local player's hand is shown in the log.
type friendlyDetector struct {
	controllers map[int]int
	zones       map[int]int
	slot        int
}

func newFriendlyDetector() *friendlyDetector {
	return &friendlyDetector{
		controllers: make(map[int]int),
		zones:       make(map[int]int),
	}
}

func (f *friendlyDetector) Observe(rec *powerlog.Record) {
	if f.slot != 0 {
		return
	}
	switch rec.Kind {
	case powerlog.KindFullEntity, powerlog.KindShowEntity:
		if v, ok := rec.TagValue(tags.TagController); ok {
			f.controllers[rec.Entity] = v
		}
		if v, ok := rec.TagValue(tags.TagZone); ok {
			f.zones[rec.Entity] = v
		}
		if rec.CardID == "" || rec.CardID == coinCardID {
			return
		}
		if tags.Zone(f.zones[rec.Entity]) != tags.ZoneHand {
			return
		}
		if slot := f.controllers[rec.Entity]; slot == 1 || slot == 2 {
			f.slot = slot
		}
	case powerlog.KindTagChange:
		switch rec.Tag {
		case tags.TagController:
			f.controllers[rec.Entity] = rec.Value
		case tags.TagZone:
			f.zones[rec.Entity] = rec.Value
		}
	}
}

// DetectFriendly returns the local player's slot, or 0 when no card has been
// revealed in hand yet.
func DetectFriendly(g *powerlog.Game, maxDepth int) int {
	if g == nil {
		return 0
	}
	f := newFriendlyDetector()
	Walk(g.Records, maxDepth, f.Observe)
	return f.slot
}
