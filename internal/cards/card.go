// Package cards provides the read-only card database used to turn card ids
// into display names and rules text.
package cards

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrNotFound is returned by stores when a card id has no row.
var ErrNotFound = errors.New("card not found")

// UnknownName is the display name used when a card id is empty.
const UnknownName = "Unknown"

// Card is one entry of the card database.
type Card struct {
	ID    string `json:"id"`
	DBFID int    `json:"dbf_id"`
	Name  string `json:"name"`
	Text  string `json:"text"`
	Cost  int    `json:"cost"`
	Type  string `json:"type"`
	Class string `json:"class"`
}

// Database is an in-memory card lookup keyed by card id and by dbf id.
type Database struct {
	byID  map[string]Card
	byDBF map[int]string
}

// NewDatabase indexes the given cards. Later duplicates win.
func NewDatabase(list []Card) *Database {
	db := &Database{
		byID:  make(map[string]Card, len(list)),
		byDBF: make(map[int]string, len(list)),
	}
	for _, c := range list {
		if c.ID == "" {
			continue
		}
		c.Text = CleanText(c.Text)
		db.byID[c.ID] = c
		if c.DBFID > 0 {
			db.byDBF[c.DBFID] = c.ID
		}
	}
	return db
}

// Lookup never fails: an empty id yields UnknownName, a missing id yields a
// card whose name is the id itself and whose text is empty.
func (db *Database) Lookup(id string) Card {
	if id == "" {
		return Card{Name: UnknownName}
	}
	if db != nil {
		if c, ok := db.byID[id]; ok {
			return c
		}
	}
	return Card{ID: id, Name: id}
}

// ByDBFID resolves a numeric database id, as used by deck codes.
func (db *Database) ByDBFID(dbfID int) (Card, bool) {
	if db == nil {
		return Card{}, false
	}
	id, ok := db.byDBF[dbfID]
	if !ok {
		return Card{}, false
	}
	return db.byID[id], true
}

// Len returns the number of indexed cards.
func (db *Database) Len() int {
	if db == nil {
		return 0
	}
	return len(db.byID)
}

// All returns every card sorted by id.
func (db *Database) All() []Card {
	if db == nil {
		return nil
	}
	out := make([]Card, 0, len(db.byID))
	for _, c := range db.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var (
	markupRe      = regexp.MustCompile(`</?[a-zA-Z]+>`)
	textReplacer  = strings.NewReplacer("$", "", "#", "", "[x]", "", `\n`, "", "\n", " ")
	multiSpacesRe = regexp.MustCompile(`\s{2,}`)
)

// CleanText strips client markup and placeholders from rules text.
func CleanText(text string) string {
	text = markupRe.ReplaceAllString(text, "")
	text = textReplacer.Replace(text)
	text = multiSpacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
