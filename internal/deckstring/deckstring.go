// Package deckstring decodes the compact deck codes the game client exports.
//
// A deck code is base64 over a sequence of unsigned varints:
//
//	0, version, format,
//	hero count, hero dbf ids...,
//	single-copy count, dbf ids...,
//	double-copy count, dbf ids...,
//	n-copy count, (dbf id, count) pairs...,
//	[has sideboards, sideboard sections]
package deckstring

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Version is the only deck code version understood by Decode.
const Version = 1

var (
	// ErrInvalidHeader is returned when the leading reserved byte is not zero.
	ErrInvalidHeader = errors.New("deckstring: invalid header")
	// ErrUnsupportedVersion is returned for any version other than Version.
	ErrUnsupportedVersion = errors.New("deckstring: unsupported version")
)

// Format is the game format encoded in the deck code.
type Format int

const (
	FormatUnknown  Format = 0
	FormatWild     Format = 1
	FormatStandard Format = 2
	FormatClassic  Format = 3
	FormatTwist    Format = 4
)

func (f Format) String() string {
	switch f {
	case FormatWild:
		return "WILD"
	case FormatStandard:
		return "STANDARD"
	case FormatClassic:
		return "CLASSIC"
	case FormatTwist:
		return "TWIST"
	default:
		return "UNKNOWN"
	}
}

// CardCount is one (dbf id, count) entry of a deck.
type CardCount struct {
	DBFID int
	Count int
}

// SideboardCard is a card placed in the sideboard owned by another card.
type SideboardCard struct {
	DBFID      int
	Count      int
	OwnerDBFID int
}

// Deck is a decoded deck code.
type Deck struct {
	Format     Format
	Heroes     []int
	Cards      []CardCount
	Sideboards []SideboardCard
}

// Size returns the number of cards in the main deck.
func (d *Deck) Size() int {
	n := 0
	for _, c := range d.Cards {
		n += c.Count
	}
	return n
}

type reader struct {
	r *bytes.Reader
}

func (r reader) next(what string) (int, error) {
	v, err := binary.ReadUvarint(r.r)
	if err != nil {
		return 0, fmt.Errorf("deckstring: read %s: %w", what, err)
	}
	return int(v), nil
}

// Decode parses a deck code. Surrounding whitespace is ignored, as are
// comment lines (starting with '#') when a whole exported deck is pasted.
func Decode(code string) (*Deck, error) {
	code = extractCode(code)
	raw, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("deckstring: decode base64: %w", err)
	}

	r := reader{r: bytes.NewReader(raw)}
	header, err := r.next("header")
	if err != nil {
		return nil, err
	}
	if header != 0 {
		return nil, ErrInvalidHeader
	}
	version, err := r.next("version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	deck := &Deck{}
	format, err := r.next("format")
	if err != nil {
		return nil, err
	}
	deck.Format = Format(format)

	numHeroes, err := r.next("hero count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < numHeroes; i++ {
		hero, err := r.next("hero")
		if err != nil {
			return nil, err
		}
		deck.Heroes = append(deck.Heroes, hero)
	}

	for copies := 1; copies <= 3; copies++ {
		n, err := r.next("card count")
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			id, err := r.next("card")
			if err != nil {
				return nil, err
			}
			count := copies
			if copies == 3 {
				if count, err = r.next("copies"); err != nil {
					return nil, err
				}
			}
			deck.Cards = append(deck.Cards, CardCount{DBFID: id, Count: count})
		}
	}

	// sideboards are optional and only present in newer codes
	if r.r.Len() == 0 {
		sortCards(deck)
		return deck, nil
	}
	hasSideboards, err := r.next("sideboard flag")
	if err != nil {
		return nil, err
	}
	if hasSideboards == 1 {
		for copies := 1; copies <= 3; copies++ {
			n, err := r.next("sideboard count")
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				id, err := r.next("sideboard card")
				if err != nil {
					return nil, err
				}
				count := copies
				if copies == 3 {
					if count, err = r.next("sideboard copies"); err != nil {
						return nil, err
					}
				}
				owner, err := r.next("sideboard owner")
				if err != nil {
					return nil, err
				}
				deck.Sideboards = append(deck.Sideboards, SideboardCard{DBFID: id, Count: count, OwnerDBFID: owner})
			}
		}
	}

	sortCards(deck)
	return deck, nil
}

// Encode produces the deck code for d.
func Encode(d *Deck) string {
	var buf []byte
	put := func(v int) {
		buf = binary.AppendUvarint(buf, uint64(v))
	}

	put(0)
	put(Version)
	put(int(d.Format))
	put(len(d.Heroes))
	for _, h := range d.Heroes {
		put(h)
	}

	var ones, twos, many []CardCount
	for _, c := range d.Cards {
		switch c.Count {
		case 1:
			ones = append(ones, c)
		case 2:
			twos = append(twos, c)
		default:
			many = append(many, c)
		}
	}
	put(len(ones))
	for _, c := range ones {
		put(c.DBFID)
	}
	put(len(twos))
	for _, c := range twos {
		put(c.DBFID)
	}
	put(len(many))
	for _, c := range many {
		put(c.DBFID)
		put(c.Count)
	}

	if len(d.Sideboards) == 0 {
		put(0)
		return base64.StdEncoding.EncodeToString(buf)
	}
	put(1)
	var sOnes, sTwos, sMany []SideboardCard
	for _, c := range d.Sideboards {
		switch c.Count {
		case 1:
			sOnes = append(sOnes, c)
		case 2:
			sTwos = append(sTwos, c)
		default:
			sMany = append(sMany, c)
		}
	}
	for i, group := range [][]SideboardCard{sOnes, sTwos, sMany} {
		put(len(group))
		for _, c := range group {
			put(c.DBFID)
			if i == 2 {
				put(c.Count)
			}
			put(c.OwnerDBFID)
		}
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func sortCards(d *Deck) {
	sort.Slice(d.Cards, func(i, j int) bool { return d.Cards[i].DBFID < d.Cards[j].DBFID })
	sort.Slice(d.Sideboards, func(i, j int) bool { return d.Sideboards[i].DBFID < d.Sideboards[j].DBFID })
}

// extractCode returns the first non-comment line of a pasted deck export.
func extractCode(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}
