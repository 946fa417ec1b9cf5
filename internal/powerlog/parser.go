package powerlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/hsautopilot/tracker-go/internal/game/tags"
)

// ErrNoGame is returned when the text holds no CREATE_GAME record.
var ErrNoGame = errors.New("powerlog: no game found")

const maxLineSize = 1 << 20

var (
	lineRe = regexp.MustCompile(`^(?:[DWEI] [\d:.]+ )?(GameState|PowerTaskList)\.(\w+)\(\) - (.*)$`)

	gameEntityRe   = regexp.MustCompile(`^GameEntity EntityID=(\d+)`)
	playerRe       = regexp.MustCompile(`^Player EntityID=(\d+) PlayerID=(\d+)`)
	fullEntityRe   = regexp.MustCompile(`^FULL_ENTITY - (?:Creating|Updating) (?:ID=(\d+)|(?:Entity=)?(.+?)) CardID=(\S*)`)
	showEntityRe   = regexp.MustCompile(`^SHOW_ENTITY - Updating Entity=(.+?) CardID=(\S*)`)
	changeEntityRe = regexp.MustCompile(`^CHANGE_ENTITY - Updating Entity=(.+?) CardID=(\S*)`)
	hideEntityRe   = regexp.MustCompile(`^HIDE_ENTITY - Entity=(.+?) tag=(\S+) value=(\S+)`)
	tagChangeRe    = regexp.MustCompile(`^TAG_CHANGE Entity=(.+?) tag=(\S+) value=(\S+)`)
	blockStartRe   = regexp.MustCompile(`^BLOCK_START BlockType=(\S+) Entity=(.+?)(?: EffectCardId=.*)?$`)
	metaDataRe     = regexp.MustCompile(`^META_DATA - Meta=(\S+) Data=(\S+)`)
	shuffleDeckRe  = regexp.MustCompile(`^SHUFFLE_DECK PlayerID=(\d+)`)
	tagRe          = regexp.MustCompile(`^tag=(\S+) value=(\S+)`)

	gamePlayerRe     = regexp.MustCompile(`^PlayerID=(\d+), PlayerName=(.+)$`)
	choicesRe        = regexp.MustCompile(`^id=(\d+) Player=(.+?) (?:TaskList=\S* )?ChoiceType=(\S+)`)
	chosenRe         = regexp.MustCompile(`^id=(\d+) Player=(.+?) EntitiesCount=(\d+)`)
	sendChoicesRe    = regexp.MustCompile(`^id=(\d+) ChoiceType=(\S+)`)
	choiceSourceRe   = regexp.MustCompile(`^Source=(.+)$`)
	choiceEntityRe   = regexp.MustCompile(`^Entities\[\d+\]=(.+)$`)
	chosenEntitiesRe = regexp.MustCompile(`^m_chosenEntities\[\d+\]=(.+)$`)
)

type parser struct {
	tree      *Tree
	game      *Game
	blocks    []*Record
	tagTarget *Record
	choice    *Record
	line      int
}

// Parse decodes the complete log text from r.
func Parse(r io.Reader) (*Tree, error) {
	p := &parser{tree: &Tree{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		p.line++
		p.handleLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("powerlog: read line %d: %w", p.line+1, err)
	}
	if len(p.tree.Games) == 0 {
		return nil, ErrNoGame
	}
	return p.tree, nil
}

// ParseString decodes log text held in memory.
func ParseString(s string) (*Tree, error) {
	return Parse(strings.NewReader(s))
}

func (p *parser) handleLine(line string) {
	m := lineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil || m[1] != "GameState" {
		return
	}
	method, body := m[2], strings.TrimSpace(m[3])

	switch method {
	case "DebugPrintPower":
		p.handlePower(body)
	case "DebugPrintGame":
		p.handleGameInfo(body)
	case "DebugPrintEntityChoices":
		p.handleChoices(body)
	case "DebugPrintEntitiesChosen":
		p.handleChosen(body)
	case "SendChoices":
		p.handleSendChoices(body)
	}
}

func (p *parser) handlePower(body string) {
	if body == "CREATE_GAME" {
		p.game = newGame(p.line)
		p.tree.Games = append(p.tree.Games, p.game)
		p.blocks = nil
		p.choice = nil
		p.emit(&Record{Kind: KindCreateGame})
		return
	}
	if p.game == nil {
		return
	}

	if m := tagRe.FindStringSubmatch(body); m != nil {
		p.attachTag(m[1], m[2])
		return
	}

	switch {
	case body == "BLOCK_END":
		if n := len(p.blocks); n > 0 {
			p.blocks = p.blocks[:n-1]
		}
		p.tagTarget = nil
	case strings.HasPrefix(body, "BLOCK_START"):
		m := blockStartRe.FindStringSubmatch(body)
		if m == nil {
			return
		}
		rec := &Record{Kind: KindBlock, BlockType: m[1], Entity: p.game.resolve(m[2])}
		p.emit(rec)
		p.blocks = append(p.blocks, rec)
	case strings.HasPrefix(body, "GameEntity"):
		m := gameEntityRe.FindStringSubmatch(body)
		if m == nil {
			return
		}
		id := atoi(m[1])
		p.game.GameEntityID = id
		p.emit(&Record{Kind: KindGameEntity, Entity: id})
	case strings.HasPrefix(body, "Player "):
		m := playerRe.FindStringSubmatch(body)
		if m == nil {
			return
		}
		id, slot := atoi(m[1]), atoi(m[2])
		p.game.playerEntities[slot] = id
		p.emit(&Record{Kind: KindPlayer, Entity: id, PlayerID: slot})
	case strings.HasPrefix(body, "FULL_ENTITY"):
		m := fullEntityRe.FindStringSubmatch(body)
		if m == nil {
			return
		}
		id := atoi(m[1])
		if m[1] == "" {
			id = p.game.resolve(m[2])
		}
		p.emit(&Record{Kind: KindFullEntity, Entity: id, CardID: m[3]})
	case strings.HasPrefix(body, "SHOW_ENTITY"):
		if m := showEntityRe.FindStringSubmatch(body); m != nil {
			p.emit(&Record{Kind: KindShowEntity, Entity: p.game.resolve(m[1]), CardID: m[2]})
		}
	case strings.HasPrefix(body, "CHANGE_ENTITY"):
		if m := changeEntityRe.FindStringSubmatch(body); m != nil {
			p.emit(&Record{Kind: KindChangeEntity, Entity: p.game.resolve(m[1]), CardID: m[2]})
		}
	case strings.HasPrefix(body, "HIDE_ENTITY"):
		m := hideEntityRe.FindStringSubmatch(body)
		if m == nil {
			return
		}
		rec := &Record{Kind: KindHideEntity, Entity: p.game.resolve(m[1])}
		if !p.setTagValue(rec, m[2], m[3]) {
			rec.Tag = tags.TagZone
			rec.Value = int(tags.ZoneDeck)
		}
		p.emit(rec)
	case strings.HasPrefix(body, "TAG_CHANGE"):
		m := tagChangeRe.FindStringSubmatch(body)
		if m == nil {
			return
		}
		rec := &Record{Kind: KindTagChange, Entity: p.game.resolve(m[1])}
		if !p.setTagValue(rec, m[2], m[3]) {
			return
		}
		p.emit(rec)
	case strings.HasPrefix(body, "META_DATA"):
		if m := metaDataRe.FindStringSubmatch(body); m != nil {
			p.emit(&Record{Kind: KindMetaData, BlockType: m[1], Value: atoi(m[2])})
		}
	case strings.HasPrefix(body, "SHUFFLE_DECK"):
		if m := shuffleDeckRe.FindStringSubmatch(body); m != nil {
			p.emit(&Record{Kind: KindShuffleDeck, PlayerID: atoi(m[1])})
		}
	default:
		p.tagTarget = nil
	}
}

func (p *parser) handleGameInfo(body string) {
	if p.game == nil {
		return
	}
	if m := gamePlayerRe.FindStringSubmatch(body); m != nil {
		p.game.registerName(strings.TrimSpace(m[2]), atoi(m[1]))
	}
}

func (p *parser) handleChoices(body string) {
	if p.game == nil {
		return
	}
	if m := choicesRe.FindStringSubmatch(body); m != nil {
		rec := &Record{
			Kind:       KindChoices,
			ChoiceID:   atoi(m[1]),
			Player:     p.game.resolve(m[2]),
			ChoiceType: m[3],
		}
		p.emit(rec)
		p.choice = rec
		return
	}
	if p.choice == nil || p.choice.Kind != KindChoices {
		return
	}
	if m := choiceSourceRe.FindStringSubmatch(body); m != nil {
		p.choice.Source = p.game.resolve(m[1])
		p.choice.Entity = p.choice.Source
		return
	}
	if m := choiceEntityRe.FindStringSubmatch(body); m != nil {
		p.choice.Choices = append(p.choice.Choices, p.game.resolve(m[1]))
	}
}

func (p *parser) handleChosen(body string) {
	if p.game == nil {
		return
	}
	if m := chosenRe.FindStringSubmatch(body); m != nil {
		rec := &Record{
			Kind:     KindChosenEntities,
			ChoiceID: atoi(m[1]),
			Player:   p.game.resolve(m[2]),
		}
		p.emit(rec)
		p.choice = rec
		return
	}
	if p.choice == nil || p.choice.Kind != KindChosenEntities {
		return
	}
	if m := choiceEntityRe.FindStringSubmatch(body); m != nil {
		p.choice.Choices = append(p.choice.Choices, p.game.resolve(m[1]))
	}
}

func (p *parser) handleSendChoices(body string) {
	if p.game == nil {
		return
	}
	if m := sendChoicesRe.FindStringSubmatch(body); m != nil {
		rec := &Record{Kind: KindSendChoices, ChoiceID: atoi(m[1]), ChoiceType: m[2]}
		p.emit(rec)
		p.choice = rec
		return
	}
	if p.choice == nil || p.choice.Kind != KindSendChoices {
		return
	}
	if m := chosenEntitiesRe.FindStringSubmatch(body); m != nil {
		p.choice.Choices = append(p.choice.Choices, p.game.resolve(m[1]))
	}
}

// emit appends rec to the innermost open block, or to the game itself.
func (p *parser) emit(rec *Record) {
	rec.Line = p.line
	if n := len(p.blocks); n > 0 {
		top := p.blocks[n-1]
		top.Children = append(top.Children, rec)
	} else {
		p.game.Records = append(p.game.Records, rec)
	}
	if rec.Kind.acceptsTags() {
		p.tagTarget = rec
	} else {
		p.tagTarget = nil
	}
}

func (p *parser) attachTag(name, value string) {
	if p.tagTarget == nil {
		return
	}
	tag, ok := tags.ParseGameTag(name)
	if !ok {
		return
	}
	v, ok := tags.ParseValue(tag, value)
	if !ok {
		return
	}
	p.tagTarget.Tags = append(p.tagTarget.Tags, Tag{Tag: tag, Value: v})
}

func (p *parser) setTagValue(rec *Record, name, value string) bool {
	tag, ok := tags.ParseGameTag(name)
	if !ok {
		return false
	}
	v, ok := tags.ParseValue(tag, value)
	if !ok {
		return false
	}
	rec.Tag = tag
	rec.Value = v
	return true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
