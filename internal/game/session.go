package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hsautopilot/tracker-go/internal/deckstring"
	"github.com/hsautopilot/tracker-go/internal/powerlog"
)

// initialDeckThreshold is the deck size above which the first observed deck
// is taken as the opening list.
const initialDeckThreshold = 20

// ParseError reports a refresh whose re-parse failed. The session keeps the
// state derived by the last successful refresh.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("refresh failed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options configures a Session.
type Options struct {
	// MaxDepth bounds block nesting; DefaultMaxDepth when zero.
	MaxDepth int
	// FriendlyPlayer forces the local player slot (1 or 2); 0 auto-detects.
	FriendlyPlayer int
	// Now stamps snapshots; time.Now when nil.
	Now func() time.Time
}

// derived is rebuilt from scratch on every successful refresh.
type derived struct {
	startLine   int
	model       *Model
	tracker     *ChoiceTracker
	choices     []ChoiceOption
	friendly    int
	deckDetail  []string
	deckSummary []string
}

// Session owns the log buffer of one client session and everything derived
// from it. All methods are safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	logger *zap.Logger
	lookup CardLookup
	opts   Options

	buf   strings.Builder
	state *derived

	// kept across refreshes until Reset
	revealed    *RevealedCache
	baseline    *DeckKnowledge
	initialDeck []string

	gameID          string
	lastFingerprint string
}

// NewSession creates an empty session.
func NewSession(lookup CardLookup, logger *zap.Logger, opts Options) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		logger:   logger,
		lookup:   lookup,
		opts:     opts,
		revealed: NewRevealedCache(),
	}
}

// Reset drops the buffer, all derived state, the revealed-card cache and
// the decklist.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()
	s.state = nil
	s.revealed = NewRevealedCache()
	s.baseline = nil
	s.initialDeck = nil
	s.gameID = ""
	s.lastFingerprint = ""

	s.logger.Info("session reset")
}

// ApplyDeckCode loads the decklist used for deck elimination and re-derives
// the deck views. On failure any earlier decklist is dropped, the session
// falls back to direct mode and the error is returned.
func (s *Session) ApplyDeckCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	deck, err := deckstring.Decode(code)
	if err != nil {
		s.logger.Warn("failed to decode deck code, using direct deck tracking", zap.Error(err))

		s.mu.Lock()
		defer s.mu.Unlock()
		s.baseline = nil
		s.rederiveLocked()
		return fmt.Errorf("apply deck code: %w", err)
	}
	knowledge, missing := DeckKnowledgeFromCode(deck, s.lookup)
	if missing > 0 {
		s.logger.Warn("deck code references unknown cards", zap.Int("missing", missing))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseline = knowledge
	if len(s.initialDeck) == 0 {
		s.initialDeck = knowledge.Displays()
	}
	s.rederiveLocked()

	s.logger.Info("deck code applied",
		zap.Int("cards", knowledge.Len()),
		zap.String("format", deck.Format.String()),
	)
	return nil
}

// rederiveLocked refreshes derived state after a decklist change. A failed
// refresh keeps the previous state, as it does for Feed.
func (s *Session) rederiveLocked() {
	if s.state == nil {
		return
	}
	_ = s.refreshLocked()
}

// Feed appends a chunk of log text and refreshes. An empty chunk changes
// nothing.
func (s *Session) Feed(chunk string) error {
	if chunk == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.WriteString(chunk)
	return s.refreshLocked()
}

// Refresh re-derives all state from the accumulated buffer.
func (s *Session) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

func (s *Session) refreshLocked() error {
	tree, err := powerlog.ParseString(s.buf.String())
	if err != nil {
		if errors.Is(err, powerlog.ErrNoGame) {
			s.logger.Debug("no game in log buffer yet", zap.Int("buffer_bytes", s.buf.Len()))
		} else {
			s.logger.Warn("failed to parse log buffer", zap.Error(err))
		}
		return &ParseError{Err: err}
	}
	g := tree.LastGame()

	model, truncated := BuildModel(g, s.opts.MaxDepth)
	if truncated > 0 {
		s.logger.Warn("skipped blocks nested beyond depth limit",
			zap.Int("blocks", truncated),
			zap.Int("max_depth", s.opts.MaxDepth),
		)
	}

	revealed := s.revealed.Clone()
	Walk(g.Records, s.opts.MaxDepth, revealed.Observe)

	tracker := TrackChoices(g, s.opts.MaxDepth)

	friendly := s.opts.FriendlyPlayer
	if friendly == 0 {
		friendly = DetectFriendly(g, s.opts.MaxDepth)
	}

	next := &derived{
		startLine: g.StartLine,
		model:     model,
		tracker:   tracker,
		friendly:  friendly,
	}
	if pending, ok := tracker.Pending(); ok {
		var dropped int
		next.choices, dropped = LabelChoice(pending, model, revealed, s.lookup)
		if dropped > 0 {
			s.logger.Debug("dropped unresolved choice candidates",
				zap.Int("choice_id", pending.ID),
				zap.Int("dropped", dropped),
			)
		}
	}

	inference := DeckInference{Model: model, Revealed: revealed, Lookup: s.lookup, Baseline: s.baseline}
	next.deckDetail = inference.Infer(friendly, true)
	next.deckSummary = inference.Infer(friendly, false)

	// swap only after everything above succeeded
	if s.state == nil || s.state.startLine != next.startLine {
		s.gameID = uuid.NewString()
		s.logger.Info("new game detected",
			zap.String("game_id", s.gameID),
			zap.Int("start_line", next.startLine),
		)
	}
	s.state = next
	s.revealed = revealed
	if len(s.initialDeck) == 0 && len(next.deckDetail) > initialDeckThreshold {
		s.initialDeck = append([]string(nil), next.deckDetail...)
		s.logger.Info("captured initial deck", zap.Int("cards", len(s.initialDeck)))
	}
	return nil
}

func (s *Session) viewLocked() view {
	v := view{revealed: s.revealed, lookup: s.lookup}
	if s.state != nil {
		v.model = s.state.model
		v.friendly = s.state.friendly
	}
	return v
}

// GameID identifies the current game; empty before one is observed.
func (s *Session) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

// Model returns the current entity model, or nil before the first game.
func (s *Session) Model() *Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked().model
}

// Friendly returns the local player slot, or 0 when not yet known.
func (s *Session) Friendly() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked().friendly
}

// RevealedCardID returns the remembered card id of an object.
func (s *Session) RevealedCardID(id int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed.Lookup(id)
}

// PendingChoice returns the unanswered prompt of the current turn.
func (s *Session) PendingChoice() (*Choice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, false
	}
	return s.state.tracker.Pending()
}

// Choices returns the labelled candidates of the pending choice.
func (s *Session) Choices() []ChoiceOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return append([]ChoiceOption(nil), s.state.choices...)
}

// Hand lists the local player's hand in position order.
func (s *Session) Hand() []HandCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked().hand()
}

// MyBoard lists the local player's minions in position order.
func (s *Session) MyBoard() []FriendlyMinion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked().myBoard()
}

// OppBoard lists the opponent's minions in position order.
func (s *Session) OppBoard() []Minion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked().oppBoard()
}

// Hero returns the hero state of a player slot.
func (s *Session) Hero(slot int) HeroState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked().hero(slot)
}

// Mana returns the local player's available and total mana.
func (s *Session) Mana() (available, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.viewLocked()
	return v.model.Mana(v.slot())
}

// Phase returns PhaseMulligan, PhasePlaying, or PhaseUnknown with no game.
func (s *Session) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.viewLocked()
	return v.model.Phase(v.slot())
}

// Turn returns the current turn number, 1 before it is known.
func (s *Session) Turn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked().model.Turn()
}

// IsMyTurn reports whether the local player may act.
func (s *Session) IsMyTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.viewLocked()
	return v.model.IsPlayersTurn(v.friendly)
}

// DeckMode reports how the remaining deck is being derived.
func (s *Session) DeckMode() DeckMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DeckInference{Baseline: s.baseline}.Mode()
}

// Deck lists the local player's remaining deck as of the last refresh.
func (s *Session) Deck(detail bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	if detail {
		return append([]string(nil), s.state.deckDetail...)
	}
	return append([]string(nil), s.state.deckSummary...)
}

// InitialDeck returns the opening decklist, once known.
func (s *Session) InitialDeck() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.initialDeck...)
}

// Snapshot aggregates the current state. It reports false before any game
// is observed and while there is nothing to act on.
func (s *Session) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() (Snapshot, bool) {
	if s.state == nil {
		return Snapshot{}, false
	}
	v := s.viewLocked()
	slot := v.slot()

	snap := Snapshot{
		GameID:      s.gameID,
		Phase:       v.model.Phase(slot),
		Turn:        v.model.Turn(),
		IsMyTurn:    v.model.IsPlayersTurn(v.friendly),
		Hand:        v.hand(),
		MyBoard:     v.myBoard(),
		OppBoard:    v.oppBoard(),
		MyHero:      v.hero(slot),
		OppHero:     v.hero(3 - slot),
		Choices:     append([]ChoiceOption(nil), s.state.choices...),
		InitialDeck: append([]string(nil), s.initialDeck...),
		Timestamp:   s.opts.Now(),
	}
	snap.Mana, snap.MaxMana = v.model.Mana(slot)
	if snap.Phase == PhaseMulligan {
		snap.Deck = append([]string(nil), s.state.deckDetail...)
	} else {
		snap.Deck = append([]string(nil), s.state.deckSummary...)
	}
	if !snap.relevant() {
		return Snapshot{}, false
	}
	snap.Fingerprint = Fingerprint(&snap)
	return snap, true
}

// Poll returns a snapshot only when it differs from the last one Poll
// returned. ok is false for "no update".
func (s *Session) Poll() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshotLocked()
	if !ok || snap.Fingerprint == s.lastFingerprint {
		return Snapshot{}, false
	}
	s.lastFingerprint = snap.Fingerprint
	return snap, true
}
