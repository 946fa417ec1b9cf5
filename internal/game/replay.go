package game

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// Replay is the ordered list of snapshots published during one game.
type Replay struct {
	GameID       string
	Snapshots    []*Snapshot
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID:    gameID,
		Snapshots: make([]*Snapshot, 0),
	}
}

// Record appends a snapshot.
func (r *Replay) Record(snap *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Snapshots = append(r.Snapshots, snap)
}

// Start rewinds playback to the first snapshot.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the snapshot at the cursor and advances it, or nil at the end.
func (r *Replay) Next() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Snapshots) {
		snap := r.Snapshots[r.CurrentIndex]
		r.CurrentIndex++
		return snap
	}
	return nil
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Snapshots)
}

// Play rewinds and hands every snapshot to publish in recorded order,
// waiting interval between them. It stops early when ctx is cancelled and
// returns how many snapshots were published.
func (r *Replay) Play(ctx context.Context, interval time.Duration, publish func(Snapshot)) (int, error) {
	r.Start()

	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	played := 0
	for snap := r.Next(); snap != nil; snap = r.Next() {
		if played > 0 && ticker != nil {
			select {
			case <-ctx.Done():
				return played, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return played, err
		}
		publish(*snap)
		played++
	}
	return played, nil
}

// SaveToFile writes the replay as <dir>/<game id>.replay, gzipped gob.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		GameID:        r.GameID,
		Timestamp:     time.Now(),
		Version:       replayVersion,
		SnapshotCount: len(r.Snapshots),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i, snap := range r.Snapshots {
		if err := encoder.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode snapshot %d: %w", i, err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.SnapshotCount; i++ {
		var snap Snapshot
		if err := decoder.Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot %d: %w", i, err)
		}
		replay.Snapshots = append(replay.Snapshots, &snap)
	}

	return replay, nil
}

type replayMetadata struct {
	GameID        string
	Timestamp     time.Time
	Version       int
	SnapshotCount int
}

// ReplayRecorder keeps one replay per game id. A snapshot for an unseen
// game id starts a new replay; the previous game's replay is saved to disk.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.Mutex
	replays map[string]*Replay
	current string
	saveDir string
}

// NewReplayRecorder creates a recorder that saves under saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// RecordSnapshot appends snap to its game's replay.
func (rr *ReplayRecorder) RecordSnapshot(snap Snapshot) {
	if snap.GameID == "" {
		return
	}

	rr.mu.Lock()
	previous := ""
	if rr.current != "" && rr.current != snap.GameID {
		previous = rr.current
	}
	replay, ok := rr.replays[snap.GameID]
	if !ok {
		replay = NewReplay(snap.GameID)
		rr.replays[snap.GameID] = replay
		rr.logger.Info("started replay recording", zap.String("game_id", snap.GameID))
	}
	rr.current = snap.GameID
	rr.mu.Unlock()

	replay.Record(&snap)
	rr.logger.Debug("recorded replay snapshot",
		zap.String("game_id", snap.GameID),
		zap.Int("snapshot_count", replay.Size()),
	)

	if previous != "" {
		if err := rr.SaveReplay(previous); err != nil {
			rr.logger.Warn("failed to save finished replay",
				zap.String("game_id", previous),
				zap.Error(err),
			)
		}
	}
}

// Replay returns the in-memory replay of a game.
func (rr *ReplayRecorder) Replay(gameID string) (*Replay, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	replay, ok := rr.replays[gameID]
	return replay, ok
}

// SaveReplay writes a game's replay to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, ok := rr.replays[gameID]
	if !ok {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for game %s", gameID)
	}
	delete(rr.replays, gameID)
	if rr.current == gameID {
		rr.current = ""
	}
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	rr.logger.Info("saved replay to disk",
		zap.String("game_id", gameID),
		zap.Int("snapshot_count", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return nil
}

// Flush saves the replay currently being recorded, if any.
func (rr *ReplayRecorder) Flush() error {
	rr.mu.Lock()
	current := rr.current
	rr.mu.Unlock()

	if current == "" {
		return nil
	}
	return rr.SaveReplay(current)
}
