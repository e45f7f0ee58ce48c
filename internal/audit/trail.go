package audit

// ============================================================================
// Durable Audit Trail
// Responsibility:
// 1. Append entries to a JSON-lines file as they are logged (append-only)
// 2. Checksum each record (CRC32) so corruption is detectable on replay
// 3. Replay a trail file for inspection or crash analysis
// 4. Rotate the file once the run's array snapshot has been saved
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
	"time"
)

var (
	// ErrChecksumMismatch indicates a trail record failed verification.
	ErrChecksumMismatch = errors.New("audit trail checksum mismatch")
)

// Trail is an append-only, checksummed record log.
type Trail struct {
	mu           sync.Mutex
	file         *os.File
	encoder      *json.Encoder
	path         string
	seq          uint64
	syncOnAppend bool
}

// OpenTrail creates or opens a trail file in append mode. When the file
// already holds records, the sequence counter resumes from the last one.
func OpenTrail(path string, syncOnAppend bool) (*Trail, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit trail: %w", err)
	}

	var seq uint64
	if stat, err := file.Stat(); err == nil && stat.Size() > 0 {
		if last, err := lastEntry(path); err == nil && last != nil {
			seq = last.Seq
		}
		// A truncated tail leaves seq at 0; replay will surface the damage
	}

	return &Trail{
		file:         file,
		encoder:      json.NewEncoder(file),
		path:         path,
		seq:          seq,
		syncOnAppend: syncOnAppend,
	}, nil
}

// Append assigns the next sequence number and checksum to the entry, writes
// it as one JSON line, and returns the stamped entry.
func (t *Trail) Append(e Entry) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	e.Seq = t.seq
	e.Checksum = checksumFor(e.Action, e.ID, e.Seq)

	if err := t.encoder.Encode(e); err != nil {
		return Entry{}, fmt.Errorf("failed to append trail entry: %w", err)
	}

	if t.syncOnAppend {
		if err := t.file.Sync(); err != nil {
			return Entry{}, fmt.Errorf("failed to sync audit trail: %w", err)
		}
	}

	return e, nil
}

// Replay reads the trail from the start, verifying each record's checksum
// and passing it to handler. Stops at the first verification or handler
// error.
func (t *Trail) Replay(handler func(Entry) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return replayFile(t.path, handler)
}

// Rotate renames the current trail file with a timestamp suffix and starts
// a fresh one, resetting the sequence counter.
func (t *Trail) Rotate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.file.Close(); err != nil {
		return err
	}

	backupPath := t.path + "." + time.Now().Format("20060102_150405")
	if err := os.Rename(t.path, backupPath); err != nil {
		return err
	}

	newFile, err := os.OpenFile(t.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	t.file = newFile
	t.encoder = json.NewEncoder(newFile)
	t.seq = 0

	return nil
}

// Close syncs and closes the trail file.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.file.Sync(); err != nil {
		return err
	}
	return t.file.Close()
}

// Path returns the trail file path, for tests and diagnostics.
func (t *Trail) Path() string { return t.path }

// ReplayTrail verifies and replays a trail file without opening it for
// appending. Useful for offline inspection of an interrupted run.
func ReplayTrail(path string, handler func(Entry) error) error {
	return replayFile(path, handler)
}

func replayFile(path string, handler func(Entry) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for decoder.More() {
		var e Entry
		if err := decoder.Decode(&e); err != nil {
			return fmt.Errorf("failed to decode trail entry: %w", err)
		}

		if e.Checksum != checksumFor(e.Action, e.ID, e.Seq) {
			return fmt.Errorf("%w: seq %d", ErrChecksumMismatch, e.Seq)
		}

		if err := handler(e); err != nil {
			return err
		}
	}

	return nil
}

// checksumFor covers the fields that identify a record. The timestamp is
// excluded so a replayed record verifies identically.
func checksumFor(action Action, id string, seq uint64) uint32 {
	data := fmt.Sprintf("%s|%s|%d", action, id, seq)
	return crc32.ChecksumIEEE([]byte(data))
}

// lastEntry returns the final record of a trail file, or nil for an empty
// file. The trail stays small (one run's decisions), so a linear scan is
// fine.
func lastEntry(path string) (*Entry, error) {
	var last *Entry
	err := replayFile(path, func(e Entry) error {
		last = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}
