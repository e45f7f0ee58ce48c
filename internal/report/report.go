package report

// ============================================================================
// Responsibilities:
// 1. Serialize run snapshots to JSON files for resumable runs
// 2. Use atomic writes (temp file + rename) to prevent corruption
// 3. Validate schema version compatibility on load
// 4. Persist the final run summary next to the audit log
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	ErrCorruptedSnapshot   = errors.New("snapshot file is corrupted")
	ErrIncompatibleVersion = errors.New("snapshot schema version is incompatible")
	ErrSummaryNotFound     = errors.New("run summary file not found")
)

// currentSchemaVer is bumped whenever SnapshotData changes incompatibly.
const currentSchemaVer = 1

// ============================================================================
// Manager
// ============================================================================

// Manager persists run snapshots and summaries under a single directory.
type Manager struct {
	snapshotPath string
	summaryPath  string
	mu           sync.Mutex
}

// NewManager creates a report manager rooted at dir. The directory is
// created on demand by the write methods.
func NewManager(dir string) *Manager {
	return &Manager{
		snapshotPath: filepath.Join(dir, "snapshot.json"),
		summaryPath:  filepath.Join(dir, "run_summary.json"),
	}
}

// WriteSnapshot atomically writes a run snapshot.
//
// Atomic write flow:
// 1. Write to a temporary file (.tmp)
// 2. Replace the target file with os.Rename
func (m *Manager) WriteSnapshot(data types.SnapshotData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data.SchemaVer = currentSchemaVer
	return m.writeAtomic(m.snapshotPath, data)
}

// LoadSnapshot loads the latest run snapshot.
//
// Behavior:
//   - If the file does not exist, returns an empty SnapshotData (fresh run)
//   - Validates schema version compatibility
//   - Detects corrupted snapshot files
func (m *Manager) LoadSnapshot() (types.SnapshotData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var data types.SnapshotData

	jsonBytes, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Fresh run, no snapshot yet.
			return types.SnapshotData{SchemaVer: currentSchemaVer}, nil
		}
		return data, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return data, fmt.Errorf("%w: %v", ErrCorruptedSnapshot, err)
	}

	if data.SchemaVer != currentSchemaVer {
		return data, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, data.SchemaVer, currentSchemaVer)
	}

	return data, nil
}

// WriteSnapshotWithBackup writes a snapshot, keeping timestamped backups of
// the previous one. At most keepBackups backup files are retained.
func (m *Manager) WriteSnapshotWithBackup(data types.SnapshotData, keepBackups int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshotExists() {
		backupPath := fmt.Sprintf("%s.%s", m.snapshotPath, time.Now().Format("20060102_150405"))
		if err := os.Rename(m.snapshotPath, backupPath); err != nil {
			return fmt.Errorf("failed to backup old snapshot: %w", err)
		}
		if err := m.pruneBackups(keepBackups); err != nil {
			return err
		}
	}

	data.SchemaVer = currentSchemaVer
	return m.writeAtomic(m.snapshotPath, data)
}

// WriteSummary atomically persists the final run summary.
func (m *Manager) WriteSummary(summary types.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writeAtomic(m.summaryPath, summary)
}

// LoadSummary loads a previously written run summary.
func (m *Manager) LoadSummary() (types.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var summary types.RunSummary

	jsonBytes, err := os.ReadFile(m.summaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return summary, ErrSummaryNotFound
		}
		return summary, fmt.Errorf("failed to read run summary: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, &summary); err != nil {
		return summary, fmt.Errorf("failed to parse run summary: %w", err)
	}

	return summary, nil
}

// SnapshotExists reports whether a snapshot file is present on disk.
func (m *Manager) SnapshotExists() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotExists()
}

// SnapshotPath returns the snapshot file path (for tests and debugging).
func (m *Manager) SnapshotPath() string {
	return m.snapshotPath
}

// SummaryPath returns the run summary file path.
func (m *Manager) SummaryPath() string {
	return m.summaryPath
}

// ============================================================================
// Internal helpers
// ============================================================================

func (m *Manager) snapshotExists() bool {
	_, err := os.Stat(m.snapshotPath)
	return err == nil
}

// writeAtomic marshals v with indentation and writes it via temp+rename.
// Caller holds m.mu.
func (m *Manager) writeAtomic(path string, v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}

	return nil
}

// pruneBackups deletes the oldest snapshot backups beyond keep. Backup
// filenames sort chronologically because of the timestamp suffix.
func (m *Manager) pruneBackups(keep int) error {
	if keep < 0 {
		return nil
	}

	matches, err := filepath.Glob(m.snapshotPath + ".2*")
	if err != nil {
		return fmt.Errorf("failed to list snapshot backups: %w", err)
	}
	if len(matches) <= keep {
		return nil
	}

	sort.Strings(matches)
	for _, old := range matches[:len(matches)-keep] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("failed to prune snapshot backup: %w", err)
		}
	}
	return nil
}
