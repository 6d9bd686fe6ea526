// Package state persists a JSON snapshot of every fetch run for audit and
// "last run" display, with rotation. Storage sits behind afero so the backend
// can be the local disk in production and an in-memory filesystem in tests.
// Storage failures never propagate: every method degrades to its empty value
// and logs a warning, because a broken snapshot store must not break a fetch.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/oakline/sam-radar/internal/models"
)

const filePrefix = "sam_state_"

// Manager owns one snapshot directory on one storage backend.
type Manager struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(fs afero.Fs, dir string, logger *slog.Logger) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{fs: fs, dir: dir, logger: logger, now: time.Now}
}

// Save writes one run snapshot and returns its path, or "" on storage
// failure. The filename embeds a microsecond timestamp so concurrent-second
// runs never collide.
func (m *Manager) Save(params, summary map[string]any, failedCodes []string) string {
	if failedCodes == nil {
		failedCodes = []string{}
	}
	now := m.now().UTC()
	snapshot := models.RunSnapshot{
		Timestamp:   now,
		Params:      params,
		Summary:     summary,
		FailedCodes: failedCodes,
	}

	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		m.logger.Warn("state directory unavailable", "dir", m.dir, "error", err)
		return ""
	}

	name := fmt.Sprintf("%s%s-%06d.json", filePrefix,
		now.Format("2006-01-02_15-04-05"), now.Nanosecond()/1000)
	path := filepath.Join(m.dir, name)

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		m.logger.Warn("state snapshot encode failed", "error", err)
		return ""
	}
	if err := afero.WriteFile(m.fs, path, payload, 0o644); err != nil {
		m.logger.Warn("state snapshot write failed", "path", path, "error", err)
		return ""
	}
	return path
}

// StateFiles lists snapshot paths, newest first by modification time.
func (m *Manager) StateFiles() []string {
	infos := m.stateFileInfos()
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		paths = append(paths, filepath.Join(m.dir, info.Name()))
	}
	return paths
}

// LoadLatest returns the most recently modified snapshot, or nil when no
// state exists.
func (m *Manager) LoadLatest() *models.RunSnapshot {
	files := m.StateFiles()
	if len(files) == 0 {
		return nil
	}
	return m.loadPath(files[0])
}

// Load returns a snapshot by filename, or nil when absent or corrupt.
func (m *Manager) Load(filename string) *models.RunSnapshot {
	return m.loadPath(filepath.Join(m.dir, filepath.Base(filename)))
}

// Rotate deletes all but the keep most recent snapshots and returns how many
// were removed.
func (m *Manager) Rotate(keep int) int {
	if keep < 0 {
		keep = 0
	}
	files := m.StateFiles()
	if len(files) <= keep {
		return 0
	}
	deleted := 0
	for _, path := range files[keep:] {
		if err := m.fs.Remove(path); err != nil {
			m.logger.Warn("state rotation delete failed", "path", path, "error", err)
			continue
		}
		deleted++
	}
	return deleted
}

// Clear deletes every snapshot and returns the count removed.
func (m *Manager) Clear() int {
	return m.Rotate(0)
}

// HasState reports whether any snapshot exists.
func (m *Manager) HasState() bool {
	return len(m.stateFileInfos()) > 0
}

// Count returns the number of stored snapshots.
func (m *Manager) Count() int {
	return len(m.stateFileInfos())
}

// All returns every snapshot annotated with filename, modification time and
// size, newest first.
func (m *Manager) All() []models.SnapshotInfo {
	infos := m.stateFileInfos()
	out := make([]models.SnapshotInfo, 0, len(infos))
	for _, info := range infos {
		snapshot := m.loadPath(filepath.Join(m.dir, info.Name()))
		if snapshot == nil {
			continue
		}
		out = append(out, models.SnapshotInfo{
			RunSnapshot: *snapshot,
			Filename:    info.Name(),
			ModTime:     info.ModTime(),
			Size:        info.Size(),
		})
	}
	return out
}

// LatestSummary projects the newest snapshot's summary; empty map when no
// state exists.
func (m *Manager) LatestSummary() map[string]any {
	if snapshot := m.LoadLatest(); snapshot != nil && snapshot.Summary != nil {
		return snapshot.Summary
	}
	return map[string]any{}
}

// LatestTimestamp projects the newest snapshot's run time; nil when no state
// exists.
func (m *Manager) LatestTimestamp() *time.Time {
	if snapshot := m.LoadLatest(); snapshot != nil {
		t := snapshot.Timestamp
		return &t
	}
	return nil
}

// LatestFailedCodes projects the newest snapshot's failed classification
// codes; empty when no state exists.
func (m *Manager) LatestFailedCodes() []string {
	if snapshot := m.LoadLatest(); snapshot != nil && snapshot.FailedCodes != nil {
		return snapshot.FailedCodes
	}
	return []string{}
}

func (m *Manager) loadPath(path string) *models.RunSnapshot {
	raw, err := afero.ReadFile(m.fs, path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("state snapshot read failed", "path", path, "error", err)
		}
		return nil
	}
	var snapshot models.RunSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		m.logger.Warn("state snapshot corrupt", "path", path, "error", err)
		return nil
	}
	return &snapshot
}

func (m *Manager) stateFileInfos() []os.FileInfo {
	infos, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("state directory listing failed", "dir", m.dir, "error", err)
		}
		return nil
	}
	filtered := infos[:0]
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".json") {
			filtered = append(filtered, info)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].ModTime().Equal(filtered[j].ModTime()) {
			// Timestamped names sort chronologically; break mod-time ties
			// so rotation order stays deterministic on coarse filesystems.
			return filtered[i].Name() > filtered[j].Name()
		}
		return filtered[i].ModTime().After(filtered[j].ModTime())
	})
	return filtered
}
