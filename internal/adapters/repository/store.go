package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

const (
	datasetFileName = "database.json"
	backupDirName   = "backups"
	backupPrefix    = "backup_"
	schemaVersion   = "1.0.0"

	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// DefaultRetention is how long backup snapshots are kept before pruning.
const DefaultRetention = 30 * 24 * time.Hour

// TransitionPolicy decides whether a shift status change is legal. The store
// itself is permissive; callers that want draft -> preview -> confirmed ->
// locked enforced install StrictTransitionPolicy.
type TransitionPolicy func(from, to entities.ShiftStatus) error

// StrictTransitionPolicy allows only forward moves through the intended
// progression (staying put is always legal).
func StrictTransitionPolicy(from, to entities.ShiftStatus) error {
	rank := map[entities.ShiftStatus]int{
		entities.ShiftStatusDraft:     0,
		entities.ShiftStatusPreview:   1,
		entities.ShiftStatusConfirmed: 2,
		entities.ShiftStatusLocked:    3,
	}
	fr, ok := rank[from]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", entities.ErrInvalidTransition, from)
	}
	tr, ok := rank[to]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", entities.ErrInvalidTransition, to)
	}
	if tr < fr {
		return fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, from, to)
	}
	return nil
}

// Store is the embedded JSON datastore. It owns one in-memory snapshot of
// the whole dataset, mirrored to a single file on disk, and serializes all
// access through one mutex: the load-or-wait decision, the mutation, and the
// save all happen under the same critical section, so an accessor always
// observes a consistent snapshot. Two separate OS processes writing the same
// file are not coordinated.
type Store struct {
	path      string
	backupDir string
	retention time.Duration
	logger    *logger.Logger

	mu         sync.Mutex
	data       *entities.Dataset
	lastLoaded time.Time

	now        func() time.Time
	newID      func(prefix string) string
	transition TransitionPolicy

	// readFile is swapped out by tests to count disk reads.
	readFile func(name string) ([]byte, error)
}

// Option customizes a Store.
type Option func(*Store)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator injects the record ID generator.
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithTransitionPolicy installs a shift status transition check.
func WithTransitionPolicy(p TransitionPolicy) Option {
	return func(s *Store) { s.transition = p }
}

// WithRetention overrides the backup retention window.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// New creates a store rooted at basePath. The dataset file and backup
// directory are created lazily on first access.
func New(basePath string, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		path:      filepath.Join(basePath, datasetFileName),
		backupDir: filepath.Join(basePath, backupDirName),
		retention: DefaultRetention,
		logger:    log,
		now:       time.Now,
		readFile:  os.ReadFile,
	}
	s.newID = func(prefix string) string {
		return prefix + "_" + uuid.NewString()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the dataset file location.
func (s *Store) Path() string { return s.path }

// ensureFresh guarantees the in-memory snapshot reflects the file on disk at
// least as of the start of the call. Callers must hold s.mu.
func (s *Store) ensureFresh() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is not an error: seed defaults and persist
			// immediately so a file exists after the first access.
			s.logger.Infow("dataset file not found, creating initial data", "path", s.path)
			s.data = defaultDataset(s.now())
			return s.persist()
		}
		return fmt.Errorf("%w: stat %s: %v", entities.ErrStorageUnavailable, s.path, err)
	}

	if s.data != nil && !info.ModTime().After(s.lastLoaded) {
		return nil
	}

	raw, err := s.readFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", entities.ErrStorageUnavailable, s.path, err)
	}
	var ds entities.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		// Corrupt content must surface, never be masked by reinitializing:
		// silently falling back to defaults would discard real data.
		return fmt.Errorf("%w: parse %s: %v", entities.ErrStorageUnavailable, s.path, err)
	}
	s.repair(&ds)
	s.data = &ds
	s.lastLoaded = info.ModTime()
	return nil
}

// persist writes the current snapshot: metadata stamp, backup snapshot with
// retention pruning, then an atomic rename over the real path. Callers must
// hold s.mu. Backup and retention problems are logged and absorbed; a failed
// authoritative write is fatal to the call.
func (s *Store) persist() error {
	now := s.now()
	s.data.Metadata.LastUpdatedAt = now
	s.data.Metadata.Version = schemaVersion

	if err := s.createBackup(now); err != nil {
		s.logger.Warnw("backup failed, continuing with save", "error", err)
	} else {
		t := now
		s.data.Metadata.LastBackupAt = &t
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// Rename is atomic within one filesystem: a concurrent reader sees
	// either the fully-previous or fully-new document, never a partial one.
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	// Track the file's own mtime so our next freshness check recognizes the
	// write as ours instead of reloading it.
	if info, err := os.Stat(s.path); err == nil {
		s.lastLoaded = info.ModTime()
	} else {
		s.lastLoaded = now
	}
	return nil
}

// createBackup writes a full timestamped snapshot and prunes expired ones.
func (s *Store) createBackup(now time.Time) error {
	if s.data == nil {
		return nil
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format("2006-01-02T15:04:05.000Z"))
	name := backupPrefix + stamp + ".json"
	if err := os.WriteFile(filepath.Join(s.backupDir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write backup %s: %w", name, err)
	}

	if _, err := s.pruneBackups(now); err != nil {
		s.logger.Warnw("backup retention cleanup failed", "error", err)
	}
	return nil
}

// pruneBackups removes backup files whose modification time is older than
// the retention window. Returns how many files were removed.
func (s *Store) pruneBackups(now time.Time) (int, error) {
	files, err := os.ReadDir(s.backupDir)
	if err != nil {
		return 0, fmt.Errorf("read backup directory: %w", err)
	}
	cutoff := now.Add(-s.retention)
	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasPrefix(f.Name(), backupPrefix) || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			s.logger.Warnw("stat backup failed", "file", f.Name(), "error", err)
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.backupDir, f.Name())); err != nil {
				s.logger.Warnw("delete old backup failed", "file", f.Name(), "error", err)
				continue
			}
			s.logger.Infow("deleted old backup", "file", f.Name())
			removed++
		}
	}
	return removed, nil
}

// PruneBackups runs retention immediately. Used by the backup CLI command.
func (s *Store) PruneBackups(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneBackups(s.now())
}

// repair heals structural gaps after a load. It only fills absent values and
// never overwrites data that is distinguishable as meaningful, so running it
// twice is the same as running it once.
func (s *Store) repair(ds *entities.Dataset) {
	now := s.now()
	if ds.Users == nil {
		s.logger.Warnw("missing required field, installing default", "field", "users")
		ds.Users = map[string]entities.User{}
	}
	if ds.Positions == nil {
		s.logger.Warnw("missing required field, installing default", "field", "positions")
		ds.Positions = []entities.Position{}
	}
	if ds.Shifts == nil {
		s.logger.Warnw("missing required field, installing default", "field", "shifts")
		ds.Shifts = map[string][]entities.Shift{}
	}
	if ds.ShiftRequests == nil {
		s.logger.Warnw("missing required field, installing default", "field", "shiftRequests")
		ds.ShiftRequests = map[string]map[string]entities.ShiftRequest{}
	}
	if ds.SharedNotices == nil {
		s.logger.Warnw("missing required field, installing default", "field", "sharedNotices")
		ds.SharedNotices = []entities.Notice{}
	}
	if ds.DailyMessages == nil {
		s.logger.Warnw("missing required field, installing default", "field", "dailyMessages")
		ds.DailyMessages = map[string][]entities.DailyMessage{}
	}
	if ds.SubstituteRequests == nil {
		s.logger.Warnw("missing required field, installing default", "field", "substituteRequests")
		ds.SubstituteRequests = []entities.SubstituteRequest{}
	}
	if ds.Settings.BreakRules == nil {
		ds.Settings.BreakRules = map[string]int{}
	}
	if ds.Metadata == (entities.Metadata{}) {
		s.logger.Warnw("missing required field, installing default", "field", "metadata")
		ds.Metadata = entities.Metadata{
			Version:       schemaVersion,
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
	}

	// Repair legacy or partial user records instead of rejecting the load.
	for key, u := range ds.Users {
		changed := false
		if u.LineUserID == "" {
			u.LineUserID = key
			changed = true
		}
		if u.JoinedAt.IsZero() {
			u.JoinedAt = now
			changed = true
		}
		if changed {
			ds.Users[key] = u
		}
	}
}

// defaultDataset is the seed used when no file exists yet.
func defaultDataset(now time.Time) *entities.Dataset {
	return &entities.Dataset{
		Users: map[string]entities.User{},
		Positions: []entities.Position{
			{ID: "pos_01", Name: "洗い場", Emoji: "🧽", SortOrder: 1},
			{ID: "pos_02", Name: "1レーン", Emoji: "🍽️", SortOrder: 2},
			{ID: "pos_03", Name: "2レーン", Emoji: "🍖", SortOrder: 3},
			{ID: "pos_04", Name: "ホール", Emoji: "🏃‍♀️", SortOrder: 4},
		},
		Shifts:             map[string][]entities.Shift{},
		ShiftRequests:      map[string]map[string]entities.ShiftRequest{},
		SharedNotices:      []entities.Notice{},
		DailyMessages:      map[string][]entities.DailyMessage{},
		SubstituteRequests: []entities.SubstituteRequest{},
		Settings: entities.SystemSettings{
			StoreName:        "○○○店",
			BusinessHours:    "09:00-22:00",
			AdminLineUserID:  "",
			ShiftDeadlineDay: 25,
			AutoBreakEnabled: true,
			BreakRules:       map[string]int{"6hours": 45, "8hours": 60},
			Timezone:         "Asia/Tokyo",
		},
		Metadata: entities.Metadata{
			Version:       schemaVersion,
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
	}
}

// today formats the store clock as a calendar date.
func (s *Store) today() string {
	return s.now().Format(dateLayout)
}

// copyUser returns a detached copy so callers never hold a reference into
// the live snapshot.
func copyUser(u entities.User) entities.User {
	if u.Preferences != nil {
		p := *u.Preferences
		u.Preferences = &p
	}
	if u.LeftAt != nil {
		t := *u.LeftAt
		u.LeftAt = &t
	}
	return u
}

// copyPosition detaches a position's staffing map.
func copyPosition(p entities.Position) entities.Position {
	if p.RequiredStaff != nil {
		m := make(map[string]int, len(p.RequiredStaff))
		for k, v := range p.RequiredStaff {
			m[k] = v
		}
		p.RequiredStaff = m
	}
	return p
}

// copySettings detaches the settings singleton.
func copySettings(in entities.SystemSettings) entities.SystemSettings {
	out := in
	if in.BreakRules != nil {
		out.BreakRules = make(map[string]int, len(in.BreakRules))
		for k, v := range in.BreakRules {
			out.BreakRules[k] = v
		}
	}
	if in.SpecialEvents != nil {
		out.SpecialEvents = append([]entities.SpecialEvent(nil), in.SpecialEvents...)
	}
	if in.DynamicHolidays != nil {
		out.DynamicHolidays = make(map[string]entities.HolidayOverride, len(in.DynamicHolidays))
		for k, v := range in.DynamicHolidays {
			out.DynamicHolidays[k] = v
		}
	}
	return out
}
