package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftbot/core/internal/domain/entities"
	"github.com/shiftbot/core/internal/infrastructure/logger"
)

var testNow = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

// newTestStore builds a store in a temp directory with a fixed clock and a
// sequential ID generator.
func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	seq := 0
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func(prefix string) string {
			seq++
			return fmt.Sprintf("%s_%04d", prefix, seq)
		}),
	}
	return New(dir, logger.NewNop(), append(base, opts...)...), dir
}

func TestSeedsDefaultsWhenFileMissing(t *testing.T) {
	store, dir := newTestStore(t)

	positions, err := store.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 4)

	names := make([]string, 0, 4)
	for i, p := range positions {
		assert.Equal(t, i+1, p.SortOrder)
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"洗い場", "1レーン", "2レーン", "ホール"}, names)

	// First access must leave a file behind.
	_, err = os.Stat(filepath.Join(dir, datasetFileName))
	require.NoError(t, err)

	settings, err := store.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "09:00-22:00", settings.BusinessHours)
	assert.Equal(t, 25, settings.ShiftDeadlineDay)
	assert.Equal(t, map[string]int{"6hours": 45, "8hours": 60}, settings.BreakRules)
}

func TestSaveShiftGeneratesIDAndCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	shift, err := store.SaveShift(ctx, "2025-04-10", entities.ShiftDraft{
		UserID:     "U1",
		PositionID: "pos_01",
		StartTime:  "09:00",
		EndTime:    "17:00",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(shift.ID, "shift_"))
	assert.Equal(t, testNow, shift.CreatedAt)
	assert.Equal(t, entities.ShiftStatusDraft, shift.Status)

	shifts, err := store.GetShifts(ctx, "2025-04-10")
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, shift.ID, shifts[0].ID)
	assert.Equal(t, 1, store.data.Metadata.TotalShifts)
}

func TestSaveShiftRejectsBadDate(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.SaveShift(context.Background(), "2025/04/10", entities.ShiftDraft{UserID: "U1"})
	require.ErrorIs(t, err, entities.ErrInvalidDate)
}

func TestSaveUserCreatesThenUpdates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	alice := "Alice"
	u, err := store.SaveUser(ctx, "U1", entities.UserPatch{DisplayName: &alice})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.DisplayName)
	assert.Equal(t, entities.UserRoleStaff, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, 1, store.data.Metadata.TotalUsers)

	renamed := "Alice N."
	u, err = store.SaveUser(ctx, "U1", entities.UserPatch{DisplayName: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Alice N.", u.DisplayName)
	assert.Equal(t, 1, store.data.Metadata.TotalUsers, "updating must not bump the counter")
}

func TestDeactivateUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	name := "Bob"
	_, err := store.SaveUser(ctx, "U2", entities.UserPatch{DisplayName: &name})
	require.NoError(t, err)

	require.NoError(t, store.DeactivateUser(ctx, "U2"))
	u, err := store.GetUser(ctx, "U2")
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	require.NotNil(t, u.LeftAt)
	assert.Equal(t, testNow, *u.LeftAt)

	// Unknown IDs are a no-op, not an error.
	require.NoError(t, store.DeactivateUser(ctx, "nobody"))

	active, err := store.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestGetUserNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, entities.ErrUserNotFound)
}

func TestActiveNoticesDateWindow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Started in the past, no end: included.
	_, err := store.SaveNotice(ctx, entities.NoticeDraft{
		Title:     "食洗機修理中",
		Content:   "手洗いでお願いします",
		Category:  entities.NoticeCategoryEquipment,
		Priority:  entities.NoticePriorityHigh,
		StartDate: "2025-04-01",
	})
	require.NoError(t, err)

	// Starts in the future: excluded.
	_, err = store.SaveNotice(ctx, entities.NoticeDraft{
		Title:     "GW営業時間",
		Content:   "変更あり",
		Category:  entities.NoticeCategoryOperation,
		Priority:  entities.NoticePriorityMedium,
		StartDate: "2025-05-01",
	})
	require.NoError(t, err)

	// Already ended: excluded.
	_, err = store.SaveNotice(ctx, entities.NoticeDraft{
		Title:     "終了済み",
		Content:   "過去の告知",
		Category:  entities.NoticeCategoryOther,
		Priority:  entities.NoticePriorityLow,
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
	})
	require.NoError(t, err)

	active, err := store.GetActiveNotices(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "食洗機修理中", active[0].Title)
}

func TestDeleteShift(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	shift, err := store.SaveShift(ctx, "2025-04-10", entities.ShiftDraft{
		UserID: "U1", PositionID: "pos_01", StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	removed, err := store.DeleteShift(ctx, "2025-04-10", "shift_nope")
	require.NoError(t, err)
	assert.False(t, removed)
	shifts, err := store.GetShifts(ctx, "2025-04-10")
	require.NoError(t, err)
	assert.Len(t, shifts, 1, "miss must leave the list unchanged")

	removed, err = store.DeleteShift(ctx, "2025-04-10", shift.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	shifts, err = store.GetShifts(ctx, "2025-04-10")
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestUpdateShiftTransitionPolicy(t *testing.T) {
	store, _ := newTestStore(t, WithTransitionPolicy(StrictTransitionPolicy))
	ctx := context.Background()

	shift, err := store.SaveShift(ctx, "2025-04-10", entities.ShiftDraft{
		UserID: "U1", PositionID: "pos_01", StartTime: "09:00", EndTime: "17:00",
		Status: entities.ShiftStatusConfirmed,
	})
	require.NoError(t, err)

	back := entities.ShiftStatusDraft
	_, err = store.UpdateShift(ctx, "2025-04-10", shift.ID, entities.ShiftPatch{Status: &back})
	require.ErrorIs(t, err, entities.ErrInvalidTransition)

	forward := entities.ShiftStatusLocked
	updated, err := store.UpdateShift(ctx, "2025-04-10", shift.ID, entities.ShiftPatch{Status: &forward})
	require.NoError(t, err)
	assert.Equal(t, entities.ShiftStatusLocked, updated.Status)
	require.NotNil(t, updated.UpdatedAt)
}

func TestStrictTransitionPolicy(t *testing.T) {
	cases := []struct {
		from, to entities.ShiftStatus
		ok       bool
	}{
		{entities.ShiftStatusDraft, entities.ShiftStatusPreview, true},
		{entities.ShiftStatusDraft, entities.ShiftStatusLocked, true},
		{entities.ShiftStatusConfirmed, entities.ShiftStatusConfirmed, true},
		{entities.ShiftStatusConfirmed, entities.ShiftStatusPreview, false},
		{entities.ShiftStatusLocked, entities.ShiftStatusDraft, false},
		{"bogus", entities.ShiftStatusDraft, false},
	}
	for _, tc := range cases {
		err := StrictTransitionPolicy(tc.from, tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.ErrorIs(t, err, entities.ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestCorruptFileSurfacesStorageError(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, datasetFileName), []byte("{not json"), 0o644))

	_, err := store.GetShifts(context.Background(), "2025-04-10")
	require.ErrorIs(t, err, entities.ErrStorageUnavailable)

	// The corrupt file must still be there, not silently reinitialized.
	raw, err := os.ReadFile(filepath.Join(dir, datasetFileName))
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
}

func TestRepairFillsGapsIdempotently(t *testing.T) {
	store, _ := newTestStore(t)

	ds := entities.Dataset{
		Users: map[string]entities.User{
			"U9": {DisplayName: "Legacy"},
		},
	}
	store.repair(&ds)

	require.NotNil(t, ds.Shifts)
	require.NotNil(t, ds.ShiftRequests)
	require.NotNil(t, ds.DailyMessages)
	assert.Equal(t, schemaVersion, ds.Metadata.Version)
	assert.Equal(t, "U9", ds.Users["U9"].LineUserID, "key must backfill lineUserId")
	assert.Equal(t, testNow, ds.Users["U9"].JoinedAt)

	before := ds
	raw, err := json.Marshal(before)
	require.NoError(t, err)
	store.repair(&ds)
	again, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(string(raw), string(again)), "second repair must change nothing")
}

func TestPersistedRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	name := "Alice"
	_, err := store.SaveUser(ctx, "U1", entities.UserPatch{DisplayName: &name})
	require.NoError(t, err)
	_, err = store.SaveShift(ctx, "2025-04-10", entities.ShiftDraft{
		UserID: "U1", PositionID: "pos_02", StartTime: "10:00", EndTime: "15:00", BreakMinutes: 45,
	})
	require.NoError(t, err)

	// A second store over the same directory sees the identical document.
	reread := New(dir, logger.NewNop(), WithClock(func() time.Time { return testNow }))
	shifts, err := reread.GetShifts(ctx, "2025-04-10")
	require.NoError(t, err)
	require.Len(t, shifts, 1)

	want := store.data
	got := reread.data
	assert.Empty(t, cmp.Diff(want, got))
}

func TestFreshnessSkipsRedundantReads(t *testing.T) {
	_, dir := newTestStore(t)

	// Seed the file through a throwaway store.
	seed := New(dir, logger.NewNop())
	_, err := seed.GetPositions(context.Background())
	require.NoError(t, err)

	store := New(dir, logger.NewNop())
	reads := 0
	store.readFile = func(name string) ([]byte, error) {
		reads++
		return os.ReadFile(name)
	}

	for i := 0; i < 5; i++ {
		_, err := store.GetPositions(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, reads, "unchanged file must be read once")
}

func TestReloadsWhenFileChangesUnderneath(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetPositions(ctx)
	require.NoError(t, err)

	// Another writer replaces the file with a newer mtime.
	other := New(dir, logger.NewNop())
	name := "Carol"
	_, err = other.SaveUser(ctx, "U7", entities.UserPatch{DisplayName: &name})
	require.NoError(t, err)
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(dir, datasetFileName), future, future))

	u, err := store.GetUser(ctx, "U7")
	require.NoError(t, err)
	assert.Equal(t, "Carol", u.DisplayName)
}

func TestBackupWrittenOnSave(t *testing.T) {
	store, dir := newTestStore(t)

	name := "Alice"
	_, err := store.SaveUser(context.Background(), "U1", entities.UserPatch{DisplayName: &name})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, backupDirName))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), backupPrefix))
		assert.True(t, strings.HasSuffix(e.Name(), ".json"))
		assert.NotContains(t, e.Name(), ":")
	}
	require.NotNil(t, store.data.Metadata.LastBackupAt)
}

func TestBackupRetentionPrunesOnlyExpired(t *testing.T) {
	store, dir := newTestStore(t, WithClock(time.Now))
	backups := filepath.Join(dir, backupDirName)
	require.NoError(t, os.MkdirAll(backups, 0o755))

	oldFile := filepath.Join(backups, "backup_2025-01-01T00-00-00-000Z.json")
	newFile := filepath.Join(backups, "backup_2025-04-14T00-00-00-000Z.json")
	require.NoError(t, os.WriteFile(oldFile, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("{}"), 0o644))
	stale := time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))

	// Unrelated files are never touched.
	keep := filepath.Join(backups, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0o644))
	require.NoError(t, os.Chtimes(keep, stale, stale))

	removed, err := store.PruneBackups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
	assert.FileExists(t, keep)
}

func TestInterruptedWriteLeavesRealFileIntact(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetPositions(ctx)
	require.NoError(t, err)
	path := filepath.Join(dir, datasetFileName)
	intact, err := os.ReadFile(path)
	require.NoError(t, err)

	// A crash between temp write and rename leaves a stray .tmp behind. The
	// real path must be untouched and later loads unaffected.
	require.NoError(t, os.WriteFile(path+".tmp", []byte(`{"users":`), 0o644))

	fresh := New(dir, logger.NewNop(), WithClock(func() time.Time { return testNow }))
	positions, err := fresh.GetPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, positions, 4)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, intact, after)
}

func TestSettingsPatchMergesPerField(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	hours := "10:00-23:00"
	updated, err := store.UpdateSettings(ctx, entities.SettingsPatch{BusinessHours: &hours})
	require.NoError(t, err)
	assert.Equal(t, "10:00-23:00", updated.BusinessHours)
	assert.Equal(t, "○○○店", updated.StoreName, "untouched fields must survive")
	assert.Equal(t, 25, updated.ShiftDeadlineDay)

	day := 20
	updated, err = store.UpdateSettings(ctx, entities.SettingsPatch{ShiftDeadlineDay: &day})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.ShiftDeadlineDay)
	assert.Equal(t, "10:00-23:00", updated.BusinessHours)
}

func TestShiftRequestRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveShiftRequest(ctx, "2025-05", "U1", entities.ShiftRequestInput{
		RequestText: "平日9時から17時",
		ParsedData: entities.ParsedShiftData{
			Weekdays: &entities.DayPreference{Available: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.ShiftRequestStatusSubmitted, saved.Status)
	assert.Equal(t, testNow, saved.SubmittedAt)

	reqs, err := store.GetShiftRequests(ctx, "2025-05")
	require.NoError(t, err)
	require.Contains(t, reqs, "U1")
	assert.Equal(t, "平日9時から17時", reqs["U1"].RequestText)
}

func TestStatisticsDerivedFromSnapshot(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	name := "Alice"
	_, err := store.SaveUser(ctx, "U1", entities.UserPatch{DisplayName: &name})
	require.NoError(t, err)
	_, err = store.SaveShift(ctx, testNow.Format(dateLayout), entities.ShiftDraft{
		UserID: "U1", PositionID: "pos_01", StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 1, stats.TodayShifts)
}

func TestConcurrentWritersDoNotRace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			_, err := store.SaveShift(ctx, "2025-04-10", entities.ShiftDraft{
				UserID:     fmt.Sprintf("U%d", n),
				PositionID: "pos_01",
				StartTime:  "09:00",
				EndTime:    "17:00",
			})
			done <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}

	shifts, err := store.GetShifts(ctx, "2025-04-10")
	require.NoError(t, err)
	assert.Len(t, shifts, 10)
	assert.Equal(t, 10, store.data.Metadata.TotalShifts)
}

func TestEnrichShiftsAttachesReferences(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	name := "Alice"
	_, err := store.SaveUser(ctx, "U1", entities.UserPatch{DisplayName: &name})
	require.NoError(t, err)
	_, err = store.SaveShift(ctx, "2025-04-10", entities.ShiftDraft{
		UserID: "U1", PositionID: "pos_02", StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)
	// Dangling references survive enrichment as nil.
	_, err = store.SaveShift(ctx, "2025-04-10", entities.ShiftDraft{
		UserID: "ghost", PositionID: "pos_99", StartTime: "09:00", EndTime: "17:00",
	})
	require.NoError(t, err)

	shifts, err := store.GetShifts(ctx, "2025-04-10")
	require.NoError(t, err)
	enriched, err := store.EnrichShifts(ctx, shifts)
	require.NoError(t, err)
	require.Len(t, enriched, 2)

	require.NotNil(t, enriched[0].User)
	assert.Equal(t, "Alice", enriched[0].User.DisplayName)
	require.NotNil(t, enriched[0].Position)
	assert.Equal(t, "1レーン", enriched[0].Position.Name)

	assert.Nil(t, enriched[1].User)
	assert.Nil(t, enriched[1].Position)
}

func TestHealthCheckCreatesAndValidates(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.HealthCheck(context.Background()))
	assert.FileExists(t, filepath.Join(dir, datasetFileName))

	if !errors.Is(store.HealthCheck(context.Background()), nil) {
		t.Fatal("repeated health check must stay healthy")
	}
}
