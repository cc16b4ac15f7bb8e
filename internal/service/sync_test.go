package service

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"TraffixSync/internal/cache"
	"TraffixSync/internal/config"
	"TraffixSync/internal/model"
)

var syncNow = time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

func releaseAt(name string, issueID int, date time.Time) model.Event {
	return &model.EventGameRelease{
		BaseEvent: model.BaseEvent{
			Name:          name,
			GithubIssueID: issueID,
			Type:          model.KindGameRelease,
			Date:          date,
		},
		Size:   10,
		Source: "http://x",
		Image:  "http://y.png",
	}
}

type syncFixture struct {
	svc     *SyncService
	tracker *fakeTracker
	store   *cache.MemoryStore
	cfg     *config.Config
	ds      model.DatasetSpec
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	cfg := testConfig(t.TempDir())
	tracker := newFakeTracker()
	store := cache.NewMemoryStore()
	svc := NewSyncService(tracker, store, cfg, quietLogger())
	svc.now = func() time.Time { return syncNow }
	ds, ok := cfg.DatasetFor(model.KindGameRelease)
	require.True(t, ok)
	return &syncFixture{svc: svc, tracker: tracker, store: store, cfg: cfg, ds: ds}
}

func (f *syncFixture) filePath() string {
	return path.Join(f.cfg.Datastore.Dir, f.ds.File)
}

func (f *syncFixture) publish(t *testing.T, sha string, events []model.Event) {
	t.Helper()
	data, err := yaml.Marshal(events)
	require.NoError(t, err)
	f.tracker.shas[f.filePath()] = sha
	f.tracker.files[f.filePath()] = data
}

func TestSyncPopulatesCache(t *testing.T) {
	f := newSyncFixture(t)
	f.publish(t, "abc123", []model.Event{
		releaseAt("Past", 1, syncNow.AddDate(0, 0, -1)),
		releaseAt("Future", 2, syncNow.AddDate(0, 0, 1)),
	})

	ctx := context.Background()
	require.NoError(t, f.svc.SyncDataset(ctx, f.ds))

	raw, err := f.store.Get(ctx, f.ds.CacheKey())
	require.NoError(t, err)
	events, err := model.DecodeJSONEvents(f.ds.Kind, raw)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	sha, err := f.store.Get(ctx, f.ds.CacheKey()+"_sha")
	require.NoError(t, err)
	assert.JSONEq(t, `"abc123"`, string(sha))

	length, err := f.store.Get(ctx, f.ds.CacheKey()+"_len")
	require.NoError(t, err)
	assert.Equal(t, "2", string(length))

	top, err := f.store.Get(ctx, f.ds.TopKey())
	require.NoError(t, err)
	topEvents, err := model.DecodeJSONEvents(f.ds.Kind, top)
	require.NoError(t, err)
	require.Len(t, topEvents, 1)
	assert.Equal(t, "Future", topEvents[0].Base().Name)
}

func TestSyncUnchangedFingerprintIsNoOp(t *testing.T) {
	f := newSyncFixture(t)
	f.publish(t, "abc123", []model.Event{releaseAt("A", 1, syncNow)})

	ctx := context.Background()
	require.NoError(t, f.svc.SyncDataset(ctx, f.ds))
	firstRawCalls := f.tracker.rawCalls
	before, err := f.store.Get(ctx, f.ds.CacheKey())
	require.NoError(t, err)

	// 指纹没变：不重拉内容，缓存原样
	require.NoError(t, f.svc.SyncDataset(ctx, f.ds))
	assert.Equal(t, firstRawCalls, f.tracker.rawCalls)
	after, err := f.store.Get(ctx, f.ds.CacheKey())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSyncChangedFingerprintRefreshes(t *testing.T) {
	f := newSyncFixture(t)
	f.publish(t, "abc123", []model.Event{releaseAt("A", 1, syncNow)})

	ctx := context.Background()
	require.NoError(t, f.svc.SyncDataset(ctx, f.ds))

	f.publish(t, "def456", []model.Event{
		releaseAt("A", 1, syncNow),
		releaseAt("B", 2, syncNow.AddDate(0, 0, 3)),
	})
	require.NoError(t, f.svc.SyncDataset(ctx, f.ds))

	length, err := f.store.Get(ctx, f.ds.CacheKey()+"_len")
	require.NoError(t, err)
	assert.Equal(t, "2", string(length))
}

func TestSyncMissingFingerprintSkips(t *testing.T) {
	f := newSyncFixture(t)

	// 文件从未提交过：不报错、不写缓存
	require.NoError(t, f.svc.SyncDataset(context.Background(), f.ds))
	assert.Zero(t, f.store.Len())
}

func TestSyncFetchFailureLeavesCacheUntouched(t *testing.T) {
	f := newSyncFixture(t)
	f.publish(t, "abc123", []model.Event{releaseAt("A", 1, syncNow)})

	ctx := context.Background()
	require.NoError(t, f.svc.SyncDataset(ctx, f.ds))
	before, err := f.store.Get(ctx, f.ds.CacheKey())
	require.NoError(t, err)

	// 指纹变了但内容拉不下来：报错，旧缓存保持原样
	f.tracker.shas[f.filePath()] = "broken"
	delete(f.tracker.files, f.filePath())
	assert.Error(t, f.svc.SyncDataset(ctx, f.ds))

	after, err := f.store.Get(ctx, f.ds.CacheKey())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSyncActivityPublishesIssues(t *testing.T) {
	f := newSyncFixture(t)
	f.tracker.issuesByLabel[""] = []model.RawIssue{
		{ID: 1, Number: 10, Title: "[release]: Halo", User: "alice", CreatedAt: syncNow},
	}

	require.NoError(t, f.svc.SyncActivity(context.Background()))

	raw, err := f.store.Get(context.Background(), ActivityKey)
	require.NoError(t, err)
	var issues []model.RawIssue
	require.NoError(t, json.Unmarshal(raw, &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, "alice", issues[0].User)
}

func TestTopUpcoming(t *testing.T) {
	yesterday := releaseAt("Yesterday", 1, syncNow.AddDate(0, 0, -1))
	today := releaseAt("Today", 2, syncNow)
	tomorrow := releaseAt("Tomorrow", 3, syncNow.AddDate(0, 0, 1))
	inTwoDays := releaseAt("InTwoDays", 4, syncNow.AddDate(0, 0, 2))

	top := topUpcoming([]model.Event{inTwoDays, yesterday, tomorrow, today}, syncNow, 50)

	require.Len(t, top, 3)
	assert.Equal(t, "Today", top[0].Base().Name)
	assert.Equal(t, "Tomorrow", top[1].Base().Name)
	assert.Equal(t, "InTwoDays", top[2].Base().Name)
}

func TestTopUpcomingTruncates(t *testing.T) {
	var events []model.Event
	for i := 0; i < 60; i++ {
		events = append(events, releaseAt("E", i+1, syncNow.AddDate(0, 0, i)))
	}

	top := topUpcoming(events, syncNow, 50)
	assert.Len(t, top, 50)
}
