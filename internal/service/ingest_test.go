package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TraffixSync/internal/model"
	"TraffixSync/internal/repository"
)

const haloBody = "### Name\nHalo Infinite\n### Date\n01/01/2030\n### Size\n80\n### Source\nhttp://x\n### Image\nhttp://y.png"

func releaseIssue(id int64, number int, body string, rockets int) model.RawIssue {
	return model.RawIssue{
		ID:        id,
		Number:    number,
		Title:     "[release]: some game",
		Body:      body,
		Reactions: map[string]int{"rocket": rockets},
	}
}

func newIngestFixture(t *testing.T) (*IngestService, *fakeTracker, *repository.Datastore, model.DatasetSpec) {
	t.Helper()
	cfg := testConfig(t.TempDir())
	tracker := newFakeTracker()
	store := repository.NewDatastore(cfg.Datastore.Dir, quietLogger())
	svc := NewIngestService(tracker, store, cfg, quietLogger())
	ds, ok := cfg.DatasetFor(model.KindGameRelease)
	require.True(t, ok)
	return svc, tracker, store, ds
}

func TestIngestEndToEnd(t *testing.T) {
	svc, tracker, store, ds := newIngestFixture(t)
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{releaseIssue(1, 42, haloBody, 2)}

	report, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.Appended)
	assert.Zero(t, report.Gated)
	assert.Zero(t, report.Invalid)

	events := store.Load(ds)
	require.Len(t, events, 1)
	release := events[0].(*model.EventGameRelease)
	assert.Equal(t, "Halo Infinite", release.Name)
	assert.Equal(t, 42, release.GithubIssueID)
	assert.Equal(t, model.KindGameRelease, release.Type)

	// 恰好一次评论 + 一次关闭，都指向源 issue 编号
	assert.Equal(t, []int{42}, tracker.comments)
	assert.Equal(t, []int{42}, tracker.closed)
}

func TestIngestIsIdempotent(t *testing.T) {
	svc, tracker, store, ds := newIngestFixture(t)
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{releaseIssue(1, 42, haloBody, 2)}

	_, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	// 同一批 issue 第二次跑：零追加、零新回执
	report, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	assert.Zero(t, report.Appended)
	assert.Equal(t, 1, report.Duplicates)
	assert.Len(t, store.Load(ds), 1)
	assert.Len(t, tracker.comments, 1)
	assert.Len(t, tracker.closed, 1)
}

func TestIngestSkipsBadIssuesAndContinues(t *testing.T) {
	svc, tracker, store, ds := newIngestFixture(t)
	badDate := "### Name\nBroken\n### Date\nnot-a-date\n### Size\n10\n### Source\nhttp://x\n### Image\nhttp://y.png"
	noName := "### Date\n01/01/2030\n### Size\n10\n### Source\nhttp://x\n### Image\nhttp://y.png"
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{
		releaseIssue(1, 10, badDate, 1),
		releaseIssue(2, 11, noName, 1),
		releaseIssue(3, 12, haloBody, 1),
	}

	report, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, 1, report.Appended)
	require.Len(t, store.Load(ds), 1)
	assert.Equal(t, []int{12}, tracker.closed)
}

func TestIngestGateRejections(t *testing.T) {
	svc, tracker, store, ds := newIngestFixture(t)
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{
		releaseIssue(1, 10, haloBody, 0),          // 票数不足
		releaseIssue(2, 11, haloBody, 1),          // 放行
		{ID: 2, Number: 11, Body: haloBody,        // 批内重复 ID
			Reactions: map[string]int{"rocket": 1}},
	}

	report, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Gated)
	assert.Equal(t, 1, report.Appended)
	assert.Len(t, store.Load(ds), 1)
}

func TestIngestSizePolicyBoundary(t *testing.T) {
	svc, tracker, store, ds := newIngestFixture(t)
	atCeiling := "### Name\nHuge\n### Date\n01/01/2030\n### Size\n250\n### Source\nhttp://x\n### Image\nhttp://y.png"
	underCeiling := "### Name\nBig\n### Date\n01/01/2030\n### Size\n249\n### Source\nhttp://x\n### Image\nhttp://y.png"
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{
		releaseIssue(1, 10, atCeiling, 1),
		releaseIssue(2, 11, underCeiling, 1),
	}

	report, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 1, report.Appended)
	events := store.Load(ds)
	require.Len(t, events, 1)
	assert.Equal(t, "Big", events[0].Base().Name)
	// 超限的 issue 不回执不关闭，留给人工审核
	assert.NotContains(t, tracker.closed, 10)
}

func TestIngestAckFailureDoesNotRollBack(t *testing.T) {
	svc, tracker, store, ds := newIngestFixture(t)
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{releaseIssue(1, 42, haloBody, 1)}
	tracker.ackErr = errors.New("network down")

	report, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	// 数据集写入已经成功，回执失败只计数
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 1, report.AckFailed)
	assert.Len(t, store.Load(ds), 1)
}

func TestIngestListFailureIsFatalForRun(t *testing.T) {
	svc, tracker, _, ds := newIngestFixture(t)
	tracker.listErr = errors.New("rate limited")

	_, err := svc.IngestDataset(context.Background(), ds)
	assert.Error(t, err)
}

func TestIngestDedupByNameOrID(t *testing.T) {
	svc, tracker, store, ds := newIngestFixture(t)
	sameNameNewID := "### Name\nHalo Infinite\n### Date\n02/02/2031\n### Size\n10\n### Source\nhttp://z\n### Image\nhttp://z.png"
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{releaseIssue(1, 42, haloBody, 1)}

	_, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	// 换了 issue 编号但名称撞车，同样算重复
	tracker.issuesByLabel[ds.Label] = []model.RawIssue{releaseIssue(9, 99, sameNameNewID, 1)}
	report, err := svc.IngestDataset(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Duplicates)
	assert.Len(t, store.Load(ds), 1)
}
