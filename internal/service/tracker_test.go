package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"TraffixSync/internal/config"
	"TraffixSync/internal/model"
)

// fakeTracker 测试用 issue 跟踪系统：内存数据 + 调用记录
type fakeTracker struct {
	issuesByLabel map[string][]model.RawIssue
	shas          map[string]string // path -> sha
	files         map[string][]byte // path -> 内容

	comments []int // 收到评论的 issue 编号
	closed   []int // 被关闭的 issue 编号
	rawCalls int   // FetchRawFile 调用次数
	listErr  error
	ackErr   error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		issuesByLabel: make(map[string][]model.RawIssue),
		shas:          make(map[string]string),
		files:         make(map[string][]byte),
	}
}

func (f *fakeTracker) ListIssues(_ context.Context, label, _ string) ([]model.RawIssue, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.issuesByLabel[label], nil
}

func (f *fakeTracker) AddComment(_ context.Context, issueNumber int, _ string) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.comments = append(f.comments, issueNumber)
	return nil
}

func (f *fakeTracker) CloseIssue(_ context.Context, issueNumber int) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.closed = append(f.closed, issueNumber)
	return nil
}

func (f *fakeTracker) LatestCommitSHA(_ context.Context, path string) (string, error) {
	return f.shas[path], nil
}

func (f *fakeTracker) FetchRawFile(_ context.Context, path string) ([]byte, error) {
	f.rawCalls++
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("拉取 %s 非 200: 404", path)
	}
	return data, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Tracker: config.TrackerConfig{
			Repo:    "veesix-networks/traffix",
			Timeout: 5,
		},
		Datastore: config.DatastoreConfig{
			Dir:              dir,
			GameReleasesFile: "event_game_releases.yml",
			GameUpdatesFile:  "event_game_updates.yml",
		},
		Moderation: config.ModerationConfig{
			ApprovalThreshold: 1,
			MaxSizeGB:         250,
			MaxImageLen:       256,
		},
		Sync:   config.SyncConfig{TopN: 50},
		Notify: config.NotifyConfig{WindowDays: 60},
	}
}
