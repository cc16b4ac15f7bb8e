package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"TraffixSync/internal/config"
	"TraffixSync/internal/interfaces"
	"TraffixSync/internal/model"
)

// ActivityKey 最近 issue 动态的缓存键
const ActivityKey = "github_events"

// SyncService 缓存同步：把已发布的数据集文件按指纹增量刷进缓存。
// 不同数据集互不相干可以并行，同一数据集靠 TryLock 保证同时只有一个在跑。
type SyncService struct {
	tracker interfaces.IssueTracker
	cache   interfaces.CacheStore
	cfg     *config.Config
	logger  *logrus.Logger
	now     func() time.Time

	mu    sync.Mutex
	locks map[model.EventKind]*sync.Mutex
}

// NewSyncService 创建同步服务
func NewSyncService(tracker interfaces.IssueTracker, cache interfaces.CacheStore, cfg *config.Config, logger *logrus.Logger) *SyncService {
	return &SyncService{
		tracker: tracker,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[model.EventKind]*sync.Mutex),
	}
}

// SyncDataset 同步单个数据集：指纹一致直接跳过，变化才整体重拉并替换缓存。
// 同一数据集已有同步在跑时本次直接放弃（不是错误）。
func (s *SyncService) SyncDataset(ctx context.Context, ds model.DatasetSpec) error {
	lock := s.lockFor(ds.Kind)
	if !lock.TryLock() {
		s.logger.Warnf("数据集 %s 已有同步在进行，跳过本次", ds.Label)
		return nil
	}
	defer lock.Unlock()

	key := ds.CacheKey()
	filePath := path.Join(s.cfg.Datastore.Dir, ds.File)
	s.logger.Infof("校验并检查缓存键 %q", key)

	sha, err := s.tracker.LatestCommitSHA(ctx, filePath)
	if err != nil {
		return fmt.Errorf("获取 %s 最新指纹失败: %w", filePath, err)
	}
	if sha == "" {
		// 文件从未发布过，按"没有变化"处理
		s.logger.Infof("文件 %s 尚未发布，跳过同步", filePath)
		return nil
	}

	shaPayload, _ := json.Marshal(sha)
	cachedSHA, err := s.cache.Get(ctx, key+"_sha")
	if err != nil {
		return fmt.Errorf("读取缓存指纹失败: %w", err)
	}
	if bytes.Equal(cachedSHA, shaPayload) {
		s.logger.Infof("指纹一致，跳过 %q 的同步", key)
		return nil
	}

	raw, err := s.tracker.FetchRawFile(ctx, filePath)
	if err != nil {
		// 拉取失败时已有缓存保持原样
		return fmt.Errorf("拉取 %s 失败: %w", filePath, err)
	}
	events, err := model.DecodeYAMLEvents(ds.Kind, raw)
	if err != nil {
		return fmt.Errorf("解析 %s 失败: %w", filePath, err)
	}

	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("序列化事件列表失败: %w", err)
	}
	topPayload, err := json.Marshal(topUpcoming(events, s.now(), s.cfg.Sync.TopN))
	if err != nil {
		return fmt.Errorf("序列化 Top-N 视图失败: %w", err)
	}

	// 内容 + 指纹 + 计数 + Top-N 视图在一个逻辑步骤内替换
	entries := map[string][]byte{
		key:          payload,
		key + "_sha": shaPayload,
		key + "_len": []byte(strconv.Itoa(len(events))),
		ds.TopKey():  topPayload,
	}
	if err := s.cache.SetAll(ctx, entries); err != nil {
		return fmt.Errorf("替换缓存 %q 失败: %w", key, err)
	}

	s.logger.Infof("已更新 %q（%d 条事件）", key, len(events))
	return nil
}

// SyncAll 同步全部数据集与最近动态，单个失败不影响其它
func (s *SyncService) SyncAll(ctx context.Context) {
	for _, ds := range s.cfg.Datasets() {
		if err := s.SyncDataset(ctx, ds); err != nil {
			s.logger.WithError(err).Errorf("数据集 %s 同步失败", ds.Label)
		}
	}
	if err := s.SyncActivity(ctx); err != nil {
		s.logger.WithError(err).Error("最近动态同步失败")
	}
}

// SyncActivity 拉取最近的 issue 列表并发布为动态缓存
func (s *SyncService) SyncActivity(ctx context.Context) error {
	issues, err := s.tracker.ListIssues(ctx, "", "all")
	if err != nil {
		return fmt.Errorf("拉取最近 issue 失败: %w", err)
	}

	payload, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("序列化动态失败: %w", err)
	}
	if err := s.cache.Set(ctx, ActivityKey, payload); err != nil {
		return fmt.Errorf("写入动态缓存失败: %w", err)
	}

	s.logger.Infof("已更新 %q（%d 条）", ActivityKey, len(issues))
	return nil
}

func (s *SyncService) lockFor(kind model.EventKind) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[kind]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[kind] = lock
	}
	return lock
}

// topUpcoming 过滤出 now 之后（含 now）的事件，按日期升序截断到前 n 条
func topUpcoming(events []model.Event, now time.Time, n int) []model.Event {
	upcoming := make([]model.Event, 0, len(events))
	for _, event := range events {
		if !event.Base().Date.Before(now) {
			upcoming = append(upcoming, event)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Base().Date.Before(upcoming[j].Base().Date)
	})
	if len(upcoming) > n {
		upcoming = upcoming[:n]
	}
	return upcoming
}
