package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"TraffixSync/internal/config"
	"TraffixSync/internal/extract"
	"TraffixSync/internal/gate"
	"TraffixSync/internal/interfaces"
	"TraffixSync/internal/model"
	"TraffixSync/internal/repository"
)

// IngestService 摄取流水线：把社区提交的 issue 变成数据集里的事件。
// 单个 issue 出错只跳过该条，整批继续；数据集写入失败才算整次运行失败。
type IngestService struct {
	tracker interfaces.IssueTracker
	store   *repository.Datastore
	cfg     *config.Config
	logger  *logrus.Logger
}

// NewIngestService 创建摄取服务
func NewIngestService(tracker interfaces.IssueTracker, store *repository.Datastore, cfg *config.Config, logger *logrus.Logger) *IngestService {
	return &IngestService{
		tracker: tracker,
		store:   store,
		cfg:     cfg,
		logger:  logger,
	}
}

// IngestReport 单次摄取运行的汇总
type IngestReport struct {
	RunID      string          `json:"run_id"`
	Kind       model.EventKind `json:"kind"`
	Fetched    int             `json:"fetched"`    // 拉到的 issue 数
	Gated      int             `json:"gated"`      // 被社区审批拦下的数量（含批内重复）
	Invalid    int             `json:"invalid"`    // 提取/校验失败的数量
	Duplicates int             `json:"duplicates"` // 与已有事件重名或重 ID 的数量
	Appended   int             `json:"appended"`   // 实际追加的事件数
	AckFailed  int             `json:"ack_failed"` // 回执（评论+关闭）失败的数量
}

// IngestDataset 对单个数据集跑一次完整的摄取流程。
// 返回错误仅当整次运行失败（拉取失败或数据集写入失败）。
func (s *IngestService) IngestDataset(ctx context.Context, ds model.DatasetSpec) (*IngestReport, error) {
	report := &IngestReport{RunID: uuid.NewString(), Kind: ds.Kind}
	log := s.logger.WithField("run_id", report.RunID).WithField("dataset", ds.Label)

	issues, err := s.tracker.ListIssues(ctx, ds.Label, "open")
	if err != nil {
		return report, fmt.Errorf("拉取 %s issue 失败: %w", ds.Label, err)
	}
	report.Fetched = len(issues)

	// 批内准入：社区审批 + 按 issue ID 去重（每次运行独立，不跨运行积累）
	filter := gate.New(s.cfg.Moderation.ApprovalThreshold, s.logger)

	var fresh []model.Event
	for _, issue := range issues {
		if !filter.Admit(issue) {
			report.Gated++
			continue
		}

		event, err := s.buildEvent(ds, issue)
		if err != nil {
			report.Invalid++
			continue
		}
		fresh = append(fresh, event)
	}

	existing := s.store.Load(ds)
	merged, appended := mergeEvents(existing, fresh, log)
	report.Duplicates = len(fresh) - len(appended)

	if err := s.store.Save(ds, merged); err != nil {
		return report, fmt.Errorf("保存数据集 %s 失败: %w", ds.File, err)
	}
	report.Appended = len(appended)

	// 数据集已落盘，回执只是尽力而为的旁路：失败记日志，不回滚
	for _, event := range appended {
		if err := s.acknowledge(ctx, ds, event); err != nil {
			report.AckFailed++
			log.WithError(err).Errorf("回执 issue %d 失败，可手动重跑摄取补发", event.Base().GithubIssueID)
		}
	}

	log.Infof("摄取完成：拉取 %d，拦截 %d，无效 %d，重复 %d，追加 %d",
		report.Fetched, report.Gated, report.Invalid, report.Duplicates, report.Appended)
	return report, nil
}

// IngestAll 依次摄取全部数据集，单个数据集失败不影响其它数据集
func (s *IngestService) IngestAll(ctx context.Context) []*IngestReport {
	var reports []*IngestReport
	for _, ds := range s.cfg.Datasets() {
		report, err := s.IngestDataset(ctx, ds)
		if err != nil {
			s.logger.WithError(err).Errorf("数据集 %s 摄取失败", ds.Label)
		}
		reports = append(reports, report)
	}
	return reports
}

// buildEvent 提取 issue 正文并组装成事件，失败时记录原因并返回错误
func (s *IngestService) buildEvent(ds model.DatasetSpec, issue model.RawIssue) (model.Event, error) {
	fields := extract.Fields(issue.Body)

	event, err := model.BuildEvent(ds.Kind, fields, issue.Number, s.cfg.Limits())
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoName):
			s.logger.Errorf("Issue %d 无法识别事件名称，跳过", issue.Number)
		case errors.Is(err, model.ErrBadDate):
			s.logger.WithError(err).Errorf("Issue %d 日期无法解析，跳过", issue.Number)
		case errors.Is(err, model.ErrSizePolicy):
			// 超限不是格式问题，留在 open 状态等人工审核
			s.logger.Warnf("Issue %d（%q）体积超限，转人工审核", issue.Number, fields["name"])
		default:
			s.logger.WithError(err).Errorf("Issue %d（%q）校验失败，跳过", issue.Number, fields["name"])
		}
		return nil, err
	}
	return event, nil
}

// mergeEvents 把新事件并入已有数据集：名称或 issue ID 任一已存在即视为重复跳过
func mergeEvents(existing, fresh []model.Event, log *logrus.Entry) (merged, appended []model.Event) {
	names := make(map[string]bool, len(existing))
	ids := make(map[int]bool, len(existing))
	for _, event := range existing {
		names[event.Base().Name] = true
		ids[event.Base().GithubIssueID] = true
	}

	merged = existing
	for _, event := range fresh {
		base := event.Base()
		if names[base.Name] || ids[base.GithubIssueID] {
			log.Warnf("事件名称或 issue ID 已被占用：%s (%d)，跳过", base.Name, base.GithubIssueID)
			continue
		}
		names[base.Name] = true
		ids[base.GithubIssueID] = true
		merged = append(merged, event)
		appended = append(appended, event)
	}
	return merged, appended
}

// acknowledge 在源 issue 下回执并关闭（每次运行对每个追加事件只发一次）
func (s *IngestService) acknowledge(ctx context.Context, ds model.DatasetSpec, event model.Event) error {
	number := event.Base().GithubIssueID
	comment := fmt.Sprintf(
		"Thank you for your contribution! 🎉\n\nThis event was processed successfully and added to the relevant YAML datastore (%s).",
		ds.File,
	)
	if err := s.tracker.AddComment(ctx, number, comment); err != nil {
		return err
	}
	return s.tracker.CloseIssue(ctx, number)
}
