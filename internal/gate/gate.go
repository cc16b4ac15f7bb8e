// Package gate 实现社区审批准入：rocket reaction 达到阈值的 issue 才进入流水线，
// 同一批次内相同 issue ID 只保留第一次出现。
package gate

import (
	"github.com/sirupsen/logrus"

	"TraffixSync/internal/model"
)

// ReactionApproval 社区赞成票使用的 reaction 名称
const ReactionApproval = "rocket"

// Filter 单个批次的准入过滤器。每次流水线运行新建一个，不跨运行保留状态。
type Filter struct {
	threshold int
	logger    *logrus.Logger
	seen      map[int64]bool
}

// New 创建过滤器，threshold 为审批阈值（reaction 数 >= threshold 才放行）
func New(threshold int, logger *logrus.Logger) *Filter {
	return &Filter{
		threshold: threshold,
		logger:    logger,
		seen:      make(map[int64]bool),
	}
}

// Admit 判定一个 issue 是否准入。除日志外无副作用。
func (f *Filter) Admit(issue model.RawIssue) bool {
	if f.seen[issue.ID] {
		f.logger.Warnf("Issue %d 在本批次内重复出现，跳过", issue.ID)
		return false
	}
	f.seen[issue.ID] = true

	if issue.ReactionCount(ReactionApproval) < f.threshold {
		f.logger.Warnf("Issue %q 社区赞成票不足（%d < %d），跳过",
			issue.Title, issue.ReactionCount(ReactionApproval), f.threshold)
		return false
	}
	return true
}
