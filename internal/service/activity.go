package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"TraffixSync/internal/model"
)

// ActivityItem 首页动态条目（由 issue 标题 "[type]: title" 拆分而来）
type ActivityItem struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	Type           string     `json:"type"`
	User           string     `json:"user"`
	CreatedAt      time.Time  `json:"created_at"`
	CreatedAtHuman string     `json:"created_at_human_readable"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at"`
}

// BuildActivity 把缓存的 issue 列表转成动态条目。
// 标题不符合 "[type]: title" 约定的条目跳过并告警；limit > 0 时截断。
func BuildActivity(issues []model.RawIssue, limit int, now time.Time, logger *logrus.Logger) []ActivityItem {
	items := make([]ActivityItem, 0, len(issues))
	for _, issue := range issues {
		kind, title, ok := strings.Cut(issue.Title, ":")
		if !ok {
			logger.Warnf("Issue %d 标题 %q 不符合约定，跳过", issue.Number, issue.Title)
			continue
		}

		kind = strings.TrimSpace(kind)
		kind = strings.TrimPrefix(kind, "[")
		kind = strings.TrimSuffix(kind, "]")

		items = append(items, ActivityItem{
			ID:             issue.Number,
			Title:          strings.TrimSpace(title),
			Type:           strings.ToLower(kind),
			User:           issue.User,
			CreatedAt:      issue.CreatedAt,
			CreatedAtHuman: HumanAge(now, issue.CreatedAt),
			UpdatedAt:      issue.UpdatedAt,
			ClosedAt:       issue.ClosedAt,
		})
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// HumanAge 把一个过去的时间点渲染成相对描述（"6 hours ago" 等）
func HumanAge(now, t time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d mins ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	case diff < 365*24*time.Hour:
		return fmt.Sprintf("%d months ago", int(diff.Hours()/24/30))
	default:
		return fmt.Sprintf("%d years ago", int(diff.Hours()/24/365))
	}
}
