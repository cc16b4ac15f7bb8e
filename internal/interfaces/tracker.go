package interfaces

import (
	"context"

	"TraffixSync/internal/model"
)

// IssueTracker issue 跟踪系统客户端的核心接口
type IssueTracker interface {
	// ListIssues 按标签与状态拉取 issue 列表，label 为空表示不过滤标签
	ListIssues(ctx context.Context, label, state string) ([]model.RawIssue, error)
	// AddComment 在指定 issue 下追加评论
	AddComment(ctx context.Context, issueNumber int, body string) error
	// CloseIssue 关闭指定 issue
	CloseIssue(ctx context.Context, issueNumber int) error
	// LatestCommitSHA 获取某路径文件最近一次提交的 SHA，文件从未提交过返回空串
	LatestCommitSHA(ctx context.Context, path string) (string, error)
	// FetchRawFile 从已发布位置整体拉取文件内容
	FetchRawFile(ctx context.Context, path string) ([]byte, error)
}
