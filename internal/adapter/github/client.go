// Package github 是 issue 跟踪系统的 GitHub 适配器，
// 基于 utils/httpclient 实现 interfaces.IssueTracker。
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"TraffixSync/internal/config"
	"TraffixSync/internal/interfaces"
	"TraffixSync/internal/model"
	"TraffixSync/internal/utils/httpclient"
)

// Client GitHub REST 客户端
type Client struct {
	cfg        *config.TrackerConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient 创建 GitHub 客户端
func NewClient(cfg *config.TrackerConfig, logger *logrus.Logger) interfaces.IssueTracker {
	return &Client{
		cfg: cfg,
		httpClient: httpclient.New(httpclient.Options{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Proxy:   cfg.Proxy,
			Token:   cfg.Token,
			Scheme:  "token",
		}, logger),
		logger: logger,
	}
}

// ========== GitHub API 响应结构 ==========

type issuePayload struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Reactions struct {
		PlusOne  int `json:"+1"`
		MinusOne int `json:"-1"`
		Laugh    int `json:"laugh"`
		Hooray   int `json:"hooray"`
		Confused int `json:"confused"`
		Heart    int `json:"heart"`
		Rocket   int `json:"rocket"`
		Eyes     int `json:"eyes"`
	} `json:"reactions"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

type commitPayload struct {
	SHA string `json:"sha"`
}

// ListIssues 按标签与状态拉取 issue，label 为空表示不过滤
func (c *Client) ListIssues(ctx context.Context, label, state string) ([]model.RawIssue, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	if label != "" {
		q.Set("labels", label)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/issues?%s", c.cfg.APIBase, c.cfg.Repo, q.Encode())

	var payload []issuePayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("拉取 issue 列表失败: %w", err)
	}

	issues := make([]model.RawIssue, 0, len(payload))
	for _, p := range payload {
		labels := make([]string, 0, len(p.Labels))
		for _, l := range p.Labels {
			labels = append(labels, l.Name)
		}
		issues = append(issues, model.RawIssue{
			ID:     p.ID,
			Number: p.Number,
			Title:  p.Title,
			Body:   p.Body,
			User:   p.User.Login,
			Labels: labels,
			Reactions: map[string]int{
				"+1":       p.Reactions.PlusOne,
				"-1":       p.Reactions.MinusOne,
				"laugh":    p.Reactions.Laugh,
				"hooray":   p.Reactions.Hooray,
				"confused": p.Reactions.Confused,
				"heart":    p.Reactions.Heart,
				"rocket":   p.Reactions.Rocket,
				"eyes":     p.Reactions.Eyes,
			},
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
			ClosedAt:  p.ClosedAt,
		})
	}
	return issues, nil
}

// AddComment 在 issue 下追加评论
func (c *Client) AddComment(ctx context.Context, issueNumber int, body string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/issues/%d/comments", c.cfg.APIBase, c.cfg.Repo, issueNumber)
	if err := c.sendJSON(ctx, http.MethodPost, endpoint, map[string]string{"body": body}); err != nil {
		return fmt.Errorf("评论 issue %d 失败: %w", issueNumber, err)
	}
	return nil
}

// CloseIssue 关闭 issue
func (c *Client) CloseIssue(ctx context.Context, issueNumber int) error {
	endpoint := fmt.Sprintf("%s/repos/%s/issues/%d", c.cfg.APIBase, c.cfg.Repo, issueNumber)
	if err := c.sendJSON(ctx, http.MethodPatch, endpoint, map[string]string{"state": "closed"}); err != nil {
		return fmt.Errorf("关闭 issue %d 失败: %w", issueNumber, err)
	}
	return nil
}

// LatestCommitSHA 获取某路径最近一次提交的 SHA。
// 文件从未提交过（返回空列表）时返回空串而不是错误。
func (c *Client) LatestCommitSHA(ctx context.Context, path string) (string, error) {
	q := url.Values{}
	q.Set("path", path)
	q.Set("per_page", "1")
	endpoint := fmt.Sprintf("%s/repos/%s/commits?%s", c.cfg.APIBase, c.cfg.Repo, q.Encode())

	var commits []commitPayload
	if err := c.getJSON(ctx, endpoint, &commits); err != nil {
		return "", fmt.Errorf("获取最新 commit SHA 失败: %w", err)
	}
	if len(commits) == 0 {
		return "", nil
	}
	return commits[0].SHA, nil
}

// FetchRawFile 从已发布位置整体拉取文件内容
func (c *Client) FetchRawFile(ctx context.Context, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s", c.cfg.RawBase, c.cfg.Repo, c.cfg.Branch, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("拉取 %s 失败: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("拉取 %s 非 200: %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// getJSON GET 并解码 JSON 响应
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.WithField("status", resp.StatusCode).WithField("body", string(body)).Warn("GitHub API 错误")
		return fmt.Errorf("GitHub API 错误 %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// sendJSON 发送带 JSON 请求体的写操作
func (c *Client) sendJSON(ctx context.Context, method, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.WithField("status", resp.StatusCode).WithField("body", string(respBody)).Warn("GitHub API 错误")
		return fmt.Errorf("GitHub API 错误 %d", resp.StatusCode)
	}
	return nil
}
