package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"TraffixSync/internal/config"
	"TraffixSync/internal/interfaces"
	"TraffixSync/internal/model"
	"TraffixSync/internal/utils/httpclient"
)

// NotifyService 每日摘要：从缓存取事件，过滤出窗口期内的，渲染成 Slack Block Kit 消息。
// 只读缓存，从不碰数据集文件。
type NotifyService struct {
	cache      interfaces.CacheStore
	cfg        *config.Config
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

// NewNotifyService 创建通知服务
func NewNotifyService(cache interfaces.CacheStore, cfg *config.Config, logger *logrus.Logger) *NotifyService {
	return &NotifyService{
		cache: cache,
		cfg:   cfg,
		httpClient: httpclient.New(httpclient.Options{
			Timeout: time.Duration(cfg.Tracker.Timeout) * time.Second,
		}, logger),
		logger: logger,
		now:    time.Now,
	}
}

// SendDigest 发送一次摘要。webhook 未配置时只记日志不报错。
func (s *NotifyService) SendDigest(ctx context.Context) error {
	var events []model.Event
	for _, ds := range s.cfg.Datasets() {
		loaded, err := s.loadEvents(ctx, ds)
		if err != nil {
			// 单个数据集读不出来不影响其它数据集的摘要
			s.logger.WithError(err).Errorf("加载 %s 缓存失败", ds.CacheKey())
			continue
		}
		events = append(events, loaded...)
	}

	blocks := buildDigest(events, s.now(), s.cfg.Notify.WindowDays, s.cfg.Tracker.Repo, s.logger)

	if s.cfg.Notify.SlackWebhook == "" {
		s.logger.Warn("Slack webhook 未配置，跳过发送")
		return nil
	}
	return s.postWebhook(ctx, blocks)
}

// loadEvents 从缓存加载一个数据集的事件
func (s *NotifyService) loadEvents(ctx context.Context, ds model.DatasetSpec) ([]model.Event, error) {
	raw, err := s.cache.Get(ctx, ds.CacheKey())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return model.DecodeJSONEvents(ds.Kind, raw)
}

// ========== Slack Block Kit 消息结构 ==========

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackButton struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
	URL  string     `json:"url,omitempty"`
}

type slackBlock struct {
	Type      string       `json:"type"`
	Text      *slackText   `json:"text,omitempty"`
	Elements  []*slackText `json:"elements,omitempty"`
	Accessory *slackButton `json:"accessory,omitempty"`
}

// buildDigest 组装摘要消息：now 到 now+days 内的事件按日期升序，每条一组块
func buildDigest(events []model.Event, now time.Time, days int, repo string, logger *logrus.Logger) []slackBlock {
	horizon := now.AddDate(0, 0, days)

	var upcoming []model.Event
	for _, event := range events {
		date := event.Base().Date
		if !date.Before(now) && !date.After(horizon) {
			upcoming = append(upcoming, event)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Base().Date.Before(upcoming[j].Base().Date)
	})

	var blocks []slackBlock
	for _, event := range upcoming {
		base := event.Base()
		logger.Infof("事件 %q 将在 %d 天内发布", base.Name, days)

		blocks = append(blocks,
			slackBlock{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: base.Name, Emoji: true},
			},
			slackBlock{
				Type: "section",
				Text: &slackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("Estimated Size: %dGB\nType: %s", event.SizeGB(), base.Type),
				},
				Accessory: &slackButton{
					Type: "button",
					Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("Issue #%d", base.GithubIssueID)},
					URL:  fmt.Sprintf("https://github.com/%s/issues/%d", repo, base.GithubIssueID),
				},
			},
			slackBlock{
				Type: "context",
				Elements: []*slackText{{
					Type: "mrkdwn",
					Text: fmt.Sprintf("Estimated date: %s", base.Date.Format("2006-01-02")),
				}},
			},
			slackBlock{Type: "divider"},
		)
	}

	summary := fmt.Sprintf(
		"Here is a summary of all the game releases and updates coming out within the next %d days.", days)
	if len(upcoming) == 0 {
		summary = fmt.Sprintf(
			"No game releases or updates are being released that Traffix knows about within the next %d days.", days)
	}
	blocks = append([]slackBlock{{
		Type:     "context",
		Elements: []*slackText{{Type: "mrkdwn", Text: summary}},
	}}, blocks...)

	return blocks
}

// postWebhook 把消息体 POST 到 Slack webhook
func (s *NotifyService) postWebhook(ctx context.Context, blocks []slackBlock) error {
	body, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		return fmt.Errorf("序列化 Slack 消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Notify.SlackWebhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送 Slack 消息失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Slack webhook 非 200: %d %s", resp.StatusCode, string(respBody))
	}
	s.logger.Info("摘要已发送")
	return nil
}
