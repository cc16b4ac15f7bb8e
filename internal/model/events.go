package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EventKind 事件类型枚举（字符串形式直接落盘）
type EventKind string

const (
	KindGameRelease EventKind = "game_release"
	KindGameUpdate  EventKind = "game_update"
)

// DateFormat issue 正文中日期字段的唯一格式（日/月/年，不做本地化）
const DateFormat = "02/01/2006"

// 事件组装/校验阶段的错误分类，调用方用 errors.Is 区分处理
var (
	ErrNoName     = errors.New("事件缺少 name 字段")
	ErrBadDate    = errors.New("日期格式错误")
	ErrSchema     = errors.New("事件字段校验失败")
	ErrSizePolicy = errors.New("体积超过人工审核阈值") // 超限提交转人工审核，区别于一般校验失败
)

// Limits 校验上限（默认值在组合根统一枚举，见 internal/config）
type Limits struct {
	MaxSizeGB   int // size 必须严格小于该值
	MaxImageLen int // image 字段最大长度
}

// BaseEvent 所有事件类型的公共字段
type BaseEvent struct {
	Name          string    `yaml:"name" json:"name"`
	GithubIssueID int       `yaml:"github_issue_id" json:"github_issue_id"`
	Type          EventKind `yaml:"type" json:"type"`
	Date          time.Time `yaml:"date" json:"date"`
}

// EventGameRelease 游戏发售事件
type EventGameRelease struct {
	BaseEvent `yaml:",inline"`
	Size      int    `yaml:"size" json:"size"`
	Source    string `yaml:"source" json:"source"`
	Image     string `yaml:"image" json:"image"`
}

// EventGameUpdate 游戏更新事件
type EventGameUpdate struct {
	BaseEvent `yaml:",inline"`
	Version   string `yaml:"version" json:"version"`
	Size      int    `yaml:"size" json:"size"`
	Source    string `yaml:"source" json:"source"`
}

// Event 事件的统一接口（每种类型一个具体变体，不走反射）
type Event interface {
	Base() *BaseEvent
	SizeGB() int
	Validate(limits Limits) error
}

func (e *EventGameRelease) Base() *BaseEvent { return &e.BaseEvent }
func (e *EventGameUpdate) Base() *BaseEvent  { return &e.BaseEvent }

func (e *EventGameRelease) SizeGB() int { return e.Size }
func (e *EventGameUpdate) SizeGB() int  { return e.Size }

// Validate 校验发售事件字段（体积超限单独归类为 ErrSizePolicy）
func (e *EventGameRelease) Validate(limits Limits) error {
	if err := e.BaseEvent.validate(); err != nil {
		return err
	}
	if err := validateSize(e.Size, limits); err != nil {
		return err
	}
	if e.Source == "" {
		return fmt.Errorf("%w: source 为空", ErrSchema)
	}
	if e.Image == "" {
		return fmt.Errorf("%w: image 为空", ErrSchema)
	}
	if len(e.Image) > limits.MaxImageLen {
		return fmt.Errorf("%w: image 超过 %d 字符", ErrSchema, limits.MaxImageLen)
	}
	return nil
}

// Validate 校验更新事件字段
func (e *EventGameUpdate) Validate(limits Limits) error {
	if err := e.BaseEvent.validate(); err != nil {
		return err
	}
	if err := validateSize(e.Size, limits); err != nil {
		return err
	}
	if e.Version == "" {
		return fmt.Errorf("%w: version 为空", ErrSchema)
	}
	if e.Source == "" {
		return fmt.Errorf("%w: source 为空", ErrSchema)
	}
	return nil
}

func (b *BaseEvent) validate() error {
	if b.Name == "" {
		return ErrNoName
	}
	if b.GithubIssueID <= 0 {
		return fmt.Errorf("%w: github_issue_id 非法", ErrSchema)
	}
	if b.Date.IsZero() {
		return fmt.Errorf("%w: date 为空", ErrSchema)
	}
	return nil
}

func validateSize(size int, limits Limits) error {
	if size >= limits.MaxSizeGB {
		return fmt.Errorf("%w: %dGB >= %dGB", ErrSizePolicy, size, limits.MaxSizeGB)
	}
	return nil
}

// ParseKind 解析事件类型字符串
func ParseKind(s string) (EventKind, error) {
	switch EventKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindGameRelease:
		return KindGameRelease, nil
	case KindGameUpdate:
		return KindGameUpdate, nil
	default:
		return "", fmt.Errorf("未知的事件类型: %q", s)
	}
}

// BuildEvent 从提取出的字段映射组装并校验一个事件。
// kind 与 issueNumber 由流水线注入，不信任正文内容。
func BuildEvent(kind EventKind, fields map[string]string, issueNumber int, limits Limits) (Event, error) {
	name := fields["name"]
	if name == "" {
		return nil, ErrNoName
	}

	date, err := time.Parse(DateFormat, fields["date"])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadDate, fields["date"])
	}

	base := BaseEvent{
		Name:          name,
		GithubIssueID: issueNumber,
		Type:          kind,
		Date:          date,
	}

	var event Event
	switch kind {
	case KindGameRelease:
		size, err := parseSize(fields["size"])
		if err != nil {
			return nil, err
		}
		event = &EventGameRelease{
			BaseEvent: base,
			Size:      size,
			Source:    fields["source"],
			Image:     fields["image"],
		}
	case KindGameUpdate:
		size, err := parseSize(fields["size"])
		if err != nil {
			return nil, err
		}
		event = &EventGameUpdate{
			BaseEvent: base,
			Version:   fields["version"],
			Size:      size,
			Source:    fields["source"],
		}
	default:
		return nil, fmt.Errorf("%w: 未知类型 %q", ErrSchema, kind)
	}

	if err := event.Validate(limits); err != nil {
		return nil, err
	}
	return event, nil
}

func parseSize(raw string) (int, error) {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: size %q 不是整数", ErrSchema, raw)
	}
	return size, nil
}

// ========== 按类型解码（工厂表，新增事件类型仅需添加此处） ==========

var yamlDecoders = map[EventKind]func(node *yaml.Node) (Event, error){
	KindGameRelease: func(node *yaml.Node) (Event, error) {
		var e EventGameRelease
		if err := node.Decode(&e); err != nil {
			return nil, err
		}
		return &e, nil
	},
	KindGameUpdate: func(node *yaml.Node) (Event, error) {
		var e EventGameUpdate
		if err := node.Decode(&e); err != nil {
			return nil, err
		}
		return &e, nil
	},
}

// DecodeYAMLEvents 把一个数据集文件的 YAML 内容解码为事件列表
func DecodeYAMLEvents(kind EventKind, data []byte) ([]Event, error) {
	decode, ok := yamlDecoders[kind]
	if !ok {
		return nil, fmt.Errorf("未知的事件类型: %q", kind)
	}

	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}

	events := make([]Event, 0, len(nodes))
	for i := range nodes {
		e, err := decode(&nodes[i])
		if err != nil {
			return nil, fmt.Errorf("解码第 %d 条事件失败: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}
