package model

import (
	"strings"
	"time"
)

// RawIssue issue 跟踪系统中的原始 issue（外部实体，本系统只读不改）
type RawIssue struct {
	ID        int64          `json:"id"`
	Number    int            `json:"number"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	User      string         `json:"user"`
	Labels    []string       `json:"labels"`
	Reactions map[string]int `json:"reactions"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ClosedAt  *time.Time     `json:"closed_at"`
}

// ReactionCount 某种 reaction 的数量（缺失按 0 计）
func (i RawIssue) ReactionCount(name string) int {
	if i.Reactions == nil {
		return 0
	}
	return i.Reactions[name]
}

// HasLabel 是否带指定标签
func (i RawIssue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}
