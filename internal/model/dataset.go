package model

import "strings"

// DatasetSpec 一个数据集的描述：一种事件类型对应一个 issue 标签与一个 YAML 文件
type DatasetSpec struct {
	Kind  EventKind // 事件类型
	Label string    // issue 标签，例如 event_game_release
	File  string    // datastore 目录下的文件名，例如 event_game_releases.yml
}

// CacheKey 数据集在缓存中的规范化键名（文件名去扩展名、小写、分隔符统一为下划线）
func (d DatasetSpec) CacheKey() string {
	key := d.File
	if idx := strings.Index(key, "."); idx >= 0 {
		key = key[:idx]
	}
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	return key
}

// TopKey 数据集对应的 Top-50 视图键名
func (d DatasetSpec) TopKey() string {
	return "top_50_" + string(d.Kind)
}
