// Package cache 提供读优化缓存的多种后端实现。
// 写入方只有同步服务，读取方（API、通知）只读，键级替换即可，无需额外加锁。
package cache

import (
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"TraffixSync/internal/interfaces"
)

// NewStore 按连接串的 scheme 选择缓存后端（工厂，新增后端仅需添加此处）
func NewStore(rawURL string, logger *logrus.Logger) (interfaces.CacheStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("解析缓存连接串失败: %w", err)
	}

	switch u.Scheme {
	case "redis", "rediss":
		return NewRedisStore(rawURL, logger)
	case "postgres", "postgresql":
		return NewGormStore(rawURL, logger)
	default:
		return nil, fmt.Errorf("不支持的缓存后端: %q", u.Scheme)
	}
}
