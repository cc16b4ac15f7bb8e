package interfaces

import "context"

// CacheStore 读优化缓存的通用接口，值按 JSON 序列化后的字节存取
type CacheStore interface {
	// Get 读取键值，键不存在时返回 (nil, nil)
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 写入单个键
	Set(ctx context.Context, key string, value []byte) error
	// SetAll 在一个逻辑步骤内替换一组键（内容 + 指纹 + 计数一起换）
	SetAll(ctx context.Context, entries map[string][]byte) error
	// Ping 探活
	Ping(ctx context.Context) error
}
