package model

import (
	"encoding/json"
	"fmt"
)

var jsonDecoders = map[EventKind]func(raw json.RawMessage) (Event, error){
	KindGameRelease: func(raw json.RawMessage) (Event, error) {
		var e EventGameRelease
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return &e, nil
	},
	KindGameUpdate: func(raw json.RawMessage) (Event, error) {
		var e EventGameUpdate
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return &e, nil
	},
}

// DecodeJSONEvents 解码缓存中 JSON 形式的事件列表（与 DecodeYAMLEvents 对应）
func DecodeJSONEvents(kind EventKind, data []byte) ([]Event, error) {
	decode, ok := jsonDecoders[kind]
	if !ok {
		return nil, fmt.Errorf("未知的事件类型: %q", kind)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	events := make([]Event, 0, len(items))
	for i, item := range items {
		e, err := decode(item)
		if err != nil {
			return nil, fmt.Errorf("解码第 %d 条事件失败: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}
