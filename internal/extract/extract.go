// Package extract 把 issue 正文解析为扁平的字段映射。
// 正文约定为重复的 "### 字段名\n值…" 块，值可以跨多行，直到下一个标题或正文结束。
package extract

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const headingPrefix = "### "

// Fields 解析正文并返回 小写字段名 -> 去除首尾空白的值。
// 无法解析的正文返回空映射而不是错误；字段缺失由校验阶段处理。
// 重复标题保留第一次出现的值并告警（保证确定性）。
func Fields(body string) map[string]string {
	fields := make(map[string]string)

	var heading string
	var lines []string

	flush := func() {
		if heading == "" {
			return
		}
		key := strings.ToLower(strings.TrimSpace(heading))
		if key == "" {
			return
		}
		if _, ok := fields[key]; ok {
			logrus.Warnf("字段 %q 重复出现，保留第一次的值", key)
			return
		}
		fields[key] = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, headingPrefix) {
			flush()
			heading = strings.TrimPrefix(line, headingPrefix)
			lines = nil
			continue
		}
		if heading != "" {
			lines = append(lines, line)
		}
	}
	flush()

	return fields
}
