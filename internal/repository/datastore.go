// Package repository 管理本地 YAML 数据集文件：整读、追加后整写。
// 文件是事件的持久化真相，只有摄取流水线会写它。
package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"TraffixSync/internal/model"
)

// ErrWrite 数据集写入失败（对整次运行是致命错误，不能静默丢提交）
var ErrWrite = errors.New("数据集写入失败")

// Datastore YAML 数据集仓库
type Datastore struct {
	dir    string
	logger *logrus.Logger
}

// NewDatastore 创建数据集仓库，dir 为数据集目录
func NewDatastore(dir string, logger *logrus.Logger) *Datastore {
	return &Datastore{dir: dir, logger: logger}
}

// Path 数据集文件的本地路径
func (d *Datastore) Path(ds model.DatasetSpec) string {
	return filepath.Join(d.dir, ds.File)
}

// Load 整体读取一个数据集。
// 文件缺失按首次运行处理，文件损坏降级为空数据集并记录错误，都不中断流水线。
func (d *Datastore) Load(ds model.DatasetSpec) []model.Event {
	path := d.Path(ds)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			d.logger.Infof("数据集 %s 不存在，按空数据集处理", path)
		} else {
			d.logger.WithError(err).Errorf("读取数据集 %s 失败，按空数据集处理", path)
		}
		return nil
	}

	events, err := model.DecodeYAMLEvents(ds.Kind, data)
	if err != nil {
		d.logger.WithError(err).Errorf("解析数据集 %s 失败，按空数据集处理", path)
		return nil
	}
	return events
}

// Save 整体写回一个数据集。先写临时文件再重命名，避免崩溃时留下截断的文件。
func (d *Datastore) Save(ds model.DatasetSpec, events []model.Event) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: 创建目录 %s: %v", ErrWrite, d.dir, err)
	}

	data, err := yaml.Marshal(events)
	if err != nil {
		return fmt.Errorf("%w: 序列化: %v", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(d.dir, ds.File+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: 创建临时文件: %v", ErrWrite, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: 写入临时文件: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: 关闭临时文件: %v", ErrWrite, err)
	}

	if err := os.Rename(tmpPath, d.Path(ds)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: 重命名: %v", ErrWrite, err)
	}
	return nil
}
