package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalStore 本地磁盘文件存储
// 申请材料、支付凭证落在 uploads 目录下，按单据编号分目录。
// 这是一个尽力而为的协作方：写失败只记日志，不回滚已提交的业务数据
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

// Place 把一组文件写到 ownerKey 目录下，返回 字段名->落盘文件名 的清单
func (s *LocalStore) Place(ownerKey string, files map[string][]byte) (map[string]string, error) {
	dir := filepath.Join(s.baseDir, ownerKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	manifest := make(map[string]string, len(files))
	for field, data := range files {
		name := fmt.Sprintf("%s_%d", field, time.Now().UnixMilli())
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return manifest, fmt.Errorf("写入文件 %s 失败: %w", field, err)
		}
		manifest[field] = name
	}
	return manifest, nil
}
