// Package storage 实现申请材料的对象存储：本地磁盘与 S3 兼容后端。
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

type localStore struct {
	baseDir string
}

// NewLocalStore 创建本地磁盘材料存储
func NewLocalStore(baseDir string) (domain.DocumentStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("storage base dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", baseDir, err)
	}
	return &localStore{baseDir: baseDir}, nil
}

// Put 同一申请同一材料类型的重复上传覆盖写入
func (s *localStore) Put(_ context.Context, applicationID, docType, fileName string, r io.Reader, _ int64) (string, error) {
	dir := filepath.Join(s.baseDir, sanitize(applicationID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitize(docType)+filepath.Ext(fileName))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return path, nil
}

func (s *localStore) Get(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// sanitize 剔除路径穿越字符
func sanitize(part string) string {
	part = strings.ReplaceAll(part, "..", "")
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, part)
}
