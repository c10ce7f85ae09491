// Package memory 提供基于内存的申请检查点仓储，用于测试与本地运行。
// 读写均通过 JSON 快照深拷贝，与持久化仓储的序列化语义保持一致。
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

type applicationRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewApplicationRepository 创建内存申请检查点仓储
func NewApplicationRepository() domain.ApplicationRepository {
	return &applicationRepository{records: make(map[string][]byte)}
}

func (r *applicationRepository) Get(ctx context.Context, id string) (*domain.LoanApplication, error) {
	r.mu.RLock()
	raw, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var app domain.LoanApplication
	if err := json.Unmarshal(raw, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) Save(ctx context.Context, app *domain.LoanApplication) error {
	app.Version++
	raw, err := json.Marshal(app)
	if err != nil {
		app.Version--
		return err
	}
	r.mu.Lock()
	r.records[app.ID] = raw
	r.mu.Unlock()
	return nil
}

// Replace 无条件覆盖同 id 记录，版本号从 1 起算，与 MySQL 仓储语义一致
func (r *applicationRepository) Replace(ctx context.Context, app *domain.LoanApplication) error {
	app.Version++
	raw, err := json.Marshal(app)
	if err != nil {
		app.Version--
		return err
	}
	r.mu.Lock()
	r.records[app.ID] = raw
	r.mu.Unlock()
	return nil
}

func (r *applicationRepository) CountPendingInterrupts(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, raw := range r.records {
		var app domain.LoanApplication
		if err := json.Unmarshal(raw, &app); err != nil {
			return 0, err
		}
		if app.Interrupt != nil {
			count++
		}
	}
	return count, nil
}
