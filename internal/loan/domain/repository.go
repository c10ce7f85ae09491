package domain

import "context"

// ApplicationRepository 申请检查点存取端口。
// 检查点按轮次全量落库：本轮落库失败时，内存变更不得在下次读取中可见。
type ApplicationRepository interface {
	// Get 读取检查点，不存在时返回 (nil, nil)
	Get(ctx context.Context, id string) (*LoanApplication, error)
	// Save 全量写入检查点
	Save(ctx context.Context, app *LoanApplication) error
	// Replace 管理操作：以全新默认记录覆盖同 id 的既有记录
	Replace(ctx context.Context, app *LoanApplication) error
	// CountPendingInterrupts 统计正等待外部输入的申请数
	CountPendingInterrupts(ctx context.Context) (int64, error)
}
