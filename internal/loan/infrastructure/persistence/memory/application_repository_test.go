package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

func TestRepositoryGetMissReturnsNil(t *testing.T) {
	repo := NewApplicationRepository()
	app, err := repo.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, app)
}

func TestRepositorySaveIsDeepCopy(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()

	app := domain.NewApplication("app-1")
	amount := decimal.NewFromInt(300000)
	app.Amount = &amount
	require.NoError(t, repo.Save(ctx, app))
	require.Equal(t, int64(1), app.Version)

	// 落库后修改原对象不得影响已保存的检查点
	mutated := decimal.NewFromInt(999999)
	app.Amount = &mutated
	app.FullName = "changed"

	loaded, err := repo.Get(ctx, "app-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, loaded.Amount.Equal(decimal.NewFromInt(300000)))
	require.Empty(t, loaded.FullName)

	// 读取结果的修改也不得写回存储
	loaded.FullName = "local only"
	again, err := repo.Get(ctx, "app-1")
	require.NoError(t, err)
	require.Empty(t, again.FullName)
}

func TestRepositorySaveIncrementsVersion(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()

	app := domain.NewApplication("app-2")
	require.NoError(t, repo.Save(ctx, app))
	require.NoError(t, repo.Save(ctx, app))
	require.Equal(t, int64(2), app.Version)

	loaded, err := repo.Get(ctx, "app-2")
	require.NoError(t, err)
	require.Equal(t, int64(2), loaded.Version)
}

func TestRepositoryReplaceResetsRecord(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()

	app := domain.NewApplication("app-3")
	app.FullName = "Rohan Sharma"
	require.NoError(t, repo.Save(ctx, app))

	require.NoError(t, repo.Replace(ctx, domain.NewApplication("app-3")))
	loaded, err := repo.Get(ctx, "app-3")
	require.NoError(t, err)
	require.Empty(t, loaded.FullName)
	require.Equal(t, int64(1), loaded.Version)

	// 重置后的记录必须还能继续保存
	require.NoError(t, repo.Save(ctx, loaded))
	require.Equal(t, int64(2), loaded.Version)
}

func TestRepositoryCountPendingInterrupts(t *testing.T) {
	repo := NewApplicationRepository()
	ctx := context.Background()

	active := domain.NewApplication("app-4")
	require.NoError(t, active.Suspend(domain.NewFieldInterrupt(domain.InterruptSalesInput, domain.FieldAmount)))
	require.NoError(t, repo.Save(ctx, active))
	require.NoError(t, repo.Save(ctx, domain.NewApplication("app-5")))

	count, err := repo.CountPendingInterrupts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
