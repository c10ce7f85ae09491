package application

import (
	"context"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

// outcome 单个阶段评估器的产出
type outcome struct {
	// 面向用户的答复
	reply string
	// 路由目标阶段，为空表示本轮停留在当前阶段
	next domain.Stage
	// 回退路由（计入反思计数）
	backtrack bool
	// 非空表示挂起等待外部输入
	suspend *domain.Interrupt
}

// 开案字段的固定追问话术
var intakePrompts = map[string]string{
	domain.FieldAmount:         "What loan amount are you looking for?",
	domain.FieldTenure:         "What tenure works best for you?",
	domain.FieldPurpose:        "What is the purpose of the loan?",
	domain.FieldEmploymentType: "Are you salaried or self-employed?",
	domain.FieldMonthlyIncome:  "What is your monthly income in INR?",
}

// SalesEvaluator 开案阶段评估器：只负责判断五项基础字段是否齐备，
// 字段合并由引擎在抽取边界完成，本评估器不得调用任何外部风控服务。
type SalesEvaluator struct {
	minTenure int
	maxTenure int
}

// NewSalesEvaluator 创建开案评估器
func NewSalesEvaluator(minTenure, maxTenure int) *SalesEvaluator {
	return &SalesEvaluator{minTenure: minTenure, maxTenure: maxTenure}
}

// Evaluate 按固定优先级追问首个缺失字段，全部齐备后推进到身份核验
func (s *SalesEvaluator) Evaluate(_ context.Context, app *domain.LoanApplication) outcome {
	// 期限越界按无效值丢弃，回到追问
	if app.TenureMonths != nil && (*app.TenureMonths < s.minTenure || *app.TenureMonths > s.maxTenure) {
		app.TenureMonths = nil
	}

	missing := app.MissingIntakeFields()
	if len(missing) > 0 {
		prompt, ok := intakePrompts[missing[0]]
		if !ok {
			prompt = "Please share the next required detail."
		}
		return outcome{
			reply:   prompt,
			suspend: domain.NewFieldInterrupt(domain.InterruptSalesInput, missing...),
		}
	}

	reply := "Thanks, I have all the loan details I need. Let's verify your identity."
	return outcome{reply: reply, next: domain.StageVerification}
}
