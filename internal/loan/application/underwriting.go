package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

// 授信决策类别
const (
	decisionApprove   = "approve"
	decisionReject    = "reject"
	decisionDocuments = "documents"
)

// uwFacts 授信规则表的输入事实
type uwFacts struct {
	creditScore    int
	limit          decimal.Decimal
	amount         decimal.Decimal
	emi            decimal.Decimal
	income         decimal.Decimal
	requiredDocs   []string
	missingDocs    []string
	unverifiedDocs []string
	docReasons     map[string]string
}

// uwDecision 授信规则表的产出
type uwDecision struct {
	kind   string
	reason string
}

// UnderwritingEvaluator 授信阶段评估器。决策树为有序规则表，
// 自上而下求值、首个命中生效，便于独立测试与审计。
type UnderwritingEvaluator struct {
	bureau    domain.CreditBureauOracle
	offers    domain.OfferOracle
	sanctions *domain.SanctionGenerator

	annualRatePct        decimal.Decimal
	minCreditScore       int
	multiplier           decimal.Decimal
	emiIncomeCap         decimal.Decimal
	largeAmountThreshold decimal.Decimal

	rules  []domain.Rule[uwFacts, uwDecision]
	logger *slog.Logger
}

// UnderwritingConfig 授信业务参数
type UnderwritingConfig struct {
	AnnualRatePct         float64
	MinCreditScore        int
	PreApprovedMultiplier float64
	EMIIncomeCapPct       float64
	LargeAmountThreshold  float64
}

// NewUnderwritingEvaluator 创建授信评估器
func NewUnderwritingEvaluator(
	bureau domain.CreditBureauOracle,
	offers domain.OfferOracle,
	sanctions *domain.SanctionGenerator,
	cfg UnderwritingConfig,
	logger *slog.Logger,
) *UnderwritingEvaluator {
	e := &UnderwritingEvaluator{
		bureau:               bureau,
		offers:               offers,
		sanctions:            sanctions,
		annualRatePct:        decimal.NewFromFloat(cfg.AnnualRatePct),
		minCreditScore:       cfg.MinCreditScore,
		multiplier:           decimal.NewFromFloat(cfg.PreApprovedMultiplier),
		emiIncomeCap:         decimal.NewFromFloat(cfg.EMIIncomeCapPct).Div(decimal.NewFromInt(100)),
		largeAmountThreshold: decimal.NewFromFloat(cfg.LargeAmountThreshold),
		logger:               logger,
	}
	e.rules = e.buildRules()
	return e
}

// buildRules 构建授信决策规则表，顺序即策略
func (e *UnderwritingEvaluator) buildRules() []domain.Rule[uwFacts, uwDecision] {
	return []domain.Rule[uwFacts, uwDecision]{
		{
			Name: "credit_score_floor",
			When: func(f uwFacts) bool { return f.creditScore < e.minCreditScore },
			Then: func(f uwFacts) uwDecision {
				return uwDecision{kind: decisionReject, reason: fmt.Sprintf("Credit score below %d.", e.minCreditScore)}
			},
		},
		{
			Name: "offer_unavailable",
			When: func(f uwFacts) bool { return f.limit.Sign() <= 0 },
			Then: func(f uwFacts) uwDecision {
				return uwDecision{kind: decisionReject, reason: "Pre-approved offer unavailable."}
			},
		},
		{
			Name: "within_pre_approved_limit",
			When: func(f uwFacts) bool { return f.amount.LessThanOrEqual(f.limit) },
			Then: func(f uwFacts) uwDecision { return uwDecision{kind: decisionApprove} },
		},
		{
			Name: "within_multiplier_documents_pending",
			When: func(f uwFacts) bool {
				return f.amount.LessThanOrEqual(f.limit.Mul(e.multiplier)) &&
					(len(f.missingDocs) > 0 || len(f.unverifiedDocs) > 0)
			},
			Then: func(f uwFacts) uwDecision { return uwDecision{kind: decisionDocuments} },
		},
		{
			Name: "within_multiplier_affordable",
			When: func(f uwFacts) bool {
				return f.amount.LessThanOrEqual(f.limit.Mul(e.multiplier)) &&
					f.emi.LessThanOrEqual(f.income.Mul(e.emiIncomeCap))
			},
			Then: func(f uwFacts) uwDecision { return uwDecision{kind: decisionApprove} },
		},
		{
			Name: "within_multiplier_unaffordable",
			When: func(f uwFacts) bool { return f.amount.LessThanOrEqual(f.limit.Mul(e.multiplier)) },
			Then: func(f uwFacts) uwDecision {
				return uwDecision{kind: decisionReject, reason: fmt.Sprintf("EMI exceeds %s%% of monthly salary.", e.emiIncomeCap.Mul(decimal.NewFromInt(100)).String())}
			},
		},
		{
			Name: "exceeds_multiplier",
			When: func(f uwFacts) bool { return true },
			Then: func(f uwFacts) uwDecision {
				return uwDecision{kind: decisionReject, reason: fmt.Sprintf("Requested amount exceeds %sx pre-approved limit.", e.multiplier.String())}
			},
		},
	}
}

// Evaluate 处理一轮授信评估
func (e *UnderwritingEvaluator) Evaluate(ctx context.Context, app *domain.LoanApplication) (outcome, error) {
	// 前置条件：收入、金额、期限齐备，否则回退开案阶段
	if app.MonthlyIncome == nil || app.Amount == nil || app.TenureMonths == nil {
		return outcome{
			reply:     "I still need your income, loan amount, and tenure to complete underwriting.",
			next:      domain.StageDiscovery,
			backtrack: true,
		}, nil
	}

	// 征信分取数一次后缓存；征信不可用时不得批准（fail closed），
	// 本轮以可恢复错误上抛，检查点不落库，输入可安全重放
	if app.CreditScore == nil {
		score, err := e.bureau.Score(ctx, app.PAN, app.Aadhaar, *app.MonthlyIncome)
		if err != nil {
			return outcome{}, fmt.Errorf("credit bureau unavailable: %w", err)
		}
		if err := app.SetCreditScore(score); err != nil {
			return outcome{}, err
		}
	}

	// 预授信额度解析：核验阶段未命中时再查一次
	if app.PreApprovedLimit == nil {
		offer, err := e.offers.Lookup(ctx, app.PAN, app.Mobile, app.FullName)
		if err != nil {
			return outcome{}, fmt.Errorf("offer lookup unavailable: %w", err)
		}
		if offer != nil {
			app.SetPreApprovedOffer(offer.PreApprovedLimit, offer.CustomerID)
		}
	}

	emi := domain.CalculateEMI(*app.Amount, e.annualRatePct, *app.TenureMonths)
	ratio := domain.ComputeAffordabilityRatio(emi, *app.MonthlyIncome)
	app.SetAffordability(emi, ratio)

	limit := decimal.Zero
	if app.PreApprovedLimit != nil {
		limit = *app.PreApprovedLimit
	}
	required := app.MandatoryDocuments(e.largeAmountThreshold)
	missing := app.MissingDocuments(required)
	unverified, docReasons := app.UnverifiedDocuments(required)

	facts := uwFacts{
		creditScore:    *app.CreditScore,
		limit:          limit,
		amount:         *app.Amount,
		emi:            emi,
		income:         *app.MonthlyIncome,
		requiredDocs:   required,
		missingDocs:    missing,
		unverifiedDocs: unverified,
		docReasons:     docReasons,
	}

	decision, ruleName, _ := domain.EvaluateRules(e.rules, facts)
	e.logger.InfoContext(ctx, "underwriting decision",
		"application_id", app.ID,
		"rule", ruleName,
		"decision", decision.kind,
		"credit_score", facts.creditScore,
		"emi", emi.String(),
		"affordability_ratio", ratio.String(),
	)

	switch decision.kind {
	case decisionApprove:
		letter, err := e.sanctions.Generate(app)
		if err != nil {
			return outcome{}, fmt.Errorf("sanction generation failed: %w", err)
		}
		if err := app.Approve(letter); err != nil {
			return outcome{}, err
		}
		return outcome{reply: "Great news! Your loan has been approved. Generating your sanction letter."}, nil

	case decisionDocuments:
		app.RequestDocuments(missing, "Underwriting requirement")
		sig := domain.NewDocumentInterrupt(required, missing, unverified, docReasons)
		pending := append(append([]string{}, missing...), unverified...)
		return outcome{
			reply:   "Please upload required documents to proceed with underwriting: " + strings.Join(pending, ", ") + ".",
			suspend: sig,
		}, nil

	default:
		if err := app.Reject(decision.reason); err != nil {
			return outcome{}, err
		}
		return outcome{reply: "We cannot approve this request based on the underwriting review. " + decision.reason}, nil
	}
}
