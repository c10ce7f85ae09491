package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
	"github.com/wyfcoding/loanorigination/pkg/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCollector() metrics.MetricsCollector {
	return metrics.NewDefaultMetricsCollector(metrics.New("test"))
}

// --- 外部判定桩 ---

type fraudStub struct {
	score int
	flags []string
	err   error
}

func (f *fraudStub) Assess(context.Context, domain.FraudRequest) (*domain.FraudAssessment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.FraudAssessment{RiskScore: f.score, Flags: f.flags}, nil
}

type kycStub struct {
	result domain.KYCResult
	err    error
}

func (k *kycStub) Verify(context.Context, string, string) (*domain.KYCResult, error) {
	if k.err != nil {
		return nil, k.err
	}
	r := k.result
	return &r, nil
}

type offerStub struct {
	offer *domain.PreApprovedOffer
	err   error
}

func (o *offerStub) Lookup(context.Context, string, string, string) (*domain.PreApprovedOffer, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.offer == nil {
		return nil, nil
	}
	c := *o.offer
	return &c, nil
}

type bureauStub struct {
	score int
	err   error
	calls int
}

func (b *bureauStub) Score(context.Context, string, string, decimal.Decimal) (int, error) {
	b.calls++
	if b.err != nil {
		return 0, b.err
	}
	return b.score, nil
}

// --- 引擎依赖桩 ---

type extractorStub struct {
	extract func(app *domain.LoanApplication, message string) domain.ExtractedFields
	err     error
}

func (e *extractorStub) Extract(_ context.Context, _ []domain.Message, app *domain.LoanApplication, message string) (domain.ExtractedFields, error) {
	if e.err != nil {
		return domain.ExtractedFields{}, e.err
	}
	if e.extract == nil {
		return domain.ExtractedFields{}, nil
	}
	return e.extract(app, message), nil
}

type storeStub struct {
	mu    sync.Mutex
	files map[string]string
}

func newStoreStub() *storeStub {
	return &storeStub{files: make(map[string]string)}
}

func (s *storeStub) Put(_ context.Context, appID, docType, fileName string, r io.Reader, _ int64) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	path := appID + "/" + docType + "/" + fileName
	s.mu.Lock()
	s.files[path] = string(raw)
	s.mu.Unlock()
	return path, nil
}

func (s *storeStub) Get(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	content, ok := s.files[path]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type validatorStub struct {
	verified bool
	reason   string
	err      error
}

func (v *validatorStub) Validate(context.Context, domain.Document, *domain.LoanApplication) (*domain.DocumentCheck, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &domain.DocumentCheck{Verified: v.verified, Reason: v.reason}, nil
}

type publisherStub struct {
	mu     sync.Mutex
	events []domain.ApplicationEvent
}

func (p *publisherStub) Publish(_ context.Context, event domain.ApplicationEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *publisherStub) byType(typ domain.EventType) []domain.ApplicationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.ApplicationEvent
	for _, ev := range p.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// --- 构造辅助 ---

func defaultUnderwritingConfig() UnderwritingConfig {
	return UnderwritingConfig{
		AnnualRatePct:         12.5,
		MinCreditScore:        700,
		PreApprovedMultiplier: 2.0,
		EMIIncomeCapPct:       50,
		LargeAmountThreshold:  500000,
	}
}

func completedIntake(app *domain.LoanApplication) {
	amount := decimal.NewFromInt(300000)
	months := 24
	purpose := "education"
	emp := domain.EmploymentSelfEmployed
	income := decimal.NewFromInt(80000)
	app.Amount = &amount
	app.TenureMonths = &months
	app.Purpose = &purpose
	app.EmploymentType = &emp
	app.MonthlyIncome = &income
}

func completedIdentity(app *domain.LoanApplication) {
	app.FullName = "Rohan Sharma"
	app.Mobile = "9876543210"
	app.OTPVerified = true
	app.Email = "rohan@example.com"
	app.PAN = "ABCDE1234F"
	app.Aadhaar = "123412341234"
	consent := true
	app.KYCConsent = &consent
}
