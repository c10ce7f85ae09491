package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

func newUnderwritingEvaluator(bureau *bureauStub, offers *offerStub) *UnderwritingEvaluator {
	if bureau == nil {
		bureau = &bureauStub{score: 760}
	}
	if offers == nil {
		offers = &offerStub{}
	}
	return NewUnderwritingEvaluator(
		bureau, offers,
		domain.NewSanctionGenerator(12.5, 30),
		defaultUnderwritingConfig(),
		testLogger(),
	)
}

func underwritingApp(id string) *domain.LoanApplication {
	app := domain.NewApplication(id)
	completedIntake(app)
	completedIdentity(app)
	app.Stage = domain.StageUnderwriting
	return app
}

func setLimit(app *domain.LoanApplication, limit int64) {
	l := decimal.NewFromInt(limit)
	app.PreApprovedLimit = &l
}

func TestUnderwritingBacktracksOnMissingIntake(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u1")
	app.MonthlyIncome = nil

	out, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.True(t, out.backtrack)
	require.Equal(t, domain.StageDiscovery, out.next)
	require.Equal(t, "I still need your income, loan amount, and tenure to complete underwriting.", out.reply)
}

func TestUnderwritingLowCreditScoreRejects(t *testing.T) {
	eval := newUnderwritingEvaluator(&bureauStub{score: 655}, nil)
	app := underwritingApp("u2")
	setLimit(app, 400000)

	out, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "Credit score below 700.", app.RejectionReason)
	require.Contains(t, out.reply, "underwriting review")
}

func TestUnderwritingNoOfferRejects(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, &offerStub{})
	app := underwritingApp("u3")

	_, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "Pre-approved offer unavailable.", app.RejectionReason)
}

func TestUnderwritingWithinLimitApprovesWithSanction(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u4")
	setLimit(app, 300000)

	out, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, app.Status)
	require.NotNil(t, app.Sanction)
	require.Contains(t, out.reply, "approved")
	require.True(t, app.EMI.Sign() > 0)
	require.True(t, app.AffordabilityRatio.Sign() > 0)
}

func TestUnderwritingWithinMultiplierGatesOnDocuments(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u5")
	setLimit(app, 200000) // amount 300000 <= 2x limit

	out, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.NotNil(t, out.suspend)
	require.Equal(t, domain.InterruptDocumentUpload, out.suspend.Kind)
	require.Contains(t, out.reply, "upload required documents")
	require.ElementsMatch(t,
		[]string{domain.DocBankStatement, domain.DocAddressProof, domain.DocSelfiePAN},
		out.suspend.MissingDocuments)
	require.Len(t, app.RequestedDocuments, 3)
	require.Equal(t, domain.StatusInProgress, app.Status)
}

func attachVerifiedDocuments(app *domain.LoanApplication, types ...string) {
	for _, docType := range types {
		app.UpsertDocument(domain.Document{Type: docType, FileName: docType + ".pdf"})
		app.MarkDocumentVerified(docType, true, "")
	}
}

func TestUnderwritingWithinMultiplierApprovesWhenAffordable(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u6")
	setLimit(app, 200000)
	attachVerifiedDocuments(app, domain.DocBankStatement, domain.DocAddressProof, domain.DocSelfiePAN)

	// 月收入 8 万、30 万 24 期的月供远低于 50% 上限
	out, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, app.Status)
	require.NotNil(t, app.Sanction)
	require.Nil(t, out.suspend)
}

func TestUnderwritingWithinMultiplierRejectsWhenEMIExceedsCap(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u7")
	setLimit(app, 200000)
	attachVerifiedDocuments(app, domain.DocBankStatement, domain.DocAddressProof, domain.DocSelfiePAN)
	lowIncome := decimal.NewFromInt(20000)
	app.MonthlyIncome = &lowIncome

	_, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "EMI exceeds 50% of monthly salary.", app.RejectionReason)
}

func TestUnderwritingBeyondMultiplierRejects(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u8")
	setLimit(app, 100000) // amount 300000 > 2x limit

	_, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, app.Status)
	require.Equal(t, "Requested amount exceeds 2x pre-approved limit.", app.RejectionReason)
}

func TestUnderwritingUnverifiedDocumentsKeepGate(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u9")
	setLimit(app, 200000)
	attachVerifiedDocuments(app, domain.DocBankStatement, domain.DocAddressProof)
	app.UpsertDocument(domain.Document{Type: domain.DocSelfiePAN, FileName: "selfie.pdf"})
	app.MarkDocumentVerified(domain.DocSelfiePAN, false, "Selfie PAN could not be verified against PAN.")

	out, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.NotNil(t, out.suspend)
	require.Equal(t, []string{domain.DocSelfiePAN}, out.suspend.UnverifiedDocuments)
	require.Equal(t, "Selfie PAN could not be verified against PAN.", out.suspend.Reasons[domain.DocSelfiePAN])
}

func TestUnderwritingFetchesCreditScoreOnce(t *testing.T) {
	bureau := &bureauStub{score: 760}
	eval := newUnderwritingEvaluator(bureau, nil)
	app := underwritingApp("u10")
	setLimit(app, 200000)

	_, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, 1, bureau.calls)
	require.Equal(t, 760, *app.CreditScore)

	// 材料轮重入不再取数
	_, err = eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, 1, bureau.calls)
}

func TestUnderwritingBureauErrorIsRecoverable(t *testing.T) {
	bureau := &bureauStub{err: errors.New("bureau down")}
	eval := newUnderwritingEvaluator(bureau, nil)
	app := underwritingApp("u11")
	setLimit(app, 400000)

	_, err := eval.Evaluate(context.Background(), app)
	require.Error(t, err)
	// 取数失败不得产生任何决策
	require.Equal(t, domain.StatusInProgress, app.Status)
	require.Nil(t, app.CreditScore)
}

func TestUnderwritingResolvesOfferWhenMissing(t *testing.T) {
	limit := decimal.NewFromInt(350000)
	offers := &offerStub{offer: &domain.PreApprovedOffer{CustomerID: "CUST-1003", PreApprovedLimit: limit}}
	eval := newUnderwritingEvaluator(nil, offers)
	app := underwritingApp("u12")

	_, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, app.Status)
	require.Equal(t, "CUST-1003", app.CustomerID)
}

func TestUnderwritingLargeAmountWidensDocumentSet(t *testing.T) {
	eval := newUnderwritingEvaluator(nil, nil)
	app := underwritingApp("u13")
	bigAmount := decimal.NewFromInt(600000)
	app.Amount = &bigAmount
	emp := domain.EmploymentSalaried
	app.EmploymentType = &emp
	setLimit(app, 400000)

	out, err := eval.Evaluate(context.Background(), app)
	require.NoError(t, err)
	require.NotNil(t, out.suspend)
	require.ElementsMatch(t,
		[]string{domain.DocAddressProof, domain.DocBankStatement, domain.DocSalarySlip, domain.DocSelfiePAN},
		out.suspend.RequiredDocuments)
}
