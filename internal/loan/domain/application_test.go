package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestLetter(appID string) *SanctionLetter {
	return &SanctionLetter{Reference: "SL-TEST1234", ApplicationID: appID}
}

func TestNewApplicationDefaults(t *testing.T) {
	app := NewApplication("thread-1")
	require.Equal(t, "thread-1", app.ID)
	require.Equal(t, StageDiscovery, app.Stage)
	require.Equal(t, StatusInProgress, app.Status)
	require.False(t, app.IsTerminal())
	require.NotNil(t, app.Documents)
}

func TestApproveIsTerminalAndIdempotentGuard(t *testing.T) {
	app := NewApplication("a1")
	require.NoError(t, app.Approve(newTestLetter("a1")))
	require.Equal(t, StatusApproved, app.Status)
	require.Equal(t, StageClosure, app.Stage)
	require.True(t, app.IsTerminal())

	require.ErrorIs(t, app.Approve(newTestLetter("a1")), ErrApplicationClosed)
	require.ErrorIs(t, app.Reject("any"), ErrApplicationClosed)
	require.ErrorIs(t, app.MarkManualReview(), ErrApplicationClosed)
}

func TestRejectRequiresReasonAndIsImmutable(t *testing.T) {
	app := NewApplication("a2")
	require.ErrorIs(t, app.Reject(""), ErrReasonRequired)

	require.NoError(t, app.Reject("Credit score below 700."))
	require.Equal(t, StatusRejected, app.Status)
	require.Equal(t, StageRejected, app.Stage)
	require.Equal(t, "Credit score below 700.", app.RejectionReason)

	require.ErrorIs(t, app.Reject("another reason"), ErrApplicationClosed)
	require.Equal(t, "Credit score below 700.", app.RejectionReason)
}

func TestSanctionOnlyGeneratedOnce(t *testing.T) {
	app := NewApplication("a3")
	app.Sanction = newTestLetter("a3")
	require.ErrorIs(t, app.Approve(newTestLetter("a3")), ErrSanctionAlreadySet)
}

func TestSuspendAndClearInterrupt(t *testing.T) {
	app := NewApplication("a4")
	require.NoError(t, app.Suspend(NewFieldInterrupt(InterruptSalesInput, FieldAmount)))
	require.NotNil(t, app.Interrupt)
	require.Equal(t, StatusInProgress, app.Status)

	app.ClearInterrupt()
	require.Nil(t, app.Interrupt)
}

func TestSuspendForDocumentsMovesToAwaitingDocuments(t *testing.T) {
	app := NewApplication("a5")
	app.Stage = StageUnderwriting
	require.NoError(t, app.Suspend(NewDocumentInterrupt(
		[]string{DocBankStatement}, []string{DocBankStatement}, nil, nil)))
	require.Equal(t, StatusAwaitingDocuments, app.Status)
	require.Equal(t, StageAwaitingDocuments, app.Stage)

	app.ClearInterrupt()
	require.Equal(t, StatusInProgress, app.Status)
}

func TestSuspendOnTerminalFails(t *testing.T) {
	app := NewApplication("a6")
	require.NoError(t, app.Reject("done"))
	require.ErrorIs(t, app.Suspend(NewFieldInterrupt(InterruptSalesInput)), ErrInterruptOnTerminal)
}

func TestSetCreditScoreOnlyOnce(t *testing.T) {
	app := NewApplication("a7")
	require.NoError(t, app.SetCreditScore(720))
	require.ErrorIs(t, app.SetCreditScore(800), ErrCreditScoreCached)
	require.Equal(t, 720, *app.CreditScore)
}

func TestUpsertDocumentOverwritesByType(t *testing.T) {
	app := NewApplication("a8")
	app.UpsertDocument(Document{Type: DocBankStatement, FileName: "v1.pdf"})
	app.UpsertDocument(Document{Type: DocBankStatement, FileName: "v2.pdf"})
	require.Len(t, app.Documents, 1)
	require.Equal(t, "v2.pdf", app.Documents[DocBankStatement].FileName)
}

func TestRequestDocumentsDeduplicates(t *testing.T) {
	app := NewApplication("a9")
	app.RequestDocuments([]string{DocBankStatement, DocAddressProof}, "underwriting")
	app.RequestDocuments([]string{DocBankStatement, DocSelfiePAN}, "underwriting")
	require.Len(t, app.RequestedDocuments, 3)
}

func TestMandatoryDocumentsForSalaried(t *testing.T) {
	app := NewApplication("a10")
	emp := EmploymentSalaried
	app.EmploymentType = &emp
	amount := decimal.NewFromInt(100000)
	app.Amount = &amount

	docs := app.MandatoryDocuments(decimal.NewFromInt(500000))
	require.Equal(t, []string{DocAddressProof, DocBankStatement, DocSalarySlip, DocSelfiePAN}, docs)
}

func TestMandatoryDocumentsForSelfEmployed(t *testing.T) {
	app := NewApplication("a11")
	emp := EmploymentSelfEmployed
	app.EmploymentType = &emp
	amount := decimal.NewFromInt(100000)
	app.Amount = &amount

	docs := app.MandatoryDocuments(decimal.NewFromInt(500000))
	require.Equal(t, []string{DocAddressProof, DocBankStatement, DocSelfiePAN}, docs)
}

func TestMissingAndUnverifiedDocuments(t *testing.T) {
	app := NewApplication("a12")
	app.UpsertDocument(Document{Type: DocBankStatement, FileName: "stmt.pdf"})
	app.MarkDocumentVerified(DocBankStatement, true, "")
	app.UpsertDocument(Document{Type: DocAddressProof, FileName: "addr.pdf"})
	app.MarkDocumentVerified(DocAddressProof, false, "Address proof does not match provided Aadhaar.")

	required := []string{DocBankStatement, DocAddressProof, DocSelfiePAN}
	require.Equal(t, []string{DocSelfiePAN}, app.MissingDocuments(required))

	unverified, reasons := app.UnverifiedDocuments(required)
	require.Equal(t, []string{DocAddressProof}, unverified)
	require.Equal(t, "Address proof does not match provided Aadhaar.", reasons[DocAddressProof])
}

func TestIdentityComplete(t *testing.T) {
	app := NewApplication("a13")
	require.False(t, app.IdentityComplete())

	app.FullName = "Rohan Sharma"
	app.Mobile = "9876543210"
	app.OTPVerified = true
	app.Email = "rohan@example.com"
	app.PAN = "ABCDE1234F"
	app.Aadhaar = "123412341234"
	consent := true
	app.KYCConsent = &consent
	require.True(t, app.IdentityComplete())

	declined := false
	app.KYCConsent = &declined
	require.False(t, app.IdentityComplete())
}

func TestReflectionCounter(t *testing.T) {
	app := NewApplication("a14")
	require.Equal(t, 1, app.IncReflection())
	require.Equal(t, 2, app.IncReflection())
	require.Equal(t, 2, app.Reflections)
}
