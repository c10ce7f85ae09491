package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMergeExtractedFillsOnlyEmptyFields(t *testing.T) {
	app := NewApplication("m1")
	existing := decimal.NewFromInt(200000)
	app.Amount = &existing
	app.FullName = "Rohan Sharma"

	newAmount := decimal.NewFromInt(999999)
	name := "Someone Else"
	income := decimal.NewFromInt(80000)
	app.MergeExtracted(ExtractedFields{
		Amount:        &newAmount,
		FullName:      &name,
		MonthlyIncome: &income,
	})

	require.True(t, app.Amount.Equal(existing), "existing amount must not be overwritten")
	require.Equal(t, "Rohan Sharma", app.FullName)
	require.True(t, app.MonthlyIncome.Equal(income))
}

func TestMergeExtractedDiscardsInvalidValues(t *testing.T) {
	app := NewApplication("m2")
	negative := decimal.NewFromInt(-5000)
	zeroTenure := 0
	badEmployment := "astronaut"
	app.MergeExtracted(ExtractedFields{
		Amount:         &negative,
		TenureMonths:   &zeroTenure,
		EmploymentType: &badEmployment,
	})
	require.Nil(t, app.Amount)
	require.Nil(t, app.TenureMonths)
	require.Nil(t, app.EmploymentType)
}

func TestMergeExtractedPurposeTriggersProfile(t *testing.T) {
	app := NewApplication("m3")
	purpose := "wedding expenses"
	app.MergeExtracted(ExtractedFields{Purpose: &purpose})
	require.NotNil(t, app.PurposeProfile)
	require.Equal(t, "wedding", app.PurposeProfile.Category)
	require.Equal(t, 24, app.PurposeProfile.SuggestedTenureMonths)
}

func TestMissingIntakeFieldsOrder(t *testing.T) {
	app := NewApplication("m4")
	require.Equal(t, IntakeFieldOrder, app.MissingIntakeFields())

	amount := decimal.NewFromInt(100000)
	app.Amount = &amount
	missing := app.MissingIntakeFields()
	require.Equal(t, FieldTenure, missing[0])
	require.Len(t, missing, 4)
	require.False(t, app.IntakeComplete())

	months := 24
	purpose := "education"
	emp := EmploymentSalaried
	income := decimal.NewFromInt(60000)
	app.TenureMonths = &months
	app.Purpose = &purpose
	app.EmploymentType = &emp
	app.MonthlyIncome = &income
	require.True(t, app.IntakeComplete())
}

func TestAnalyzePurpose(t *testing.T) {
	cases := []struct {
		purpose string
		want    string
	}{
		{"debt consolidation", "debt_consolidation"},
		{"medical emergency for my father", "medical"},
		{"My Wedding", "wedding"},
		{"education loan for masters", "education"},
		{"expanding my business", "business"},
		{"home renovation work", "home_renovation"},
		{"buying a boat", "other"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, AnalyzePurpose(tc.purpose).Category, "purpose %q", tc.purpose)
	}
}
