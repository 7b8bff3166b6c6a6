package services

import (
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTextContent(t *testing.T) {
	utility := NewUtilityService()
	assert.Equal(t, "95 - 100", utility.NormalizeTextContent("  ₹95   -  ₹100 "))
	assert.Equal(t, "1,200", utility.NormalizeTextContent("Rs. 1,200"))
	assert.Equal(t, "", utility.NormalizeTextContent(""))
}

func TestIsNotAvailable(t *testing.T) {
	utility := NewUtilityService()
	for _, text := range []string{"", " TBA ", "N/A", "--", "Coming Soon"} {
		assert.True(t, utility.IsNotAvailable(text), text)
	}
	assert.False(t, utility.IsNotAvailable("Mar 15, 2024"))
}

func TestParseDate(t *testing.T) {
	utility := NewUtilityService()
	expected := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	for _, text := range []string{"2024-03-18", "Mon, Mar 18, 2024", "Mar 18, 2024", "18 Mar 2024", "18-03-2024", "18/03/2024", "2024-03-18T00:00:00Z"} {
		parsed := utility.ParseDate(text)
		require.NotNil(t, parsed, text)
		assert.True(t, parsed.Equal(expected), text)
	}
	assert.Nil(t, utility.ParseDate("TBA"))
	assert.Nil(t, utility.ParseDate("next week"))
}

func TestExtractNumeric(t *testing.T) {
	utility := NewUtilityService()
	value, ok := utility.ExtractNumeric("₹1,250.50 Cr")
	require.True(t, ok)
	assert.Equal(t, "1250.5", value.String())

	_, ok = utility.ExtractNumeric("not a number")
	assert.False(t, ok)
}

func TestParsePriceBand(t *testing.T) {
	utility := NewUtilityService()
	cases := []struct {
		text     string
		expected []string
	}{
		{"₹95 - ₹100", []string{"95", "100"}},
		{"18.00-22.00", []string{"18", "22"}},
		{"$30 to $25", []string{"25", "30"}},
		{"25", []string{"25"}},
		{"", nil},
	}
	for _, tc := range cases {
		band := utility.ParsePriceBand(tc.text)
		var got []string
		for _, v := range band {
			got = append(got, v.String())
		}
		assert.Equal(t, tc.expected, got, tc.text)
	}
}

func TestParsePriceBand_OrderedProperty(t *testing.T) {
	utility := NewUtilityService()
	properties := gopter.NewProperties(nil)

	properties.Property("a two-sided band is always ordered low to high", prop.ForAll(
		func(a, b int64) bool {
			text := decimal.NewFromInt(a).String() + " - " + decimal.NewFromInt(b).String()
			band := utility.ParsePriceBand(text)
			return len(band) == 2 && band[0].LessThanOrEqual(band[1])
		},
		gen.Int64Range(1, 100_000),
		gen.Int64Range(1, 100_000),
	))

	properties.TestingRun(t)
}

func TestExtractCompanyCodeFromText(t *testing.T) {
	utility := NewUtilityService()
	assert.Equal(t, "ACMW", utility.ExtractCompanyCodeFromText("Acme Widgets (ACMW)"))
	assert.Equal(t, "TATA", utility.ExtractCompanyCodeFromText("Tata Technologies Limited"))
	assert.Equal(t, "BHE", utility.ExtractCompanyCodeFromText("Bharat Heavy Electricals"))
	assert.Equal(t, "", utility.ExtractCompanyCodeFromText("   "))
}

func TestDetermineSector(t *testing.T) {
	utility := NewUtilityService()
	assert.Equal(t, "Technology", utility.DetermineSector("Quantum Computing Labs"))
	assert.Equal(t, "Healthcare", utility.DetermineSector("Sun Pharma"))
	assert.Equal(t, "Energy", utility.DetermineSector("Green Energy Ltd"))
	assert.Equal(t, "Finance", utility.DetermineSector("HDFC Bank"))
	assert.Equal(t, "General", utility.DetermineSector("Concrete Works"))
}

func TestCalculateIPOStatus(t *testing.T) {
	utility := NewUtilityService()
	open := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	closeDate := open.AddDate(0, 0, 3)

	assert.Equal(t, models.IPOStatusUpcoming, utility.CalculateIPOStatus(open, closeDate, open.Add(-time.Hour)))
	assert.Equal(t, models.IPOStatusActive, utility.CalculateIPOStatus(open, closeDate, open))
	assert.Equal(t, models.IPOStatusActive, utility.CalculateIPOStatus(open, closeDate, closeDate))
	assert.Equal(t, models.IPOStatusClosed, utility.CalculateIPOStatus(open, closeDate, closeDate.Add(time.Hour)))
}

func TestFindColumnByLabel(t *testing.T) {
	utility := NewUtilityService()
	headers := []string{"Company", "Opening Date", "Closing Date", "Issue Price (Rs)", "Issue Size (Rs Cr)"}

	assert.Equal(t, 0, utility.FindColumnByLabel(headers, utility.GetTargetLabelsForField("company")))
	assert.Equal(t, 1, utility.FindColumnByLabel(headers, utility.GetTargetLabelsForField("open_date")))
	assert.Equal(t, 2, utility.FindColumnByLabel(headers, utility.GetTargetLabelsForField("close_date")))
	assert.Equal(t, 3, utility.FindColumnByLabel(headers, utility.GetTargetLabelsForField("price_band")))
	assert.Equal(t, 4, utility.FindColumnByLabel(headers, utility.GetTargetLabelsForField("issue_size")))
	assert.Equal(t, -1, utility.FindColumnByLabel(headers, utility.GetTargetLabelsForField("symbol")))
}
