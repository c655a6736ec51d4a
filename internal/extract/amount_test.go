package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAmounts_TotalTaxLine(t *testing.T) {
	pre, final := extractAmounts("Total tax payable: Kshs. 1,500,000 amended to 1,200,000")
	assert.Equal(t, "1,500,000", pre)
	assert.Equal(t, "1,200,000", final)
}

func TestExtractAmounts_AcrossLines(t *testing.T) {
	text := "Total tax assessed: 2,400,000\nsome body text\nTotal tax after objection: 1,900,000"
	pre, final := extractAmounts(text)
	assert.Equal(t, "2,400,000", pre)
	assert.Equal(t, "1,900,000", final)
}

func TestExtractAmounts_RepeatedAmountIsNotFinal(t *testing.T) {
	pre, final := extractAmounts("Total tax due: 750,000\nTotal tax due: 750,000")
	assert.Equal(t, "750,000", pre)
	assert.Empty(t, final)
}

func TestExtractAmounts_YearTokenSkipped(t *testing.T) {
	pre, final := extractAmounts("Total tax for 2024: 1,500,000")
	assert.Equal(t, "1,500,000", pre)
	assert.Empty(t, final)
}

func TestExtractAmounts_FallbackFillsPreOnly(t *testing.T) {
	pre, final := extractAmounts("You are required to pay Kshs 250,000 within 30 days")
	assert.Equal(t, "250,000", pre)
	assert.Empty(t, final)
}

func TestExtractAmounts_FallbackRejectsSmallValues(t *testing.T) {
	pre, final := extractAmounts("You are required to pay Kshs 500 within 30 days")
	assert.Empty(t, pre)
	assert.Empty(t, final)
}

func TestExtractAmounts_NoAmounts(t *testing.T) {
	pre, final := extractAmounts("no monetary content at all")
	assert.Empty(t, pre)
	assert.Empty(t, final)
}

func TestAmountValue(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1,500,000", 1_500_000, true},
		{"750,000.50", 750_000, true},
		{"2500", 2500, true},
		{"", 0, false},
		{"12a4", 0, false},
	}
	for _, tt := range tests {
		v, ok := amountValue(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.Equal(t, tt.want, v, tt.in)
		}
	}
}
