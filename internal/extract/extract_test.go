package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kra-data/notice-cli/internal/model"
)

const sampleNotice = `TEST COMPANY LIMITED
P.O. BOX 12345, NAIROBI

RE: NOTICE OF ASSESSMENT UNDER SECTION 31 OF THE TAX PROCEDURES ACT, 2015

Dear Taxpayer,
PIN: A123456789B

This notice is dated 4TH SEPTEMBER 2025.
Total tax payable: Kshs. 1,500,000 amended to 1,200,000
Please do not hesitate to contact John Kamau or visit your station.
`

func TestExtract_FullNotice(t *testing.T) {
	e := New(model.ExtendedFields)
	rec := e.Extract(sampleNotice)

	assert.Equal(t, "4TH SEPTEMBER 2025", rec.Date)
	assert.Equal(t, "A123456789B", rec.PIN)
	assert.Equal(t, "TEST COMPANY LIMITED", rec.TaxpayerName)
	assert.Equal(t, "2024", rec.Year, "tax year is the notice year minus one")
	assert.Equal(t, "John Kamau", rec.OfficerName)
	assert.Equal(t, "NAIROBI", rec.Station)
	assert.Contains(t, rec.Notice, "TAX PROCEDURES ACT")
	assert.Equal(t, "1,500,000", rec.PreAmount)
	assert.Equal(t, "1,200,000", rec.FinalAmount)
}

func TestExtract_EmptyText(t *testing.T) {
	e := New(model.ExtendedFields)

	for _, text := range []string{"", "   ", "\n\n\t"} {
		rec := e.Extract(text)
		assert.True(t, rec.IsEmpty(), "text %q should yield an empty record", text)
	}
}

func TestExtract_NoFieldsPresent(t *testing.T) {
	e := New(model.ExtendedFields)
	rec := e.Extract("completely unrelated text with no notice content")
	assert.True(t, rec.IsEmpty())
}

func TestExtract_CoreSchemaSkipsExtendedFields(t *testing.T) {
	e := New(model.CoreFields)
	rec := e.Extract(sampleNotice)

	assert.Equal(t, "A123456789B", rec.PIN)
	assert.Empty(t, rec.Notice)
	assert.Empty(t, rec.PreAmount)
	assert.Empty(t, rec.FinalAmount)
}

func TestExtract_DateFormats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"ordinal", "issued on 4TH SEPTEMBER 2025 in Nairobi", "4TH SEPTEMBER 2025"},
		{"ordinal with comma", "issued on 21ST MARCH, 2024", "21ST MARCH, 2024"},
		{"mangled ordinal", "issued on 4ZH SEPTEMBER 2025", "4ZH SEPTEMBER 2025"},
		{"day month year", "Dated this 04 SEP 2025", "04 SEP 2025"},
		{"numeric slash", "Date: 04/09/2025", "04/09/2025"},
		{"numeric dash", "Date: 04-09-2025", "04-09-2025"},
		{"no date", "no usable content here", ""},
	}

	e := New([]string{model.FieldDate})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text)
			assert.Equal(t, tt.want, rec.Date)
		})
	}
}

func TestExtract_PIN(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled", "PIN: A123456789B", "A123456789B"},
		{"dotted label", "P.I.N. A123456789B", "A123456789B"},
		{"lowercase input", "pin: a123456789b", "A123456789B"},
		{"bare token", "reference A123456789B appears mid-sentence", "A123456789B"},
		{"too few digits", "PIN: A12345678B", ""},
		{"too many digits", "PIN: A1234567890B", ""},
		{"missing trailing letter", "PIN: A123456789", ""},
	}

	e := New([]string{model.FieldPIN})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text)
			assert.Equal(t, tt.want, rec.PIN)
		})
	}
}

func TestExtract_TaxpayerName(t *testing.T) {
	e := New([]string{model.FieldTaxpayerName})

	t.Run("corporate suffix", func(t *testing.T) {
		rec := e.Extract("KENCHIC ENTERPRISES\nP.O. BOX 100, NAIROBI")
		assert.Equal(t, "KENCHIC ENTERPRISES", rec.TaxpayerName)
	})

	t.Run("individual after pin line", func(t *testing.T) {
		rec := e.Extract("PIN: A123456789B\nJohn Mwangi Kamau, P.O. BOX 42")
		assert.Equal(t, "John Mwangi Kamau", rec.TaxpayerName)
	})

	t.Run("rejects short fragment", func(t *testing.T) {
		rec := e.Extract("PIN: A123456789B\nOf, P.O. BOX 42")
		assert.Empty(t, rec.TaxpayerName)
	})
}

func TestExtract_Year(t *testing.T) {
	e := New([]string{model.FieldDate, model.FieldYear})

	t.Run("explicit year of income", func(t *testing.T) {
		rec := e.Extract("assessment for the year 2023 follows")
		assert.Equal(t, "2023", rec.Year)
	})

	t.Run("year range", func(t *testing.T) {
		rec := e.Extract("ASSESSMENT PERIOD 2022-2023")
		assert.Equal(t, "2022-2023", rec.Year)
	})

	t.Run("derived from notice date", func(t *testing.T) {
		rec := e.Extract("issued on 4TH SEPTEMBER 2025")
		assert.Equal(t, "2024", rec.Year)
	})

	t.Run("implausible explicit year ignored", func(t *testing.T) {
		rec := e.Extract("for the year 1999, issued 4TH SEPTEMBER 2025")
		assert.Equal(t, "2024", rec.Year, "should fall through to date derivation")
	})

	t.Run("nothing available", func(t *testing.T) {
		rec := e.Extract("no date and no year mention")
		assert.Empty(t, rec.Year)
	})
}

func TestExtract_OfficerName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"contact or", "do not hesitate to contact Jane Wanjiku or call us", "Jane Wanjiku"},
		{"plain contact", "kindly contact Peter Otieno for clarification", "Peter Otieno"},
		{"signature block", "Yours faithfully,\n\nAlice Njeri\nStation Manager", "Alice Njeri"},
		{"none", "no officer is mentioned anywhere", ""},
	}

	e := New([]string{model.FieldOfficerName})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text)
			assert.Equal(t, tt.want, rec.OfficerName)
		})
	}
}

func TestExtract_Station(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"before station keyword", "report to THIKA STATION immediately", "THIKA"},
		{"known town near box", "P.O. BOX 99, MOMBASA", "MOMBASA"},
		{"known town bare", "the taxpayer operates in Kisumu county", "KISUMU"},
		{"bare nairobi is letterhead", "Times Tower, Nairobi\nplease respond promptly", ""},
		{"letterhead does not shadow real station", "Times Tower, Nairobi\nyour file is held at our Mombasa desk", "MOMBASA"},
		{"nairobi box address still counts", "P.O. BOX 12345, NAIROBI", "NAIROBI"},
		{"none", "no station here", ""},
	}

	e := New([]string{model.FieldStation})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text)
			assert.Equal(t, tt.want, rec.Station)
		})
	}
}

func TestExtract_Notice(t *testing.T) {
	e := New([]string{model.FieldNotice})

	t.Run("tax procedures act subject", func(t *testing.T) {
		rec := e.Extract("RE: NOTICE OF ASSESSMENT UNDER THE TAX PROCEDURES ACT, 2015\nbody")
		require.NotEmpty(t, rec.Notice)
		assert.Contains(t, rec.Notice, "TAX PROCEDURES ACT")
	})

	t.Run("generic re line", func(t *testing.T) {
		rec := e.Extract("RE: Demand for outstanding returns\nbody follows")
		assert.Equal(t, "Demand for outstanding returns", rec.Notice)
	})
}

func TestExtract_Concurrent(t *testing.T) {
	e := New(model.ExtendedFields)

	done := make(chan model.Record, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- e.Extract(sampleNotice) }()
	}
	for i := 0; i < 8; i++ {
		rec := <-done
		assert.Equal(t, "A123456789B", rec.PIN)
	}
}
