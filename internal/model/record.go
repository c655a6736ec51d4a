package model

import (
	"strings"
	"time"
)

// Field names shared by the extraction cascade, the scorer, the identity
// hash and the store column layout. Values are the camelCase keys the
// master database has always used.
const (
	FieldDate         = "date"
	FieldPIN          = "pin"
	FieldTaxpayerName = "taxpayerName"
	FieldYear         = "year"
	FieldOfficerName  = "officerName"
	FieldStation      = "station"
	FieldNotice       = "notice"
	FieldPreAmount    = "preAmount"
	FieldFinalAmount  = "finalAmount"
)

// FieldNames lists every data field in canonical column order.
var FieldNames = []string{
	FieldDate,
	FieldPIN,
	FieldTaxpayerName,
	FieldYear,
	FieldOfficerName,
	FieldStation,
	FieldNotice,
	FieldPreAmount,
	FieldFinalAmount,
}

// CoreFields is the 6-field schema used by the original notice apps.
var CoreFields = []string{
	FieldDate,
	FieldPIN,
	FieldTaxpayerName,
	FieldYear,
	FieldOfficerName,
	FieldStation,
}

// ExtendedFields adds the subject line and monetary amounts.
var ExtendedFields = FieldNames

// SchemaFields returns the active field set for a schema name.
// Unknown names fall back to the extended schema.
func SchemaFields(schema string) []string {
	if schema == "core" {
		return CoreFields
	}
	return ExtendedFields
}

// Record is one extracted tax notice. Data fields hold the document's own
// text verbatim; an empty string means the field was not found. A Record is
// built once by the extractor and only replaced wholesale afterwards, never
// patched field by field.
type Record struct {
	Date         string `json:"date"`
	PIN          string `json:"pin"`
	TaxpayerName string `json:"taxpayer_name"`
	Year         string `json:"year"`
	OfficerName  string `json:"officer_name"`
	Station      string `json:"station"`
	Notice       string `json:"notice,omitempty"`
	PreAmount    string `json:"pre_amount,omitempty"`
	FinalAmount  string `json:"final_amount,omitempty"`

	// System metadata, assigned outside the extractor.
	SourceLabel     string    `json:"source_label,omitempty"`
	ExtractedAt     time.Time `json:"extracted_at,omitempty"`
	RecordID        int       `json:"record_id,omitempty"`
	MergedFromCount int       `json:"merged_from_count,omitempty"`
	MergeSources    string    `json:"merge_sources,omitempty"`
	BestScore       float64   `json:"best_score,omitempty"`
}

// Field returns the value of a data field by name.
func (r Record) Field(name string) string {
	switch name {
	case FieldDate:
		return r.Date
	case FieldPIN:
		return r.PIN
	case FieldTaxpayerName:
		return r.TaxpayerName
	case FieldYear:
		return r.Year
	case FieldOfficerName:
		return r.OfficerName
	case FieldStation:
		return r.Station
	case FieldNotice:
		return r.Notice
	case FieldPreAmount:
		return r.PreAmount
	case FieldFinalAmount:
		return r.FinalAmount
	default:
		return ""
	}
}

// SetField sets a data field by name. Unknown names are ignored.
func (r *Record) SetField(name, value string) {
	switch name {
	case FieldDate:
		r.Date = value
	case FieldPIN:
		r.PIN = value
	case FieldTaxpayerName:
		r.TaxpayerName = value
	case FieldYear:
		r.Year = value
	case FieldOfficerName:
		r.OfficerName = value
	case FieldStation:
		r.Station = value
	case FieldNotice:
		r.Notice = value
	case FieldPreAmount:
		r.PreAmount = value
	case FieldFinalAmount:
		r.FinalAmount = value
	}
}

// IsEmpty reports whether every data field is blank.
func (r Record) IsEmpty() bool {
	for _, name := range FieldNames {
		if strings.TrimSpace(r.Field(name)) != "" {
			return false
		}
	}
	return true
}

// FieldsFound counts non-empty data fields within the given field set.
func (r Record) FieldsFound(fields []string) int {
	n := 0
	for _, name := range fields {
		if strings.TrimSpace(r.Field(name)) != "" {
			n++
		}
	}
	return n
}
