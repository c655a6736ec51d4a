package dedupe

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kra-data/notice-cli/internal/model"
)

// identityFields is the subset of fields that decides whether two records
// describe the same source document. Everything else may differ between
// extractions of one notice.
var identityFields = []string{
	model.FieldPIN,
	model.FieldDate,
	model.FieldTaxpayerName,
}

// IdentityKey derives a stable grouping key from the identity fields.
// Values are trimmed and uppercased before concatenation, so case and
// surrounding whitespace never split a duplicate group. md5 is used for a
// short stable digest; collision resistance is not a requirement here.
func IdentityKey(rec model.Record) string {
	var sb strings.Builder
	for _, field := range identityFields {
		fmt.Fprintf(&sb, "%s:%s|", field, strings.ToUpper(strings.TrimSpace(rec.Field(field))))
	}
	sum := md5.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
