package core

import (
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/EmployeeImport/internal/region"
)

// Normalize prepares a row for validation and returns a new row:
//   - the CPF column keeps only its digits; nothing left means absent
//   - a state value longer than two characters is resolved as a full name;
//     unknown names pass through unchanged so validation can reject them
//
// Normalizing an already normalized row returns an equal row.
func Normalize(row RawRow) RawRow {
	out := row.Clone()

	if v, ok := out.Get(ColumnTaxID); ok {
		out.Set(ColumnTaxID, DigitsOnly(v))
	}

	if v, ok := out.Get(ColumnState); ok {
		v = strings.TrimSpace(v)
		if utf8.RuneCountInString(v) > 2 {
			if rc, found := region.LookupFullName(v); found {
				v = rc.Code
			}
		}
		out.Set(ColumnState, v)
	}

	return out
}
