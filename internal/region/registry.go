// Package region holds the closed set of Brazilian state codes accepted on
// employee records, with their full names and geographic groups.
//
// The set is static: lookups are pure functions over a table built at init
// time, and absence is reported with a boolean rather than an error.
package region

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Geographic groups used by the registry.
const (
	GroupNorte       = "Norte"
	GroupNordeste    = "Nordeste"
	GroupCentroOeste = "Centro-Oeste"
	GroupSudeste     = "Sudeste"
	GroupSul         = "Sul"
)

// Code is a single state entry.
type Code struct {
	Code     string // Two-letter code: "SP"
	FullName string // Display name, may contain diacritics: "São Paulo"
	Group    string // One of the Group* constants
}

// String returns the two-letter code.
func (c Code) String() string { return c.Code }

// codes is declaration-ordered; Codes and All preserve this order.
var codes = []Code{
	{Code: "AC", FullName: "Acre", Group: GroupNorte},
	{Code: "AL", FullName: "Alagoas", Group: GroupNordeste},
	{Code: "AP", FullName: "Amapá", Group: GroupNorte},
	{Code: "AM", FullName: "Amazonas", Group: GroupNorte},
	{Code: "BA", FullName: "Bahia", Group: GroupNordeste},
	{Code: "CE", FullName: "Ceará", Group: GroupNordeste},
	{Code: "DF", FullName: "Distrito Federal", Group: GroupCentroOeste},
	{Code: "ES", FullName: "Espírito Santo", Group: GroupSudeste},
	{Code: "GO", FullName: "Goiás", Group: GroupCentroOeste},
	{Code: "MA", FullName: "Maranhão", Group: GroupNordeste},
	{Code: "MT", FullName: "Mato Grosso", Group: GroupCentroOeste},
	{Code: "MS", FullName: "Mato Grosso do Sul", Group: GroupCentroOeste},
	{Code: "MG", FullName: "Minas Gerais", Group: GroupSudeste},
	{Code: "PA", FullName: "Pará", Group: GroupNorte},
	{Code: "PB", FullName: "Paraíba", Group: GroupNordeste},
	{Code: "PR", FullName: "Paraná", Group: GroupSul},
	{Code: "PE", FullName: "Pernambuco", Group: GroupNordeste},
	{Code: "PI", FullName: "Piauí", Group: GroupNordeste},
	{Code: "RJ", FullName: "Rio de Janeiro", Group: GroupSudeste},
	{Code: "RN", FullName: "Rio Grande do Norte", Group: GroupNordeste},
	{Code: "RS", FullName: "Rio Grande do Sul", Group: GroupSul},
	{Code: "RO", FullName: "Rondônia", Group: GroupNorte},
	{Code: "RR", FullName: "Roraima", Group: GroupNorte},
	{Code: "SC", FullName: "Santa Catarina", Group: GroupSul},
	{Code: "SP", FullName: "São Paulo", Group: GroupSudeste},
	{Code: "SE", FullName: "Sergipe", Group: GroupNordeste},
	{Code: "TO", FullName: "Tocantins", Group: GroupNorte},
}

var (
	byCode     = make(map[string]Code, len(codes))
	byFullName = make(map[string]Code, len(codes))
)

func init() {
	for _, c := range codes {
		byCode[c.Code] = c
		byFullName[Fold(c.FullName)] = c
	}
}

// Lookup returns the entry for an exact two-letter code.
func Lookup(code string) (Code, bool) {
	c, ok := byCode[code]
	return c, ok
}

// LookupFullName resolves a full state name to its entry. The candidate is
// folded with [Fold] first, so "São Paulo", "sao paulo" and "SAO_PAULO" all
// resolve to SP.
func LookupFullName(name string) (Code, bool) {
	key := Fold(name)
	if key == "" {
		return Code{}, false
	}
	c, ok := byFullName[key]
	return c, ok
}

// Valid reports whether code is one of the registry codes.
func Valid(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Codes returns the two-letter codes in declaration order.
func Codes() []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.Code
	}
	return out
}

// All returns every entry in declaration order.
func All() []Code {
	out := make([]Code, len(codes))
	copy(out, codes)
	return out
}

// ByGroup returns the entries of one geographic group.
func ByGroup(group string) []Code {
	var out []Code
	for _, c := range codes {
		if c.Group == group {
			out = append(out, c)
		}
	}
	return out
}

// Groups returns the five group names in registry order.
func Groups() []string {
	return []string{GroupNorte, GroupNordeste, GroupCentroOeste, GroupSudeste, GroupSul}
}

// Fold turns a free-form state name into its lookup key: diacritics are
// removed, letters upper-cased and every run of non-alphanumeric characters
// collapsed into a single underscore ("Mato Grosso do Sul" -> "MATO_GROSSO_DO_SUL").
func Fold(s string) string {
	// A transform chain keeps internal state, so one is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSep := false
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		pendingSep = true
	}
	return b.String()
}
