package core

// validation.go checks one normalized row before creation.
//
// Every field is checked and every violation is collected, in this order:
// name, email, cpf, city, state. Within a field an absent value reports
// only the "required" message. Uniqueness of email and CPF is delegated to
// an IdentifierSet so the same rules serve a whole import run (earlier rows
// plus persistent storage) or a single isolated row.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/EmployeeImport/internal/region"
)

// MaxFieldLength is the limit, in characters, for name, email and city.
const MaxFieldLength = 255

// ValidationError represents a single rule violation on a row.
type ValidationError struct {
	Line    int    // 1-based line number in the file
	Field   string // Canonical column name
	Value   string // The offending value, empty when absent
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.Line, e.Message)
}

// ValidationResult contains the result of validating a row.
type ValidationResult struct {
	Valid  bool              // True if all validations passed
	Record NormalizedRecord  // Set when Valid
	Errors []ValidationError // Rule order; empty if Valid
}

// Messages returns the line-prefixed messages of all violations.
func (r ValidationResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// IdentifierSet answers whether an email or CPF is already taken.
type IdentifierSet interface {
	EmailInUse(ctx context.Context, email string) bool
	TaxIDInUse(ctx context.Context, taxID string) bool
}

// RowValidator validates normalized rows. It is safe for concurrent use.
type RowValidator struct {
	validate *validator.Validate
}

// NewRowValidator creates a RowValidator.
func NewRowValidator() *RowValidator {
	return &RowValidator{validate: validator.New()}
}

// Validate applies all field rules to row. A nil ids skips uniqueness checks.
func (v *RowValidator) Validate(ctx context.Context, row RawRow, line int, ids IdentifierSet) ValidationResult {
	var errs []ValidationError
	fail := func(field, value, msg string) {
		errs = append(errs, ValidationError{Line: line, Field: field, Value: value, Message: msg})
	}

	name, ok := row.Get(ColumnName)
	if !ok {
		fail(ColumnName, "", "Name is required")
	} else if tooLong(name) {
		fail(ColumnName, name, "Name may not be greater than 255 characters")
	}

	email, ok := row.Get(ColumnEmail)
	if !ok {
		fail(ColumnEmail, "", "Email is required")
	} else {
		if v.validate.Var(email, "email") != nil {
			fail(ColumnEmail, email, "Email must be a valid email address")
		}
		if tooLong(email) {
			fail(ColumnEmail, email, "Email may not be greater than 255 characters")
		}
		if ids != nil && ids.EmailInUse(ctx, email) {
			fail(ColumnEmail, email, "Email is already in use")
		}
	}

	taxID, ok := row.Get(ColumnTaxID)
	if !ok {
		fail(ColumnTaxID, "", "CPF is required")
	} else {
		if len(taxID) != CPFLength {
			fail(ColumnTaxID, taxID, "CPF must have exactly 11 digits")
		} else if !ValidCPF(taxID) {
			fail(ColumnTaxID, taxID, "CPF is invalid")
		}
		if ids != nil && ids.TaxIDInUse(ctx, taxID) {
			fail(ColumnTaxID, taxID, "CPF is already in use")
		}
	}

	city, ok := row.Get(ColumnCity)
	if !ok {
		fail(ColumnCity, "", "City is required")
	} else if tooLong(city) {
		fail(ColumnCity, city, "City may not be greater than 255 characters")
	}

	state, ok := row.Get(ColumnState)
	if !ok {
		fail(ColumnState, "", "State is required")
	} else if !region.Valid(state) {
		fail(ColumnState, state, "State must be a valid Brazilian state (e.g. SP or São Paulo)")
	}

	if len(errs) > 0 {
		return ValidationResult{Errors: errs}
	}

	return ValidationResult{
		Valid: true,
		Record: NormalizedRecord{
			Name:  name,
			Email: email,
			TaxID: taxID,
			City:  city,
			State: state,
		},
	}
}

func tooLong(s string) bool {
	return utf8.RuneCountInString(s) > MaxFieldLength
}

// runIdentifiers tracks identifiers created during one import run and falls
// back to persistent storage. Emails compare case-insensitively.
type runIdentifiers struct {
	emails  map[string]struct{}
	taxIDs  map[string]struct{}
	checker UsageChecker
	logger  *slog.Logger
}

func newRunIdentifiers(checker UsageChecker, logger *slog.Logger) *runIdentifiers {
	return &runIdentifiers{
		emails:  make(map[string]struct{}),
		taxIDs:  make(map[string]struct{}),
		checker: checker,
		logger:  logger,
	}
}

func (r *runIdentifiers) EmailInUse(ctx context.Context, email string) bool {
	if _, ok := r.emails[strings.ToLower(email)]; ok {
		return true
	}
	if r.checker == nil {
		return false
	}
	exists, err := r.checker.EmailExists(ctx, email)
	if err != nil {
		// The unique constraint on creation still catches a real duplicate.
		r.logger.Warn("email usage lookup failed", "email", email, "error", err)
		return false
	}
	return exists
}

func (r *runIdentifiers) TaxIDInUse(ctx context.Context, taxID string) bool {
	if _, ok := r.taxIDs[taxID]; ok {
		return true
	}
	if r.checker == nil {
		return false
	}
	exists, err := r.checker.TaxIDExists(ctx, taxID)
	if err != nil {
		r.logger.Warn("cpf usage lookup failed", "error", err)
		return false
	}
	return exists
}

// add records the identifiers of a created employee.
func (r *runIdentifiers) add(rec NormalizedRecord) {
	r.emails[strings.ToLower(rec.Email)] = struct{}{}
	r.taxIDs[rec.TaxID] = struct{}{}
}
