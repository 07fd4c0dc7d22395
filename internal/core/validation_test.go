package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIDs struct {
	emails map[string]bool
	taxIDs map[string]bool
}

func (s staticIDs) EmailInUse(_ context.Context, email string) bool { return s.emails[email] }
func (s staticIDs) TaxIDInUse(_ context.Context, taxID string) bool { return s.taxIDs[taxID] }

func validate(t *testing.T, r RawRow, ids IdentifierSet) ValidationResult {
	t.Helper()
	return NewRowValidator().Validate(context.Background(), Normalize(r), 2, ids)
}

// ============================================================================
// RowValidator Tests
// ============================================================================

func TestValidate_ValidRow(t *testing.T) {
	res := validate(t, row("João Silva", "joao@example.com", "111.444.777-35", "São Paulo", "São Paulo"), nil)

	require.True(t, res.Valid, res.Messages())
	assert.Empty(t, res.Errors)
	assert.Equal(t, NormalizedRecord{
		Name:  "João Silva",
		Email: "joao@example.com",
		TaxID: "11144477735",
		City:  "São Paulo",
		State: "SP",
	}, res.Record)
}

func TestValidate_AllAbsent(t *testing.T) {
	res := validate(t, row("", "", "", "", ""), nil)

	require.False(t, res.Valid)
	assert.Equal(t, []string{
		"Line 2: Name is required",
		"Line 2: Email is required",
		"Line 2: CPF is required",
		"Line 2: City is required",
		"Line 2: State is required",
	}, res.Messages())
}

func TestValidate_FieldRules(t *testing.T) {
	long := strings.Repeat("ã", MaxFieldLength+1)

	tests := []struct {
		name string
		row  RawRow
		want []string
	}{
		{
			name: "invalid state",
			row:  row("Maria Santos", "maria@example.com", "52998224725", "Rio de Janeiro", "INVALID_STATE"),
			want: []string{"Line 2: State must be a valid Brazilian state (e.g. SP or São Paulo)"},
		},
		{
			name: "lowercase code is not a code",
			row:  row("Maria Santos", "maria@example.com", "52998224725", "Rio de Janeiro", "rj"),
			want: []string{"Line 2: State must be a valid Brazilian state (e.g. SP or São Paulo)"},
		},
		{
			name: "bad email grammar",
			row:  row("Maria", "maria-at-example.com", "52998224725", "Rio", "RJ"),
			want: []string{"Line 2: Email must be a valid email address"},
		},
		{
			name: "short cpf skips checksum",
			row:  row("Maria", "maria@example.com", "123.456", "Rio", "RJ"),
			want: []string{"Line 2: CPF must have exactly 11 digits"},
		},
		{
			name: "cpf checksum",
			row:  row("Maria", "maria@example.com", "52998224724", "Rio", "RJ"),
			want: []string{"Line 2: CPF is invalid"},
		},
		{
			name: "repeated digits",
			row:  row("Maria", "maria@example.com", "111.111.111-11", "Rio", "RJ"),
			want: []string{"Line 2: CPF is invalid"},
		},
		{
			name: "cpf without digits is absent",
			row:  row("Maria", "maria@example.com", "n/a", "Rio", "RJ"),
			want: []string{"Line 2: CPF is required"},
		},
		{
			name: "long name and city",
			row:  row(long, "maria@example.com", "52998224725", long, "RJ"),
			want: []string{
				"Line 2: Name may not be greater than 255 characters",
				"Line 2: City may not be greater than 255 characters",
			},
		},
		{
			name: "several fields in rule order",
			row:  row("", "nope", "1", "", "XX"),
			want: []string{
				"Line 2: Name is required",
				"Line 2: Email must be a valid email address",
				"Line 2: CPF must have exactly 11 digits",
				"Line 2: City is required",
				"Line 2: State must be a valid Brazilian state (e.g. SP or São Paulo)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, tt.row, nil)
			require.False(t, res.Valid)
			assert.Equal(t, tt.want, res.Messages())
		})
	}
}

func TestValidate_LengthCountsCharacters(t *testing.T) {
	name := strings.Repeat("ã", MaxFieldLength) // 510 bytes, 255 characters
	res := validate(t, row(name, "ana@example.com", "52998224725", "Recife", "PE"), nil)
	assert.True(t, res.Valid, res.Messages())
}

func TestValidate_LongEmail(t *testing.T) {
	email := strings.Repeat("a", 60) + "@" + strings.Repeat("b", 200) + ".com"
	res := validate(t, row("Ana", email, "52998224725", "Recife", "PE"), nil)

	require.False(t, res.Valid)
	assert.Contains(t, res.Messages(), "Line 2: Email may not be greater than 255 characters")
}

func TestValidate_InUse(t *testing.T) {
	ids := staticIDs{
		emails: map[string]bool{"taken@example.com": true},
		taxIDs: map[string]bool{"11144477735": true},
	}

	res := validate(t, row("Ana", "taken@example.com", "111.444.777-35", "Recife", "PE"), ids)
	require.False(t, res.Valid)
	assert.Equal(t, []string{
		"Line 2: Email is already in use",
		"Line 2: CPF is already in use",
	}, res.Messages())

	res = validate(t, row("Ana", "free@example.com", "52998224725", "Recife", "PE"), ids)
	assert.True(t, res.Valid, res.Messages())
}

func TestValidationError(t *testing.T) {
	e := ValidationError{Line: 7, Field: ColumnCity, Message: "City is required"}
	assert.Equal(t, "Line 7: City is required", e.Error())
}

// ============================================================================
// runIdentifiers Tests
// ============================================================================

type fakeUsage struct {
	emails map[string]bool
	taxIDs map[string]bool
	err    error
}

func (f *fakeUsage) EmailExists(_ context.Context, email string) (bool, error) {
	return f.emails[email], f.err
}

func (f *fakeUsage) TaxIDExists(_ context.Context, taxID string) (bool, error) {
	return f.taxIDs[taxID], f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunIdentifiers(t *testing.T) {
	ctx := context.Background()

	t.Run("in-run identifiers", func(t *testing.T) {
		ids := newRunIdentifiers(nil, discardLogger())
		assert.False(t, ids.EmailInUse(ctx, "ana@example.com"))

		ids.add(NormalizedRecord{Email: "Ana@Example.com", TaxID: "52998224725"})
		assert.True(t, ids.EmailInUse(ctx, "ana@example.com"))
		assert.True(t, ids.EmailInUse(ctx, "ANA@EXAMPLE.COM"))
		assert.True(t, ids.TaxIDInUse(ctx, "52998224725"))
		assert.False(t, ids.TaxIDInUse(ctx, "11144477735"))
	})

	t.Run("persistent identifiers", func(t *testing.T) {
		usage := &fakeUsage{
			emails: map[string]bool{"old@example.com": true},
			taxIDs: map[string]bool{"11144477735": true},
		}
		ids := newRunIdentifiers(usage, discardLogger())
		assert.True(t, ids.EmailInUse(ctx, "old@example.com"))
		assert.True(t, ids.TaxIDInUse(ctx, "11144477735"))
		assert.False(t, ids.EmailInUse(ctx, "new@example.com"))
	})

	t.Run("lookup errors are treated as not in use", func(t *testing.T) {
		usage := &fakeUsage{
			emails: map[string]bool{"old@example.com": true},
			err:    errors.New("connection refused"),
		}
		ids := newRunIdentifiers(usage, discardLogger())
		assert.False(t, ids.EmailInUse(ctx, "new@example.com"))
		assert.False(t, ids.TaxIDInUse(ctx, "11144477735"))
	})
}
