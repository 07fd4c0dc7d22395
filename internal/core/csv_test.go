package core

import (
	"bytes"
	"reflect"
	"testing"
)

// ============================================================================
// sanitizeUTF8 Tests
// ============================================================================

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{
			name:  "valid UTF-8 unchanged",
			input: []byte("São Paulo"),
			want:  []byte("São Paulo"),
		},
		{
			name:  "empty input",
			input: []byte{},
			want:  []byte{},
		},
		{
			name:  "invalid byte replaced with replacement char",
			input: []byte{0x80},
			want:  []byte("\uFFFD"),
		},
		{
			name:  "Latin-1 high byte replaced",
			input: []byte("Jo\xe3o"), // e3 is Latin-1 'a with tilde'
			want:  []byte("Jo\uFFFDo"),
		},
		{
			name:  "truncated multibyte sequence",
			input: []byte{0xc3},
			want:  []byte("\uFFFD"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeUTF8(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("sanitizeUTF8(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// splitLines Tests
// ============================================================================

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "bare newlines",
			input: "a,b\nc,d",
			want:  []string{"a,b", "c,d"},
		},
		{
			name:  "CRLF line endings",
			input: "a,b\r\nc,d\r\n",
			want:  []string{"a,b", "c,d"},
		},
		{
			name:  "BOM stripped",
			input: "\xEF\xBB\xBFname,email\nx,y",
			want:  []string{"name,email", "x,y"},
		},
		{
			name:  "surrounding blank lines trimmed",
			input: "\n\n  a,b\nc,d\n\n\n",
			want:  []string{"a,b", "c,d"},
		},
		{
			name:  "inner blank line kept",
			input: "a,b\n\nc,d",
			want:  []string{"a,b", "", "c,d"},
		},
		{
			name:  "whitespace only",
			input: " \r\n\t\n",
			want:  nil,
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitLines([]byte(tt.input))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitLines(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// parseLine Tests
// ============================================================================

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "plain fields",
			input: "João Silva,joao@example.com,11144477735,São Paulo,SP",
			want:  []string{"João Silva", "joao@example.com", "11144477735", "São Paulo", "SP"},
		},
		{
			name:  "quoted field with comma",
			input: `"Silva, João",joao@example.com`,
			want:  []string{"Silva, João", "joao@example.com"},
		},
		{
			name:  "escaped quote",
			input: `"The ""Boss""",x`,
			want:  []string{`The "Boss"`, "x"},
		},
		{
			name:  "empty fields preserved",
			input: "a,,c,",
			want:  []string{"a", "", "c", ""},
		},
		{
			name:  "stray quote kept literally",
			input: `O"Neil,x`,
			want:  []string{`O"Neil`, "x"},
		},
		{
			name:  "empty line is one empty field",
			input: "",
			want:  []string{""},
		},
		{
			name:  "whitespace line is one field",
			input: "   ",
			want:  []string{"   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.input)
			if err != nil {
				t.Fatalf("parseLine(%q) error = %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseLine(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// reconcileHeader Tests
// ============================================================================

func TestReconcileHeader(t *testing.T) {
	tests := []struct {
		name        string
		cells       []string
		wantColumns []string
		wantMissing []string
	}{
		{
			name:        "exact header",
			cells:       []string{"name", "email", "cpf", "city", "state"},
			wantColumns: []string{"name", "email", "cpf", "city", "state"},
		},
		{
			name:        "any order, padded",
			cells:       []string{" state ", "city", "name", "email ", "cpf"},
			wantColumns: []string{"state", "city", "name", "email", "cpf"},
		},
		{
			name:        "case must match",
			cells:       []string{"Name", "EMAIL", "Cpf", "city", "state"},
			wantColumns: []string{"Name", "EMAIL", "Cpf", "city", "state"},
			wantMissing: []string{"name", "email", "cpf"},
		},
		{
			name:        "alias is exact",
			cells:       []string{"name", "email", "TAXID", "city", "state"},
			wantColumns: []string{"name", "email", "TAXID", "city", "state"},
			wantMissing: []string{"cpf"},
		},
		{
			name:        "taxId alias",
			cells:       []string{"name", "email", "taxId", "city", "state"},
			wantColumns: []string{"name", "email", "cpf", "city", "state"},
		},
		{
			name:        "extra columns kept in position",
			cells:       []string{"id", "name", "email", "cpf", "city", "state", "phone"},
			wantColumns: []string{"id", "name", "email", "cpf", "city", "state", "phone"},
		},
		{
			name:        "missing columns reported in required order",
			cells:       []string{"name", "email"},
			wantColumns: []string{"name", "email"},
			wantMissing: []string{"cpf", "city", "state"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := reconcileHeader(tt.cells)
			if !reflect.DeepEqual(h.columns, tt.wantColumns) {
				t.Errorf("columns = %q, want %q", h.columns, tt.wantColumns)
			}
			if !reflect.DeepEqual(h.missing, tt.wantMissing) {
				t.Errorf("missing = %q, want %q", h.missing, tt.wantMissing)
			}
		})
	}
}

func TestHeaderDiagnostic(t *testing.T) {
	h := reconcileHeader([]string{"Name", "E-mail"})
	got := h.diagnostic()
	want := []string{
		"Missing required columns: name, email, cpf, city, state",
		"Columns found: Name, E-mail",
		"Expected columns: name, email, cpf, city, state",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("diagnostic() = %q, want %q", got, want)
	}
}

func TestColumnCountMessage(t *testing.T) {
	got := columnCountMessage(3, 5, 4)
	want := "Line 3: Incorrect number of columns. Expected: 5, Found: 4"
	if got != want {
		t.Errorf("columnCountMessage() = %q, want %q", got, want)
	}
}
