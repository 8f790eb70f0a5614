package reader

import (
	"testing"

	"lispc/types"
)

func TestReadAtoms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Value
	}{
		{"int", "42", types.NewInt(42)},
		{"negative_int", "-7", types.NewInt(-7)},
		{"float", "3.5", types.NewFloat(3.5)},
		{"exponent", "1e3", types.NewFloat(1000)},
		{"string", `"a\"b\n"`, types.NewStr("a\"b\n")},
		{"hex_escape", `"\x41"`, types.NewStr("A")},
		{"symbol", "foo-bar", types.Intern("foo-bar")},
		{"minus_symbol", "-", types.Intern("-")},
		{"keyword", ":key", types.Keyword("key")},
		{"qualified", "rt::car", types.InternIn("rt", "car")},
		{"empty_list", "()", types.Nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadOne(tt.input)
			if err != nil {
				t.Fatalf("ReadOne(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ReadOne(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadMacros(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"'x", "(quote x)"},
		{"`(a ,b ,@c)", "(quasiquote (a (unquote b) (unquote-splicing c)))"},
		{"#'car", "(function car)"},
		{"(a ; comment\n b)", "(a b)"},
	}

	for _, tt := range tests {
		got, err := ReadOne(tt.input)
		if err != nil {
			t.Fatalf("ReadOne(%q) error = %v", tt.input, err)
		}
		if got.String() != tt.want {
			t.Errorf("ReadOne(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestReadUninternedSymbolsAreDistinct(t *testing.T) {
	forms, err := Read("#:g #:g")
	if err != nil {
		t.Fatalf("Read error = %v", err)
	}
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
	if forms[0].Equal(forms[1]) {
		t.Error("uninterned symbols with the same name must not be equal")
	}
	if forms[0].String() != "#:g" {
		t.Errorf("expected #:g, got %s", forms[0])
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated_list", "(a b"},
		{"stray_paren", ")"},
		{"unterminated_string", `"abc`},
		{"trailing", "a b"},
		{"empty", ""},
		{"dispatch", "#x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadOne(tt.input)
			if err == nil {
				t.Fatalf("ReadOne(%q) expected error", tt.input)
			}
			if _, ok := err.(*SyntaxError); !ok {
				t.Errorf("expected *SyntaxError, got %T", err)
			}
		})
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := ReadOne("(a\n  )  )")
	if err == nil {
		t.Fatal("expected error")
	}
	se := err.(*SyntaxError)
	if se.Pos.Line != 2 {
		t.Errorf("expected line 2, got %d", se.Pos.Line)
	}
}
