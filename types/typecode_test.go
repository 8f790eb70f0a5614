package types

import "testing"

func TestTypeCodes(t *testing.T) {
	tests := []struct {
		code TypeCode
		val  int
		name string
	}{
		{TYPE_INT, 0, "INTEGER"},
		{TYPE_FLOAT, 1, "FLOAT"},
		{TYPE_STR, 2, "STRING"},
		{TYPE_SYMBOL, 3, "SYMBOL"},
		{TYPE_LIST, 4, "LIST"},
	}

	for _, tt := range tests {
		if int(tt.code) != tt.val {
			t.Errorf("Type code %s should be %d, got %d", tt.name, tt.val, int(tt.code))
		}
		if tt.code.String() != tt.name {
			t.Errorf("Type code %d should stringify to %s, got %s", tt.val, tt.name, tt.code.String())
		}
	}
}
