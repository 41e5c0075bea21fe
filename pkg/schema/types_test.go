package schema

import (
	"encoding/json"
	"testing"
)

const (
	systemProgram = "11111111111111111111111111111111"
	wrappedSOL    = "So11111111111111111111111111111111111111112"
)

func TestBuiltInTypes(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		value   any
		wantErr bool
	}{
		{"string ok", String(), "hello", false},
		{"string rejects int", String(), 42, true},
		{"int ok", Int(), 42, false},
		{"int accepts whole float", Int(), float64(42), false},
		{"int rejects fraction", Int(), 42.5, true},
		{"int accepts json number", Int(), json.Number("7"), false},
		{"int rejects json fraction", Int(), json.Number("7.5"), true},
		{"float ok", Float(), 3.14, false},
		{"float accepts int", Float(), 3, false},
		{"float rejects string", Float(), "3.14", true},
		{"bool ok", Bool(), true, false},
		{"bool rejects nil", Bool(), nil, true},
		{"address ok", Address(), systemProgram, false},
		{"address ok mint", Address(), wrappedSOL, false},
		{"address rejects bad alphabet", Address(), "0OIl0OIl", true},
		{"address rejects short key", Address(), "abc", true},
		{"address rejects non string", Address(), 12, true},
		{"any ok", Any(), map[string]any{}, false},
		{"any rejects nil", Any(), nil, true},
		{"object ok", Object(), map[string]any{"a": 1}, false},
		{"object rejects slice", Object(), []any{1}, true},
		{"slice ok", Slice(String()), []string{"a", "b"}, false},
		{"slice element error", Slice(Int()), []any{1, "x"}, true},
		{"slice rejects scalar", Slice(Int()), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("%s.Validate(%v) error = %v, wantErr %v", tt.typ.Name(), tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"string", "int", "float", "bool", "address", "any", "object", "[address]", "[[int]]"} {
		typ, err := ParseType(name)
		if err != nil {
			t.Fatalf("ParseType(%q) error = %v", name, err)
		}
		if typ.Name() != name {
			t.Errorf("ParseType(%q).Name() = %q", name, typ.Name())
		}
	}

	if _, err := ParseType("decimal"); err == nil {
		t.Error("ParseType(decimal) should fail")
	}
	if _, err := ParseTypeMap(map[string]string{"a": "[nope]"}); err == nil {
		t.Error("ParseTypeMap should propagate element errors")
	}
}

func TestCustomType(t *testing.T) {
	lamports := Custom("lamports", func(v any) error {
		if err := Int().Validate(v); err != nil {
			return err
		}
		return nil
	})
	if lamports.Name() != "lamports" {
		t.Errorf("Name() = %q", lamports.Name())
	}
	if err := lamports.Validate(10); err != nil {
		t.Errorf("Validate(10) = %v", err)
	}
	if err := lamports.Validate("10"); err == nil {
		t.Error("Validate(\"10\") should fail")
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	in := Schema{"address": Address(), "limit": Int(), "tags": Slice(String())}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out Schema
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for field, typ := range in {
		if out[field] == nil || out[field].Name() != typ.Name() {
			t.Errorf("field %s: got %v, want %s", field, out[field], typ.Name())
		}
	}

	if err := json.Unmarshal([]byte(`{"a": 1}`), &out); err == nil {
		t.Error("non-string type names should be rejected")
	}
}
