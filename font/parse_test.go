package font

import "errors"
import "testing"

import "golang.org/x/image/font/gofont/goregular"

func TestParse(t *testing.T) {
	parsed, metrics, err := Parse(goregular.TTF)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	if parsed == nil { t.Fatal("expected a parsed font") }
	if metrics.UnitsPerEm == 0 { t.Fatal("expected non-zero units per em") }
	if metrics.Ascent <= 0 { t.Fatalf("expected positive ascent, got %d", metrics.Ascent) }
	if metrics.Descent <= 0 { t.Fatalf("expected positive descent, got %d", metrics.Descent) }

	name, err := GetName(parsed)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	if name == "" { t.Fatal("expected the embedded Go font to declare a name") }
}

func TestParseRejectsGarbage(t *testing.T) {
	var validationErr *ValidationError
	for _, data := range [][]byte{
		nil,
		{},
		{1, 2, 3},
		{1, 2, 3, 4, 5, 6, 7, 8},
		[]byte("wOFFnot-actually-a-woff-either"),
		[]byte("<html>surely not a font</html>"),
	} {
		_, _, err := Parse(data)
		if err == nil { t.Fatalf("expected %q to be rejected", data) }
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected a *ValidationError, got %T", err)
		}
	}
}

func TestParseRejectsTruncated(t *testing.T) {
	// valid magic bytes, broken table directory
	truncated := goregular.TTF[:64]
	_, _, err := Parse(truncated)
	if err == nil { t.Fatal("expected truncated font to be rejected") }
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a *ValidationError, got %T", err)
	}
}

func TestSniffFormat(t *testing.T) {
	ext, ok := SniffFormat(goregular.TTF)
	if !ok || ext != ".ttf" { t.Fatalf("expected (.ttf, true), got (%s, %t)", ext, ok) }

	tests := []struct {
		data []byte
		ext  string
		ok   bool
	}{
		{[]byte("OTTO----"), ".otf", true},
		{[]byte("ttcf----"), ".ttc", true},
		{[]byte("true----"), ".ttf", true},
		{[]byte("wOFF----"), "", false},
		{[]byte("wOF2----"), "", false},
		{[]byte("ab"), "", false},
	}
	for _, test := range tests {
		ext, ok := SniffFormat(test.data)
		if ext != test.ext || ok != test.ok {
			t.Fatalf("SniffFormat(%q) = (%s, %t), expected (%s, %t)",
				test.data, ext, ok, test.ext, test.ok)
		}
	}
}
