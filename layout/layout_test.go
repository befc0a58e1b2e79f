package layout

import "math"
import "reflect"
import "strings"
import "testing"

import "golang.org/x/image/font/gofont/goregular"

import "github.com/kurinobu/StringSpotter/font"

func parseTestAsset(t *testing.T) *font.Asset {
	t.Helper()
	parsed, metrics, err := font.Parse(goregular.TTF)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	return &font.Asset{Font: parsed, Metrics: metrics}
}

func TestComputeSingleLine(t *testing.T) {
	asset := parseTestAsset(t)
	computed, err := Compute(asset, "Hello", 40, 1.5)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }

	if len(computed.Lines) != 1 { t.Fatalf("expected 1 line, got %d", len(computed.Lines)) }
	line := computed.Lines[0]
	if line.Text != "Hello" { t.Fatalf("unexpected line text %q", line.Text) }
	if line.Width <= 0 { t.Fatal("expected a positive line width") }
	if computed.Width != line.Width+2*Margin {
		t.Fatalf("expected canvas width %d, got %d", line.Width+2*Margin, computed.Width)
	}
	if line.BaselineY <= Margin {
		t.Fatalf("expected the baseline below the top margin, got %d", line.BaselineY)
	}
	if computed.Height <= 2*Margin {
		t.Fatalf("expected room for ascent and descent, got height %d", computed.Height)
	}
	if line.X != (computed.Width-line.Width)/2 {
		t.Fatalf("expected the line centered, got x = %d", line.X)
	}
}

func TestComputeSplitsOnExplicitNewlinesOnly(t *testing.T) {
	asset := parseTestAsset(t)

	computed, err := Compute(asset, "a\n\nb", 20, 1.0)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	if len(computed.Lines) != 3 { t.Fatalf("expected 3 lines, got %d", len(computed.Lines)) }
	if computed.Lines[1].Text != "" { t.Fatal("expected the middle line to be empty") }
	if computed.Lines[1].Width != 0 { t.Fatal("expected the empty line to have zero width") }

	// no auto-wrap: one long line stays one line no matter how wide
	wide, err := Compute(asset, strings.Repeat("W", 80), 100, 1.0)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	if len(wide.Lines) != 1 { t.Fatalf("expected 1 line, got %d", len(wide.Lines)) }
}

func TestComputeBaselineSpacing(t *testing.T) {
	asset := parseTestAsset(t)
	computed, err := Compute(asset, "one\ntwo\nthree", 40, 1.5)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }

	// line advance = fontSize * lineHeight = 60 px exactly
	for i := 1; i < len(computed.Lines); i++ {
		gap := computed.Lines[i].BaselineY - computed.Lines[i-1].BaselineY
		if gap != 60 { t.Fatalf("expected a 60px baseline gap, got %d", gap) }
	}
}

func TestComputeMonotonicFontSize(t *testing.T) {
	asset := parseTestAsset(t)
	prevWidth, prevHeight := 0, 0
	for _, size := range []int{1, 8, 12, 24, 48, 96, 200, 500} {
		computed, err := Compute(asset, "Size matters\nnot", size, 1.5)
		if err != nil { t.Fatalf("unexpected error at size %d: %s", size, err.Error()) }
		if computed.Width < prevWidth {
			t.Fatalf("width decreased from %d to %d at size %d", prevWidth, computed.Width, size)
		}
		if computed.Height < prevHeight {
			t.Fatalf("height decreased from %d to %d at size %d", prevHeight, computed.Height, size)
		}
		prevWidth, prevHeight = computed.Width, computed.Height
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	asset := parseTestAsset(t)
	first, err := Compute(asset, "Hello\nWorld", 40, 1.5)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	second, err := Compute(asset, "Hello\nWorld", 40, 1.5)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical layouts for identical inputs")
	}
}

func TestComputeRejectsBadArguments(t *testing.T) {
	asset := parseTestAsset(t)
	if _, err := Compute(nil, "x", 12, 1.0); err == nil {
		t.Fatal("expected an error for a nil font")
	}
	if _, err := Compute(asset, "x", 0, 1.0); err == nil {
		t.Fatal("expected an error for a zero font size")
	}
	if _, err := Compute(asset, "x", 12, math.NaN()); err == nil {
		t.Fatal("expected an error for a NaN line height")
	}
	if _, err := Compute(asset, "x", 12, math.Inf(1)); err == nil {
		t.Fatal("expected an error for an infinite line height")
	}
	if _, err := Compute(asset, "x", 12, 0); err == nil {
		t.Fatal("expected an error for a zero line height")
	}
}

func TestComputeUsesCachedMetrics(t *testing.T) {
	asset := parseTestAsset(t)
	base, err := Compute(asset, "x", 40, 1.0)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }

	// same sfnt font, doubled cached vertical metrics: the canvas
	// must grow, proving the asset metrics drive the layout
	taller := &font.Asset{
		Font: asset.Font,
		Metrics: font.Metrics{
			Ascent:     asset.Metrics.Ascent * 2,
			Descent:    asset.Metrics.Descent * 2,
			UnitsPerEm: asset.Metrics.UnitsPerEm,
		},
	}
	grown, err := Compute(taller, "x", 40, 1.0)
	if err != nil { t.Fatalf("unexpected error: %s", err.Error()) }
	if grown.Height <= base.Height {
		t.Fatalf("expected a taller canvas from taller metrics, got %d <= %d",
			grown.Height, base.Height)
	}
	if grown.Lines[0].BaselineY <= base.Lines[0].BaselineY {
		t.Fatal("expected the baseline to move down with a larger ascent")
	}
}
