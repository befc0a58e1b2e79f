package server

import (
	"fmt"
	"image/color"
	"math"
	"net/http"
	"strconv"
	"unicode/utf8"
)

// Validation bounds for render requests. Uploads are additionally
// capped at MaxUploadBytes before any multipart parsing happens.
const (
	MaxTextCodePoints = 100
	MinFontSize       = 1
	MaxFontSize       = 500
	MinLineHeight     = 0.5
	MaxLineHeight     = 5.0
	MaxUploadBytes    = 10 << 20 // 10 MiB
)

// InputError reports a request that failed validation. The message
// is specific and safe to return to the caller verbatim.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func badInput(format string, args ...any) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// RenderRequest is a fully validated set of rendering parameters.
// FontID is syntactically present but only resolved against the
// registry by the handler; everything else is final.
type RenderRequest struct {
	Text       string
	FontSize   int
	Color      color.RGBA
	FontID     string
	LineHeight float64
}

// parseRenderRequest validates the /generate form fields and returns
// a RenderRequest or an *InputError. It is pure: no state is touched
// and the first violation wins.
func parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	text := r.FormValue("text")
	if text == "" {
		return nil, badInput("text must not be empty")
	}
	if n := utf8.RuneCountInString(text); n > MaxTextCodePoints {
		return nil, badInput("text must be at most %d characters, got %d", MaxTextCodePoints, n)
	}

	fontSize, err := strconv.Atoi(r.FormValue("fontSize"))
	if err != nil {
		return nil, badInput("fontSize must be an integer")
	}
	if fontSize < MinFontSize || fontSize > MaxFontSize {
		return nil, badInput("fontSize must be between %d and %d", MinFontSize, MaxFontSize)
	}

	clr, err := parseHexColor(r.FormValue("color"))
	if err != nil {
		return nil, err
	}

	// ParseFloat accepts "NaN" and "Inf", and NaN slips through any
	// range comparison, so non-finite values need an explicit reject
	lineHeight, err := strconv.ParseFloat(r.FormValue("lineHeight"), 64)
	if err != nil || math.IsNaN(lineHeight) || math.IsInf(lineHeight, 0) {
		return nil, badInput("lineHeight must be a number")
	}
	if lineHeight < MinLineHeight || lineHeight > MaxLineHeight {
		return nil, badInput("lineHeight must be between %g and %g", MinLineHeight, MaxLineHeight)
	}

	fontID := r.FormValue("font")
	if fontID == "" {
		return nil, badInput("font must not be empty")
	}

	return &RenderRequest{
		Text:       text,
		FontSize:   fontSize,
		Color:      clr,
		FontID:     fontID,
		LineHeight: lineHeight,
	}, nil
}

// parseHexColor accepts exactly the #RRGGBB form, fully opaque.
func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, badInput("color must use the #RRGGBB format")
	}
	value, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, badInput("color must use the #RRGGBB format")
	}
	return color.RGBA{
		R: uint8(value >> 16),
		G: uint8(value >> 8),
		B: uint8(value),
		A: 0xFF,
	}, nil
}
