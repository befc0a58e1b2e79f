package font

import "fmt"
import "encoding/binary"

import "golang.org/x/image/font/sfnt"
import "golang.org/x/image/math/fixed"

import xfont "golang.org/x/image/font"

// Vertical metrics of a font, expressed in font units. They are
// extracted once, at validation time, and cached on the [Asset]
// so layout code never has to touch the font tables again.
type Metrics struct {
	Ascent     int
	Descent    int
	UnitsPerEm int
}

// An error reported when uploaded bytes fail font validation.
// The reason is safe to show to end users; the wrapped error,
// when present, carries the parser detail for logging.
type ValidationError struct {
	Reason string
	cause  error
}

func (self *ValidationError) Error() string {
	if self.cause == nil {
		return self.Reason
	}
	return fmt.Sprintf("%s: %v", self.Reason, self.cause)
}

func (self *ValidationError) Unwrap() error { return self.cause }

func invalidFont(reason string, cause error) *ValidationError {
	return &ValidationError{Reason: reason, cause: cause}
}

// sfnt container tags accepted by [Parse]. Anything else (WOFF,
// WOFF2, EOT, random binaries...) is rejected before the table
// directory is even looked at.
const (
	tagTrueType  = 0x00010000
	tagAppleTrue = 0x74727565 // 'true'
	tagOpenType  = 0x4F54544F // 'OTTO'
	tagTTCF      = 0x74746366 // 'ttcf'
)

// Returns the canonical file extension for the given font bytes
// based on the container magic, or false if the magic doesn't
// correspond to any supported sfnt container.
func SniffFormat(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	switch binary.BigEndian.Uint32(data) {
	case tagTrueType, tagAppleTrue:
		return ".ttf", true
	case tagOpenType:
		return ".otf", true
	case tagTTCF:
		return ".ttc", true
	default:
		return "", false
	}
}

// Parses and validates the given font bytes. Supported containers
// are TTF, OTF and TTC; for collections, the first font is the one
// the registry operates with. The bytes must not be modified while
// the returned font is in use.
//
// Besides requiring the container structure to parse, fonts with
// degenerate metrics (zero units per em, no glyphs) are rejected
// too: they would make every later layout computation meaningless.
func Parse(data []byte) (*sfnt.Font, Metrics, error) {
	var none Metrics
	ext, ok := SniffFormat(data)
	if !ok {
		return nil, none, invalidFont("not a TTF, OTF or TTC font file", nil)
	}

	var parsed *sfnt.Font
	if ext == ".ttc" {
		collection, err := sfnt.ParseCollection(data)
		if err != nil {
			return nil, none, invalidFont("invalid font collection", err)
		}
		if collection.NumFonts() == 0 {
			return nil, none, invalidFont("font collection is empty", nil)
		}
		parsed, err = collection.Font(0)
		if err != nil {
			return nil, none, invalidFont("invalid font collection", err)
		}
	} else {
		var err error
		parsed, err = sfnt.Parse(data)
		if err != nil {
			return nil, none, invalidFont("invalid font file", err)
		}
	}

	upem := int(parsed.UnitsPerEm())
	if upem == 0 {
		return nil, none, invalidFont("font has zero units per em", nil)
	}
	if parsed.NumGlyphs() == 0 {
		return nil, none, invalidFont("font has no glyphs", nil)
	}

	// metrics requested at upem pixels per em come back in font units
	var buffer sfnt.Buffer
	metrics, err := parsed.Metrics(&buffer, fixed.I(upem), xfont.HintingNone)
	if err != nil {
		return nil, none, invalidFont("font metrics are unreadable", err)
	}
	return parsed, Metrics{
		Ascent:     metrics.Ascent.Round(),
		Descent:    metrics.Descent.Round(),
		UnitsPerEm: upem,
	}, nil
}

// Returns the full name of the given font as declared in its naming
// table, or an empty string if the table doesn't include one. Used
// to derive the identifiers of the built-in catalog.
func GetName(font *sfnt.Font) (string, error) {
	var buffer sfnt.Buffer
	name, err := font.Name(&buffer, sfnt.NameIDFull)
	if err == sfnt.ErrNotFound { return "", nil }
	return name, err
}
