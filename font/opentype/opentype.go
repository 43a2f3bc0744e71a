// SPDX-License-Identifier: Unlicense OR MIT

// Package opentype parses OpenType and TrueType font files into faces
// usable with a font.Collection.
package opentype

import (
	"bytes"
	"fmt"

	"github.com/go-text/typesetting/font"
	fontapi "github.com/go-text/typesetting/opentype/api/font"
	"github.com/go-text/typesetting/opentype/api/metadata"
	"github.com/go-text/typesetting/opentype/loader"

	layoutfont "github.com/glyphrun/layout/font"
)

// Face is a thread-safe representation of a loaded font. For efficiency,
// applications should construct a face for any given font file once,
// reusing it across collections.
//
// A Face retains the bytes it was parsed from so that alternative
// shaping backends can reparse the same source.
type Face struct {
	face    font.Font
	src     []byte
	aspect  metadata.Aspect
	family  string
	variant string
}

// Parse constructs a Face from source bytes.
func Parse(src []byte) (Face, error) {
	ld, err := loader.NewLoader(bytes.NewReader(src))
	if err != nil {
		return Face{}, err
	}
	fnt, aspect, family, variant, err := parseLoader(ld)
	if err != nil {
		return Face{}, fmt.Errorf("failed parsing truetype font: %w", err)
	}
	return Face{
		face:    fnt,
		src:     src,
		aspect:  aspect,
		family:  family,
		variant: variant,
	}, nil
}

// ParseCollection parses an OpenType font file, with support for
// collections. Single font files are supported, returning a slice with
// length 1. The returned fonts are wrapped in a font.FontFace with
// inferred font metadata. The only Variant inferred automatically is
// "Mono".
func ParseCollection(src []byte) ([]layoutfont.FontFace, error) {
	lds, err := loader.NewLoaders(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	out := make([]layoutfont.FontFace, len(lds))
	for i, ld := range lds {
		fnt, aspect, family, variant, err := parseLoader(ld)
		if err != nil {
			return nil, fmt.Errorf("reading font %d of collection: %s", i, err)
		}
		ff := Face{
			face:    fnt,
			src:     src,
			aspect:  aspect,
			family:  family,
			variant: variant,
		}
		out[i] = layoutfont.FontFace{
			Face: ff,
			Font: ff.Font(),
		}
	}

	return out, nil
}

// parseLoader parses the contents of the loader into a face and its metadata.
func parseLoader(ld *loader.Loader) (_ font.Font, _ metadata.Aspect, family, variant string, _ error) {
	ft, err := fontapi.NewFont(ld)
	if err != nil {
		return nil, metadata.Aspect{}, "", "", err
	}
	data := metadata.Metadata(ld)
	if data.IsMonospace {
		variant = "Mono"
	}
	return ft, data.Aspect, data.Family, variant, nil
}

// Face returns a thread-unsafe handle for this Face. Face may be
// invoked any number of times and is safe so long as each return value
// is only used by one goroutine at a time; font.Collection resolves it
// once and reuses the handle.
func (f Face) Face() font.Face {
	return &fontapi.Face{Font: f.face}
}

// Source returns the bytes the face was parsed from. Callers must not
// mutate the returned slice.
func (f Face) Source() []byte {
	return f.src
}

// Font returns a font.Font with metadata populated from the parsed
// file. The only Variant inferred automatically is "Mono".
func (f Face) Font() layoutfont.Font {
	return layoutfont.Font{
		Typeface: layoutfont.Typeface(f.family),
		Style:    f.style(),
		Weight:   f.weight(),
		Variant:  layoutfont.Variant(f.variant),
	}
}

func (f Face) style() layoutfont.Style {
	switch f.aspect.Style {
	case metadata.StyleItalic:
		return layoutfont.Italic
	case metadata.StyleNormal:
		fallthrough
	default:
		return layoutfont.Regular
	}
}

func (f Face) weight() layoutfont.Weight {
	switch f.aspect.Weight {
	case metadata.WeightThin:
		return layoutfont.Thin
	case metadata.WeightExtraLight:
		return layoutfont.ExtraLight
	case metadata.WeightLight:
		return layoutfont.Light
	case metadata.WeightNormal:
		return layoutfont.Normal
	case metadata.WeightMedium:
		return layoutfont.Medium
	case metadata.WeightSemibold:
		return layoutfont.SemiBold
	case metadata.WeightBold:
		return layoutfont.Bold
	case metadata.WeightExtraBold:
		return layoutfont.ExtraBold
	case metadata.WeightBlack:
		return layoutfont.Black
	default:
		return layoutfont.Normal
	}
}
