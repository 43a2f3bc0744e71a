// SPDX-License-Identifier: Unlicense OR MIT

// Command layoutdump lays out a text argument and prints the
// resulting glyphs, advances and bounds. With -out it also renders
// the glyphs into a PGM image.
//
// Usage:
//
//	layoutdump -text "The quick fox" -size 24 -out dump.pgm
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"unicode/utf16"

	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"

	"github.com/glyphrun/layout/font"
	"github.com/glyphrun/layout/font/gofont"
	"github.com/glyphrun/layout/font/opentype"
	"github.com/glyphrun/layout/raster"
	"github.com/glyphrun/layout/text"
)

// tracer traces with key 'layout.text'
func tracer() tracing.Trace {
	return tracing.Select("layout.text")
}

var directions = map[string]text.Flags{
	"ltr":         text.DirLTR,
	"rtl":         text.DirRTL,
	"default-ltr": text.DirDefaultLTR,
	"default-rtl": text.DirDefaultRTL,
	"force-ltr":   text.DirForceLTR,
	"force-rtl":   text.DirForceRTL,
}

func main() {
	// set up logging
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":     "go",
		"trace.layout.text":   "Info",
		"trace.layout.font":   "Info",
		"trace.layout.raster": "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Println("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	txt := flag.String("text", "Hello, world", "Text to lay out")
	size := flag.Float64("size", 16, "Text size in pixels per em")
	dir := flag.String("dir", "default-ltr", "Direction policy [ltr|rtl|default-ltr|default-rtl|force-ltr|force-rtl]")
	fontfile := flag.String("font", "", "Extra font file to prepend to the collection")
	encrypted := flag.Bool("encrypted", false, "Lay out through the glyph codebook")
	out := flag.String("out", "", "Write a PGM raster of the glyphs to this file")
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	flag.Parse()
	switch *tlevel {
	case "Debug":
		tracer().SetTraceLevel(tracing.LevelDebug)
	case "Error":
		tracer().SetTraceLevel(tracing.LevelError)
	default:
		tracer().SetTraceLevel(tracing.LevelInfo)
	}

	flags, ok := directions[*dir]
	if !ok {
		pterm.Error.Printfln("unknown direction policy %q", *dir)
		os.Exit(2)
	}

	faces := gofont.Collection()
	if *fontfile != "" {
		src, err := os.ReadFile(*fontfile)
		if err != nil {
			pterm.Error.Printfln("reading font: %v", err)
			os.Exit(3)
		}
		extra, err := opentype.ParseCollection(src)
		if err != nil {
			pterm.Error.Printfln("parsing font: %v", err)
			os.Exit(3)
		}
		faces = append(extra, faces...)
	}
	fc, err := font.NewCollection(faces)
	if err != nil {
		pterm.Error.Printfln("building collection: %v", err)
		os.Exit(3)
	}

	units := utf16.Encode([]rune(*txt))
	paint := text.Paint{Size: float32(*size)}
	l := text.NewLayout()
	l.SetFontCollection(fc)
	if *encrypted {
		err = l.LayoutEncrypted(units, 0, len(units), flags, font.Font{}, paint)
	} else {
		err = l.LayoutText(units, 0, len(units), flags, font.Font{}, paint)
	}
	if err != nil {
		pterm.Error.Printfln("layout failed: %v", err)
		os.Exit(4)
	}

	l.Dump(os.Stdout)
	fmt.Printf("advance: %g\n", l.Advance())
	for i, a := range l.Advances(nil) {
		fmt.Printf("  unit %d: %g\n", i, a)
	}
	if b := l.Bounds(); !b.Empty() {
		fmt.Printf("bounds: (%g, %g)-(%g, %g)\n", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}
	if *encrypted {
		fmt.Printf("codebook: %d slots\n", l.CodebookSize())
	}

	if *out != "" {
		if err := writeRaster(l, float32(*size), *out); err != nil {
			pterm.Error.Printfln("writing raster: %v", err)
			os.Exit(5)
		}
		pterm.Info.Printfln("wrote %s", *out)
	}
}

// writeRaster renders the layout into a bitmap sized from its
// metrics and writes it as PGM.
func writeRaster(l *text.Layout, size float32, path string) error {
	const pad = 4
	b := l.Bounds()
	if b.Empty() {
		// Obfuscated layouts carry no ink bounds. Size from the
		// advance and em height instead.
		h := int(math.Ceil(float64(size)))
		bm := raster.NewBitmap(int(math.Ceil(float64(l.Advance())))+2*pad, h+2*pad)
		l.Draw(bm, pad, pad+h, size)
		return writePnmFile(bm, path)
	}
	x0 := pad - int(math.Floor(float64(b.Min.X)))
	y0 := pad - int(math.Floor(float64(b.Min.Y)))
	w := int(math.Ceil(float64(b.Dx()))) + 2*pad
	h := int(math.Ceil(float64(b.Dy()))) + 2*pad
	bm := raster.NewBitmap(w, h)
	l.Draw(bm, x0, y0, size)
	return writePnmFile(bm, path)
}

func writePnmFile(bm *raster.Bitmap, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bm.WritePnm(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
