package catalog_test

import (
	"encoding/xml"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"burnloop/internal/catalog"
)

var testGeometry = catalog.Geometry{
	PrimaryCanvasMM:   100,
	SecondaryCanvasMM: 150,
	Line3SpacingMM:    4.0,
}

func style(x, y float64, color catalog.Color) catalog.Style {
	return catalog.Style{X: x, Y: y, FontSize: 5.0, Offset: 26.0, Color: color}
}

type textElement struct {
	X         string `xml:"x,attr"`
	Y         string `xml:"y,attr"`
	Style     string `xml:"style,attr"`
	Transform string `xml:"-"`
	Value     string `xml:",chardata"`
}

type groupElement struct {
	Transform string        `xml:"transform,attr"`
	Texts     []textElement `xml:"text"`
}

type svgDocument struct {
	Width   string         `xml:"width,attr"`
	Height  string         `xml:"height,attr"`
	ViewBox string         `xml:"viewBox,attr"`
	Texts   []textElement  `xml:"text"`
	Groups  []groupElement `xml:"g"`
}

// allTexts flattens top-level and group-wrapped text elements, attaching the
// group transform to its children.
func (d svgDocument) allTexts() []textElement {
	out := append([]textElement(nil), d.Texts...)
	for _, g := range d.Groups {
		for _, txt := range g.Texts {
			txt.Transform = g.Transform
			out = append(out, txt)
		}
	}
	return out
}

func parseArtifact(t *testing.T, path string) svgDocument {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Base(path), err)
	}
	var doc svgDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse %s: %v", filepath.Base(path), err)
	}
	return doc
}

func coord(t *testing.T, raw string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		t.Fatalf("parse coordinate %q: %v", raw, err)
	}
	return v
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func findText(t *testing.T, doc svgDocument, value string, x, y float64) textElement {
	t.Helper()
	for _, txt := range doc.allTexts() {
		if strings.TrimSpace(txt.Value) == value && near(coord(t, txt.X), x) && near(coord(t, txt.Y), y) {
			return txt
		}
	}
	t.Fatalf("no instance of %q at (%v, %v)", value, x, y)
	return textElement{}
}

func countText(t *testing.T, doc svgDocument, value string) int {
	t.Helper()
	n := 0
	for _, txt := range doc.allTexts() {
		if strings.TrimSpace(txt.Value) == value {
			n++
		}
	}
	return n
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	_, err := catalog.Build(t.TempDir(), catalog.Input{Copies: 1}, testGeometry)
	if !errors.Is(err, catalog.ErrEmptyCatalog) {
		t.Fatalf("err = %v, want ErrEmptyCatalog", err)
	}
}

func TestBuildRejectsBadCopies(t *testing.T) {
	in := catalog.Input{Copies: 3}
	in.Lines[0] = catalog.Line{Text: "SN-100", Style: style(50, 50, catalog.Silver)}
	if _, err := catalog.Build(t.TempDir(), in, testGeometry); err == nil {
		t.Fatal("copies=3 accepted")
	}
}

func TestBuildLineOneAlone(t *testing.T) {
	in := catalog.Input{Copies: 1}
	in.Lines[0] = catalog.Line{Text: "SN-100", Style: style(50, 50, catalog.Silver)}

	cat, err := catalog.Build(t.TempDir(), in, testGeometry)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("len = %d, want 1", cat.Len())
	}
	doc := parseArtifact(t, cat.Artifact(0))
	if !strings.HasSuffix(doc.Width, "mm") || !near(coord(t, strings.TrimSuffix(doc.Width, "mm")), 100) {
		t.Errorf("width = %q, want 100mm", doc.Width)
	}
	if doc.ViewBox == "" {
		t.Error("missing viewBox, coordinates would not be in millimeters")
	}
	if got := countText(t, doc, "SN-100"); got != 1 {
		t.Fatalf("text instances = %d, want 1", got)
	}
	txt := findText(t, doc, "SN-100", 50, 50)
	for _, want := range []string{"fill:#000000", "stroke:#000000", "stroke-width:0", "text-anchor:middle"} {
		if !strings.Contains(txt.Style, want) {
			t.Errorf("style %q missing %q", txt.Style, want)
		}
	}
}

func TestBuildTwoCopiesRotatesSecond(t *testing.T) {
	in := catalog.Input{Copies: 2}
	in.Lines[0] = catalog.Line{Text: "SN-200", Style: style(50, 50, catalog.Silver)}

	cat, err := catalog.Build(t.TempDir(), in, testGeometry)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc := parseArtifact(t, cat.Artifact(0))
	if got := countText(t, doc, "SN-200"); got != 2 {
		t.Fatalf("text instances = %d, want 2", got)
	}
	first := findText(t, doc, "SN-200", 50, 50)
	if first.Transform != "" {
		t.Errorf("first copy transformed: %q", first.Transform)
	}
	second := findText(t, doc, "SN-200", 50, 76)
	if !strings.Contains(second.Transform, "rotate(180") {
		t.Errorf("second copy transform = %q, want rotation about its anchor", second.Transform)
	}
}

func TestBuildFourCopiesGrid(t *testing.T) {
	in := catalog.Input{Copies: 4}
	in.Lines[0] = catalog.Line{Text: "SN-400", Style: style(50, 50, catalog.Brass)}

	cat, err := catalog.Build(t.TempDir(), in, testGeometry)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc := parseArtifact(t, cat.Artifact(0))
	if got := countText(t, doc, "SN-400"); got != 4 {
		t.Fatalf("text instances = %d, want 4", got)
	}
	for _, anchor := range [][2]float64{{50, 50}, {76, 50}, {50, 76}, {76, 76}} {
		txt := findText(t, doc, "SN-400", anchor[0], anchor[1])
		if txt.Transform != "" {
			t.Errorf("four-copy instance at (%v, %v) transformed: %q", anchor[0], anchor[1], txt.Transform)
		}
		if !strings.Contains(txt.Style, "fill:#0000FF") {
			t.Errorf("brass instance style %q not tagged blue", txt.Style)
		}
	}
}

func TestBuildSharedSecondArtifact(t *testing.T) {
	in := catalog.Input{Copies: 1}
	in.Lines[0] = catalog.Line{Text: "SN-1", Style: style(50, 50, catalog.Silver)}
	in.Lines[1] = catalog.Line{Text: "SN-2", Style: style(50, 52, catalog.Plastic)}
	in.Lines[2] = catalog.Line{Text: "SN-3", Style: style(50, 54, catalog.Stainless)}

	cat, err := catalog.Build(t.TempDir(), in, testGeometry)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("len = %d, want 2", cat.Len())
	}
	doc := parseArtifact(t, cat.Artifact(1))
	if !near(coord(t, strings.TrimSuffix(doc.Width, "mm")), 150) {
		t.Errorf("secondary width = %q, want 150mm", doc.Width)
	}
	if countText(t, doc, "SN-1") != 0 {
		t.Error("line one leaked into shared artifact")
	}
	two := findText(t, doc, "SN-2", 50, 52)
	if !strings.Contains(two.Style, "fill:#FF0000") {
		t.Errorf("plastic line style %q not tagged red", two.Style)
	}
	// Line three follows line two at the fixed spacing, not its own preset.
	three := findText(t, doc, "SN-3", 50, 56)
	if !strings.Contains(three.Style, "fill:#00FF00") {
		t.Errorf("stainless line style %q not tagged green", three.Style)
	}
}

func TestBuildLineThreeAloneKeepsOwnPosition(t *testing.T) {
	in := catalog.Input{Copies: 1}
	in.Lines[2] = catalog.Line{Text: "SN-3", Style: style(50, 54, catalog.Silver)}

	cat, err := catalog.Build(t.TempDir(), in, testGeometry)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("len = %d, want 1", cat.Len())
	}
	doc := parseArtifact(t, cat.Artifact(0))
	findText(t, doc, "SN-3", 50, 54)
}

func TestNormalizeColor(t *testing.T) {
	cases := []struct {
		in   string
		want catalog.Color
	}{
		{"Silver", catalog.Silver},
		{" brass ", catalog.Brass},
		{"PLASTIC", catalog.Plastic},
		{"stainless", catalog.Stainless},
		{"", catalog.Silver},
		{"chartreuse", catalog.Silver},
	}
	for _, tc := range cases {
		if got := catalog.NormalizeColor(tc.in); got != tc.want {
			t.Errorf("NormalizeColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWeekStamp(t *testing.T) {
	// 2026-01-01 falls in ISO week 1 of 2026.
	if stamp := catalog.WeekStamp(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)); stamp != "0126" {
		t.Fatalf("stamp = %q, want %q", stamp, "0126")
	}
	// 2024-12-30 belongs to ISO week 1 of 2025.
	if stamp := catalog.WeekStamp(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC)); stamp != "0125" {
		t.Fatalf("stamp = %q, want %q", stamp, "0125")
	}
}
