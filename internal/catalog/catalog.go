package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrEmptyCatalog indicates none of the three input lines carried text.
var ErrEmptyCatalog = errors.New("catalog: at least one line must be non-empty")

// Style positions and sizes one text line. All lengths are millimeters.
type Style struct {
	X        float64
	Y        float64
	FontSize float64
	// Offset is the copy spacing used when the copies multiplier places
	// more than one instance.
	Offset float64
	Color  Color
}

// Line pairs a text with its style. An empty Text means the line is unused.
type Line struct {
	Text  string
	Style Style
}

// Input is everything catalog construction needs. Copies must be 1, 2 or 4.
type Input struct {
	Lines  [3]Line
	Copies int
}

// Geometry fixes the canvas sizes and the vertical spacing applied to line
// three when line two is present on the shared artifact.
type Geometry struct {
	PrimaryCanvasMM   float64
	SecondaryCanvasMM float64
	Line3SpacingMM    float64
}

// Catalog is the ordered, read-only artifact sequence for one session.
type Catalog struct {
	artifacts []string
}

// Len reports the number of artifacts.
func (c *Catalog) Len() int {
	return len(c.artifacts)
}

// Artifact returns the path at index i.
func (c *Catalog) Artifact(i int) string {
	return c.artifacts[i]
}

// Artifacts returns a copy of the artifact paths in order.
func (c *Catalog) Artifacts() []string {
	out := make([]string, len(c.artifacts))
	copy(out, c.artifacts)
	return out
}

// WeekStamp renders the ISO week number and two-digit year, the suffix
// appended to line one so every piece carries its production week.
func WeekStamp(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%02d%02d", week, year%100)
}

// positions returns the instance offsets for a copies multiplier.
func positions(copies int, off float64) ([][2]float64, error) {
	switch copies {
	case 1:
		return [][2]float64{{0, 0}}, nil
	case 2:
		return [][2]float64{{0, 0}, {0, off}}, nil
	case 4:
		return [][2]float64{{0, 0}, {off, 0}, {0, off}, {off, off}}, nil
	default:
		return nil, fmt.Errorf("catalog: copies must be 1, 2 or 4, got %d", copies)
	}
}

// Build validates the input and writes the artifact files into dir. A write
// failure is returned as-is; callers treat it as fatal to session start.
func Build(dir string, in Input, geom Geometry) (*Catalog, error) {
	line1, line2, line3 := in.Lines[0], in.Lines[1], in.Lines[2]
	if line1.Text == "" && line2.Text == "" && line3.Text == "" {
		return nil, ErrEmptyCatalog
	}
	if _, err := positions(in.Copies, 0); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create artifact dir: %w", err)
	}

	var artifacts []string

	if line1.Text != "" {
		path := filepath.Join(dir, "job_c00.svg")
		if err := writeArtifact(path, geom.PrimaryCanvasMM, in.Copies, []Line{line1}); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, path)
	}

	if line2.Text != "" || line3.Text != "" {
		var entries []Line
		if line2.Text != "" {
			entries = append(entries, line2)
		}
		if line3.Text != "" {
			// Line three sits a fixed spacing below line two when both
			// share the artifact.
			if line2.Text != "" {
				line3.Style.Y = line2.Style.Y + geom.Line3SpacingMM
			}
			entries = append(entries, line3)
		}
		path := filepath.Join(dir, "job_c01.svg")
		if err := writeArtifact(path, geom.SecondaryCanvasMM, in.Copies, entries); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, path)
	}

	return &Catalog{artifacts: artifacts}, nil
}
