package catalog

import (
	"fmt"
	"os"

	svg "github.com/ajstarks/svgo/float"
)

// writeArtifact renders one artifact file. The canvas is declared in
// millimeters with a matching viewBox so one user unit equals one
// millimeter and styles can use preset values directly.
func writeArtifact(path string, canvasMM float64, copies int, lines []Line) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("catalog: write artifact %s: %w", path, err)
	}

	canvas := svg.New(f)
	canvas.StartviewUnit(canvasMM, canvasMM, "mm", 0, 0, canvasMM, canvasMM)
	for _, line := range lines {
		if err := drawCopies(canvas, line, copies); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
	}
	canvas.End()

	if err := f.Close(); err != nil {
		return fmt.Errorf("catalog: write artifact %s: %w", path, err)
	}
	return nil
}

// drawCopies places the configured number of instances of one line. The
// second of two copies is rotated half a turn about its own anchor so the
// pair reads correctly on a flipped piece.
func drawCopies(canvas *svg.SVG, line Line, copies int) error {
	st := line.Style
	offsets, err := positions(copies, st.Offset)
	if err != nil {
		return err
	}
	hex := NormalizeColor(string(st.Color)).Hex()
	style := fmt.Sprintf("text-anchor:middle;font-size:%vpx;fill:%s;stroke:%s;stroke-width:0", st.FontSize, hex, hex)

	for idx, off := range offsets {
		xi, yi := st.X+off[0], st.Y+off[1]
		if copies == 2 && idx == 1 {
			canvas.Gtransform(fmt.Sprintf("rotate(180 %v %v)", xi, yi))
			canvas.Text(xi, yi, line.Text, style)
			canvas.Gend()
			continue
		}
		canvas.Text(xi, yi, line.Text, style)
	}
	return nil
}
