package catalog

import "strings"

// Color is one of the four material palette entries. The hex value doubles
// as the layer-assignment key in the external application, so the mapping
// is fixed and exact.
type Color string

const (
	Silver    Color = "Silver"
	Brass     Color = "Brass"
	Plastic   Color = "Plastic"
	Stainless Color = "Stainless"
)

// Colors lists the canonical palette entries in display order.
var Colors = []Color{Silver, Brass, Plastic, Stainless}

var colorHex = map[Color]string{
	Silver:    "#000000",
	Brass:     "#0000FF",
	Plastic:   "#FF0000",
	Stainless: "#00FF00",
}

// Hex returns the exact fill/stroke value for the color.
func (c Color) Hex() string {
	if hex, ok := colorHex[c]; ok {
		return hex
	}
	return colorHex[Silver]
}

// NormalizeColor maps arbitrary input to a canonical palette entry. Unknown
// or blank names fall back to Silver.
func NormalizeColor(name string) Color {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	for _, c := range Colors {
		if trimmed == strings.ToLower(string(c)) {
			return c
		}
	}
	return Silver
}
