// Package catalog builds the ordered artifact sequence for one session.
// Up to three text lines become one or two SVG artifacts: line one alone
// occupies the first artifact, lines two and three share the second. Each
// artifact carries 1, 2 or 4 positioned instances of its text, tagged with
// a palette color the external application maps to a rendering layer.
// Construction is a pure function of its inputs plus one filesystem write
// per artifact.
package catalog
