package item

import "fmt"

// Location is a normalized source position. Lines and columns are 1-based
// and the end position is inclusive. Every producer coordinate system is
// converted to this convention at the boundary; nothing downstream may
// re-interpret offsets.
type Location struct {
	Path      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// NewLocation builds a Location from coordinates already in the 1-based,
// end-inclusive convention. A zero end position is filled from the start,
// so point locations can omit it.
func NewLocation(path string, startLine, startCol, endLine, endCol int) Location {
	if endLine == 0 {
		endLine = startLine
	}
	if endCol == 0 {
		endCol = startCol
	}
	return Location{
		Path:      path,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
	}
}

// LocationFromZeroBased converts a 0-based, end-exclusive range (the common
// LSP-style shape) to the normalized convention: lines and columns shift up
// by one, and the exclusive end column shifts back onto the last included
// cell.
func LocationFromZeroBased(path string, startLine, startCol, endLine, endCol int) Location {
	loc := Location{
		Path:      path,
		StartLine: startLine + 1,
		StartCol:  startCol + 1,
		EndLine:   endLine + 1,
		EndCol:    endCol, // exclusive 0-based == inclusive 1-based
	}
	if loc.EndCol < loc.StartCol && loc.EndLine == loc.StartLine {
		loc.EndCol = loc.StartCol
	}
	return loc
}

// Valid reports whether the location is internally consistent under the
// normalized convention.
func (l Location) Valid() bool {
	if l.Path == "" || l.StartLine < 1 || l.StartCol < 1 {
		return false
	}
	if l.EndLine < l.StartLine {
		return false
	}
	if l.EndLine == l.StartLine && l.EndCol < l.StartCol {
		return false
	}
	return true
}

// Key returns the identity string for this location: path and start line
// only, ignoring columns and the end of the range.
func (l Location) Key() string {
	return fmt.Sprintf("%s:%d", l.Path, l.StartLine)
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.StartLine, l.StartCol)
}
