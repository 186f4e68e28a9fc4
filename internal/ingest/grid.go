package ingest

import "time"

// cellKey addresses one spreadsheet cell.
type cellKey struct {
	Row int
	Col int
}

// Grid is a sparse 2D cell store for spreadsheet feeds. Missing cells read
// as the empty string.
type Grid struct {
	cells   map[cellKey]string
	updated map[cellKey]time.Time
	maxRow  int
	maxCol  int
}

func NewGrid() *Grid {
	return &Grid{
		cells:   make(map[cellKey]string),
		updated: make(map[cellKey]time.Time),
	}
}

// Set stores a cell value. Negative coordinates are ignored.
func (g *Grid) Set(row, col int, value string) {
	g.SetUpdated(row, col, value, time.Time{})
}

// SetUpdated stores a cell value with its source "row updated" timestamp.
func (g *Grid) SetUpdated(row, col int, value string, updatedAt time.Time) {
	if row < 0 || col < 0 {
		return
	}
	k := cellKey{Row: row, Col: col}
	g.cells[k] = value
	if !updatedAt.IsZero() {
		g.updated[k] = updatedAt
	}
	if row > g.maxRow {
		g.maxRow = row
	}
	if col > g.maxCol {
		g.maxCol = col
	}
}

// Get returns the cell value, "" when unset.
func (g *Grid) Get(row, col int) string {
	return g.cells[cellKey{Row: row, Col: col}]
}

// UpdatedAt returns the per-cell timestamp, zero when the source had none.
func (g *Grid) UpdatedAt(row, col int) time.Time {
	return g.updated[cellKey{Row: row, Col: col}]
}

// Rows returns the highest populated row index plus one.
func (g *Grid) Rows() int {
	if len(g.cells) == 0 {
		return 0
	}
	return g.maxRow + 1
}

// Cols returns the highest populated column index plus one.
func (g *Grid) Cols() int {
	if len(g.cells) == 0 {
		return 0
	}
	return g.maxCol + 1
}

// RecordAt converts one data row into a RawRecord using headerRow's cells as
// field names. Columns with a blank header are skipped.
func (g *Grid) RecordAt(headerRow, dataRow int) *RawRecord {
	fields := make([]RawField, 0, g.Cols())
	for col := 0; col < g.Cols(); col++ {
		name := cleanText(g.Get(headerRow, col))
		if name == "" {
			continue
		}
		fields = append(fields, RawField{
			Name:      name,
			Value:     g.Get(dataRow, col),
			UpdatedAt: g.UpdatedAt(dataRow, col),
		})
	}
	return NewRawRecord(fields)
}
