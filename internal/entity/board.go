package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
)

const EmptyCell = ""

// Cell - a single board position. Coordinates are fixed at construction.
type Cell struct {
	Row     int    `json:"fila"`
	Col     int    `json:"columna"`
	Content string `json:"contenido,omitempty"`
}

func (that Cell) IsEmpty() bool {
	return that.Content == EmptyCell
}

func (that Cell) String() string {
	if that.IsEmpty() {
		return fmt.Sprintf("Cell(%d,%d) empty", that.Row, that.Col)
	}
	return fmt.Sprintf("Cell(%d,%d) with %q", that.Row, that.Col, that.Content)
}

// Board - a rows x cols grid of cells.
type Board struct {
	rows  int
	cols  int
	cells [][]Cell
}

func NewBoard(rows, cols int) (*Board, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: board size %dx%d must be positive", apperror.ErrInvalidArgument, rows, cols)
	}

	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
		for c := range cells[r] {
			cells[r][c] = Cell{Row: r, Col: c}
		}
	}

	return &Board{rows: rows, cols: cols, cells: cells}, nil
}

// MustNewBoard - like NewBoard but panics on an invalid size. Intended for fixed sizes.
func MustNewBoard(rows, cols int) *Board {
	board, err := NewBoard(rows, cols)
	if err != nil {
		panic(err)
	}
	return board
}

func (that *Board) Rows() int { return that.rows }

func (that *Board) Cols() int { return that.cols }

// CoordinatesValid - reports whether (row, col) lies inside the grid.
func (that *Board) CoordinatesValid(row, col int) bool {
	return row >= 0 && row < that.rows && col >= 0 && col < that.cols
}

func (that *Board) Get(row, col int) (Cell, error) {
	if err := that.checkCoordinates(row, col); err != nil {
		return Cell{}, err
	}
	return that.cells[row][col], nil
}

// Place - writes non-blank content at (row, col).
func (that *Board) Place(row, col int, content string) error {
	if err := that.checkCoordinates(row, col); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content must not be blank", apperror.ErrInvalidArgument)
	}

	that.cells[row][col].Content = content

	return nil
}

func (that *Board) Clear(row, col int) error {
	if err := that.checkCoordinates(row, col); err != nil {
		return err
	}

	that.cells[row][col].Content = EmptyCell

	return nil
}

func (that *Board) IsEmpty(row, col int) (bool, error) {
	cell, err := that.Get(row, col)
	if err != nil {
		return false, err
	}
	return cell.IsEmpty(), nil
}

// Row - returns a copy of row n.
func (that *Board) Row(n int) ([]Cell, error) {
	if n < 0 || n >= that.rows {
		return nil, fmt.Errorf("%w: row %d outside board %dx%d", apperror.ErrOutOfRange, n, that.rows, that.cols)
	}

	row := make([]Cell, that.cols)
	copy(row, that.cells[n])

	return row, nil
}

// Column - returns a copy of column n.
func (that *Board) Column(n int) ([]Cell, error) {
	if n < 0 || n >= that.cols {
		return nil, fmt.Errorf("%w: column %d outside board %dx%d", apperror.ErrOutOfRange, n, that.rows, that.cols)
	}

	column := make([]Cell, that.rows)
	for r := range that.cells {
		column[r] = that.cells[r][n]
	}

	return column, nil
}

// Diagonals - main and anti diagonal. Only defined for square boards.
func (that *Board) Diagonals() ([][]Cell, bool) {
	if that.rows != that.cols {
		return nil, false
	}

	primary := make([]Cell, that.rows)
	anti := make([]Cell, that.rows)
	for i := 0; i < that.rows; i++ {
		primary[i] = that.cells[i][i]
		anti[i] = that.cells[i][that.cols-1-i]
	}

	return [][]Cell{primary, anti}, true
}

func (that *Board) OccupiedCells() []Cell {
	return that.filter(func(c Cell) bool { return !c.IsEmpty() })
}

func (that *Board) EmptyCells() []Cell {
	return that.filter(Cell.IsEmpty)
}

func (that *Board) OccupiedCount() int {
	return len(that.OccupiedCells())
}

// IsFull - true when no empty cell is left.
func (that *Board) IsFull() bool {
	for _, row := range that.cells {
		for _, cell := range row {
			if cell.IsEmpty() {
				return false
			}
		}
	}
	return true
}

// Reset - empties every cell.
func (that *Board) Reset() {
	for r := range that.cells {
		for c := range that.cells[r] {
			that.cells[r][c].Content = EmptyCell
		}
	}
}

// Clone - deep copy, the result shares no cells with the receiver.
func (that *Board) Clone() *Board {
	if that == nil {
		return nil
	}

	cells := make([][]Cell, that.rows)
	for r := range that.cells {
		cells[r] = make([]Cell, that.cols)
		copy(cells[r], that.cells[r])
	}

	return &Board{rows: that.rows, cols: that.cols, cells: cells}
}

// Equal - same size and same content in every cell.
func (that *Board) Equal(other *Board) bool {
	if that == nil || other == nil {
		return that == other
	}
	if that.rows != other.rows || that.cols != other.cols {
		return false
	}

	for r := range that.cells {
		for c := range that.cells[r] {
			if that.cells[r][c] != other.cells[r][c] {
				return false
			}
		}
	}

	return true
}

// String - renders the grid with indices, "." marks an empty cell.
func (that *Board) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Board %dx%d:\n   ", that.rows, that.cols)
	for c := 0; c < that.cols; c++ {
		fmt.Fprintf(&sb, "%2d ", c)
	}
	sb.WriteString("\n")

	for r, row := range that.cells {
		fmt.Fprintf(&sb, "%2d ", r)
		for _, cell := range row {
			symbol := "."
			if !cell.IsEmpty() {
				first, _ := utf8.DecodeRuneInString(cell.Content)
				symbol = string(first)
			}
			fmt.Fprintf(&sb, "%2s ", symbol)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (that *Board) filter(keep func(Cell) bool) []Cell {
	result := make([]Cell, 0, that.rows*that.cols)
	for _, row := range that.cells {
		for _, cell := range row {
			if keep(cell) {
				result = append(result, cell)
			}
		}
	}
	return result
}

func (that *Board) checkCoordinates(row, col int) error {
	if !that.CoordinatesValid(row, col) {
		return fmt.Errorf("%w: (%d, %d) outside board %dx%d", apperror.ErrOutOfRange, row, col, that.rows, that.cols)
	}
	return nil
}

type boardJSON struct {
	Rows  int         `json:"filas"`
	Cols  int         `json:"columnas"`
	Cells [][]*string `json:"celdas"`
}

func (that *Board) MarshalJSON() ([]byte, error) {
	wire := boardJSON{Rows: that.rows, Cols: that.cols, Cells: make([][]*string, that.rows)}

	for r, row := range that.cells {
		wire.Cells[r] = make([]*string, that.cols)
		for c, cell := range row {
			if !cell.IsEmpty() {
				content := cell.Content
				wire.Cells[r][c] = &content
			}
		}
	}

	return json.Marshal(wire)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var wire boardJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	board, err := NewBoard(wire.Rows, wire.Cols)
	if err != nil {
		return err
	}

	if wire.Cells != nil && len(wire.Cells) != wire.Rows {
		return fmt.Errorf("%w: board declares %d rows but carries %d", apperror.ErrInvalidArgument, wire.Rows, len(wire.Cells))
	}

	for r, row := range wire.Cells {
		if len(row) != wire.Cols {
			return fmt.Errorf("%w: board row %d has %d cells, want %d", apperror.ErrInvalidArgument, r, len(row), wire.Cols)
		}
		for c, content := range row {
			if content != nil && *content != EmptyCell {
				board.cells[r][c].Content = *content
			}
		}
	}

	*that = *board

	return nil
}
