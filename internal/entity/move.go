package entity

import (
	"fmt"
	"math"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
)

// NoSource - origin sentinel of a placement.
const NoSource = -1

// Move - either a placement (no source) or a translocation from source to destination.
type Move struct {
	FromRow int    `json:"filaOrigen"`
	FromCol int    `json:"columnaOrigen"`
	ToRow   int    `json:"filaDestino"`
	ToCol   int    `json:"columnaDestino"`
	Content string `json:"contenido,omitempty"`
}

func NewMove(fromRow, fromCol, toRow, toCol int, content string) (Move, error) {
	if toRow < 0 || toCol < 0 {
		return Move{}, fmt.Errorf("%w: destination (%d, %d) must not be negative", apperror.ErrOutOfRange, toRow, toCol)
	}

	if fromRow < NoSource || fromCol < NoSource {
		return Move{}, fmt.Errorf("%w: source (%d, %d) must be >= %d", apperror.ErrOutOfRange, fromRow, fromCol, NoSource)
	}

	return Move{FromRow: fromRow, FromCol: fromCol, ToRow: toRow, ToCol: toCol, Content: content}, nil
}

// Placement - a move that puts content on (row, col) without a source cell.
func Placement(row, col int, content string) (Move, error) {
	return NewMove(NoSource, NoSource, row, col, content)
}

// Relocate - a move of the piece at (fromRow, fromCol) to (toRow, toCol). Content is optional.
func Relocate(fromRow, fromCol, toRow, toCol int, content string) (Move, error) {
	return NewMove(fromRow, fromCol, toRow, toCol, content)
}

func (that Move) IsPlacement() bool {
	return that.FromRow == NoSource && that.FromCol == NoSource
}

func (that Move) IsDiagonal() bool {
	if that.IsPlacement() {
		return false
	}
	return absInt(that.ToRow-that.FromRow) == absInt(that.ToCol-that.FromCol)
}

func (that Move) IsHorizontal() bool {
	if that.IsPlacement() {
		return false
	}
	return that.FromRow == that.ToRow && that.FromCol != that.ToCol
}

func (that Move) IsVertical() bool {
	if that.IsPlacement() {
		return false
	}
	return that.FromCol == that.ToCol && that.FromRow != that.ToRow
}

// IsNull - source and destination are the same cell.
func (that Move) IsNull() bool {
	if that.IsPlacement() {
		return false
	}
	return that.FromRow == that.ToRow && that.FromCol == that.ToCol
}

func (that Move) ManhattanDistance() int {
	if that.IsPlacement() {
		return 0
	}
	return absInt(that.ToRow-that.FromRow) + absInt(that.ToCol-that.FromCol)
}

func (that Move) EuclideanDistance() float64 {
	if that.IsPlacement() {
		return 0
	}
	return math.Hypot(float64(that.ToRow-that.FromRow), float64(that.ToCol-that.FromCol))
}

func (that Move) String() string {
	var desc string
	if that.IsPlacement() {
		desc = fmt.Sprintf("placement at (%d,%d)", that.ToRow, that.ToCol)
	} else {
		desc = fmt.Sprintf("move from (%d,%d) to (%d,%d)", that.FromRow, that.FromCol, that.ToRow, that.ToCol)
	}

	if that.Content != "" {
		desc += fmt.Sprintf(" with %q", that.Content)
	}

	return desc
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
