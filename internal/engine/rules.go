package engine

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
)

const (
	BlackKing  = "♚"
	WhiteKing  = "♔"
	BlackQueen = "♛"
	WhiteQueen = "♕"

	MarkX = "X"
	MarkO = "O"
)

// rule - legality, end detection and winner lookup for one variant.
type rule struct {
	validate func(board *entity.Board, move entity.Move) error
	ended    func(board *entity.Board) bool
	winner   func(session entity.GameSession) (entity.Player, bool)
}

var rules = map[entity.Variant]rule{
	entity.VariantLine3: {
		validate: validateLine3,
		ended:    func(board *entity.Board) bool { return hasWinningLine(board) || board.IsFull() },
		winner:   line3Winner,
	},
	entity.VariantChess: {
		validate: validateChess,
		ended:    func(board *entity.Board) bool { return countKings(board) < 2 },
		winner:   chessWinner,
	},
	entity.VariantCheckers: {
		validate: validateCheckers,
		ended: func(board *entity.Board) bool {
			white, black := countCheckersSides(board)
			return white == 0 || black == 0
		},
		winner: checkersWinner,
	},
	entity.VariantGeneric: {
		validate: validateGeneric,
		ended:    (*entity.Board).IsFull,
		winner:   func(entity.GameSession) (entity.Player, bool) { return entity.Player{}, false },
	},
}

func ruleFor(variant entity.Variant) (rule, error) {
	r, ok := rules[variant]
	if !ok {
		return rule{}, fmt.Errorf("%w: no rules for variant %q", apperror.ErrInvalidArgument, variant)
	}
	return r, nil
}

func validateLine3(board *entity.Board, move entity.Move) error {
	if !move.IsPlacement() {
		return fmt.Errorf("%w: only placements are allowed in %s", apperror.ErrInvalidMove, entity.VariantLine3)
	}

	if err := requireEmpty(board, move.ToRow, move.ToCol); err != nil {
		return err
	}

	if strings.TrimSpace(move.Content) == "" {
		return fmt.Errorf("%w: content to place is required", apperror.ErrInvalidMove)
	}

	return nil
}

// validateChess - occupancy only, piece movement rules are not checked.
func validateChess(board *entity.Board, move entity.Move) error {
	if move.IsPlacement() {
		return fmt.Errorf("%w: pieces must be moved in %s", apperror.ErrInvalidMove, entity.VariantChess)
	}

	return requireOccupied(board, move.FromRow, move.FromCol)
}

func validateCheckers(board *entity.Board, move entity.Move) error {
	if move.IsPlacement() {
		return fmt.Errorf("%w: pieces must be moved in %s", apperror.ErrInvalidMove, entity.VariantCheckers)
	}

	if err := requireOccupied(board, move.FromRow, move.FromCol); err != nil {
		return err
	}

	if !move.IsDiagonal() {
		return fmt.Errorf("%w: only diagonal moves are allowed in %s", apperror.ErrInvalidMove, entity.VariantCheckers)
	}

	return requireEmpty(board, move.ToRow, move.ToCol)
}

func validateGeneric(board *entity.Board, move entity.Move) error {
	if !move.IsPlacement() {
		return requireOccupied(board, move.FromRow, move.FromCol)
	}

	if err := requireEmpty(board, move.ToRow, move.ToCol); err != nil {
		return err
	}

	if strings.TrimSpace(move.Content) == "" {
		return fmt.Errorf("%w: content to place is required", apperror.ErrInvalidMove)
	}

	return nil
}

func requireEmpty(board *entity.Board, row, col int) error {
	empty, err := board.IsEmpty(row, col)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("%w: (%d, %d)", apperror.ErrCellOccupied, row, col)
	}
	return nil
}

func requireOccupied(board *entity.Board, row, col int) error {
	empty, err := board.IsEmpty(row, col)
	if err != nil {
		return err
	}
	if empty {
		return fmt.Errorf("%w: (%d, %d)", apperror.ErrEmptySource, row, col)
	}
	return nil
}

// winningLineContent - content of the first full uniform row, column or diagonal.
func winningLineContent(board *entity.Board) (string, bool) {
	lines := make([][]entity.Cell, 0, board.Rows()+board.Cols()+2)

	for r := 0; r < board.Rows(); r++ {
		row, _ := board.Row(r)
		lines = append(lines, row)
	}

	for c := 0; c < board.Cols(); c++ {
		column, _ := board.Column(c)
		lines = append(lines, column)
	}

	if diagonals, ok := board.Diagonals(); ok {
		lines = append(lines, diagonals...)
	}

	for _, line := range lines {
		if content, ok := uniformContent(line); ok {
			return content, true
		}
	}

	return "", false
}

func hasWinningLine(board *entity.Board) bool {
	_, ok := winningLineContent(board)
	return ok
}

func uniformContent(line []entity.Cell) (string, bool) {
	if len(line) == 0 || line[0].IsEmpty() {
		return "", false
	}

	for _, cell := range line[1:] {
		if cell.Content != line[0].Content {
			return "", false
		}
	}

	return line[0].Content, true
}

func countKings(board *entity.Board) int {
	kings := 0
	for _, cell := range board.OccupiedCells() {
		if cell.Content == BlackKing || cell.Content == WhiteKing {
			kings++
		}
	}
	return kings
}

func countCheckersSides(board *entity.Board) (int, int) {
	var white, black int

	for _, cell := range board.OccupiedCells() {
		if strings.Contains(cell.Content, WhiteKing) || strings.Contains(cell.Content, WhiteQueen) {
			white++
		}
		if strings.Contains(cell.Content, BlackKing) || strings.Contains(cell.Content, BlackQueen) {
			black++
		}
	}

	return white, black
}

func line3Winner(session entity.GameSession) (entity.Player, bool) {
	content, ok := winningLineContent(session.Board)
	if !ok {
		return entity.Player{}, false
	}

	switch content {
	case MarkX:
		return playerAt(session, 0)
	case MarkO:
		return playerAt(session, 1)
	default:
		return entity.Player{}, false
	}
}

// chessWinner - the owner of the lone remaining king: black belongs to the first player.
func chessWinner(session entity.GameSession) (entity.Player, bool) {
	var kings []string
	for _, cell := range session.Board.OccupiedCells() {
		if cell.Content == BlackKing || cell.Content == WhiteKing {
			kings = append(kings, cell.Content)
		}
	}

	if len(kings) != 1 {
		return entity.Player{}, false
	}

	if kings[0] == BlackKing {
		return playerAt(session, 0)
	}
	return playerAt(session, 1)
}

func checkersWinner(session entity.GameSession) (entity.Player, bool) {
	white, black := countCheckersSides(session.Board)

	switch {
	case white == 0:
		return playerAt(session, 0)
	case black == 0:
		return playerAt(session, 1)
	default:
		return entity.Player{}, false
	}
}

func playerAt(session entity.GameSession, idx int) (entity.Player, bool) {
	if idx < 0 || idx >= len(session.Players) {
		return entity.Player{}, false
	}
	return session.Players[idx], true
}
