package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
)

type Player struct {
	ID        int64  `json:"id"`
	Name      string `json:"nombre"`
	Score     int    `json:"puntuacion"`
	Connected bool   `json:"conectado"`
}

// NewPlayer - a connected player with zero score.
func NewPlayer(id int64, name string) (Player, error) {
	player := Player{ID: id, Name: name, Connected: true}
	if err := player.Validate(); err != nil {
		return Player{}, err
	}
	return player, nil
}

func (that Player) Validate() error {
	if strings.TrimSpace(that.Name) == "" {
		return fmt.Errorf("%w: player name must not be blank", apperror.ErrInvalidArgument)
	}
	if that.Score < 0 {
		return fmt.Errorf("%w: player score must not be negative", apperror.ErrInvalidArgument)
	}
	return nil
}

func (that Player) WithScore(score int) (Player, error) {
	if score < 0 {
		return that, fmt.Errorf("%w: player score must not be negative", apperror.ErrInvalidArgument)
	}
	that.Score = score
	return that, nil
}

func (that Player) WithConnection(connected bool) Player {
	that.Connected = connected
	return that
}

// UnmarshalJSON - absent "conectado" means connected.
func (that *Player) UnmarshalJSON(data []byte) error {
	type plain Player
	decoded := plain{Connected: true}

	if err := json.Unmarshal(data, &decoded); err != nil {
		return err //nolint: wrapcheck // decoder errors already carry context
	}

	*that = Player(decoded)

	return nil
}
