package protocol

import (
	"encoding/json"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
	"github.com/rocketscienceinc/boardgame-backend/internal/entity"
)

const (
	TagSessionUpdated = "PartidaActualizada"
	TagError          = "Error"
)

// Event - a server reply.
type Event interface {
	Tag() string
}

type SessionUpdated struct {
	Session entity.GameSession `json:"juego"`
}

type Error struct {
	Message string `json:"mensaje"`
	Code    string `json:"codigo,omitempty"`
}

func (SessionUpdated) Tag() string { return TagSessionUpdated }
func (Error) Tag() string          { return TagError }

// ErrorEvent - converts a failure into the reply sent to the client.
func ErrorEvent(err error) Error {
	return Error{Message: err.Error(), Code: apperror.Code(err)}
}

var eventDecoders = map[string]func(data []byte) (Event, error){
	TagSessionUpdated: decodeEventAs[SessionUpdated],
	TagError:          decodeEventAs[Error],
}

func decodeEventAs[T Event](data []byte) (Event, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err //nolint: wrapcheck // wrapped by DecodeEvent
	}
	return event, nil
}
