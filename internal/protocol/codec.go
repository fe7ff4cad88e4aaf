package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rocketscienceinc/boardgame-backend/internal/apperror"
)

const (
	tagField = "tipo"

	// MaxLineSize - longest accepted line, a 64x64 board fits with room to spare.
	MaxLineSize = 1 << 20
)

// ErrLineTooLong - the stream cannot be read past an oversized line; it is a decode error.
var ErrLineTooLong = fmt.Errorf("%w: line too long", apperror.ErrDecode)

type envelope struct {
	Tipo *string `json:"tipo"`
}

type tagged interface {
	Tag() string
}

// Encode - the message as a single JSON object carrying its tag.
func Encode(msg tagged) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.Tag(), err)
	}

	fields := map[string]json.RawMessage{}
	if err = json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", msg.Tag(), err)
	}

	if fields[tagField], err = json.Marshal(msg.Tag()); err != nil {
		return nil, fmt.Errorf("failed to marshal tag: %w", err)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.Tag(), err)
	}

	return data, nil
}

func DecodeCommand(data []byte) (Command, error) {
	tag, err := readTag(data)
	if err != nil {
		return nil, err
	}

	decode, ok := commandDecoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", apperror.ErrDecode, tag)
	}

	cmd, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperror.ErrDecode, tag, err)
	}

	return cmd, nil
}

func DecodeEvent(data []byte) (Event, error) {
	tag, err := readTag(data)
	if err != nil {
		return nil, err
	}

	decode, ok := eventDecoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event %q", apperror.ErrDecode, tag)
	}

	event, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperror.ErrDecode, tag, err)
	}

	return event, nil
}

func readTag(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrDecode, err)
	}

	if env.Tipo == nil || *env.Tipo == "" {
		return "", fmt.Errorf("%w: missing %q field", apperror.ErrDecode, tagField)
	}

	return *env.Tipo, nil
}

// Reader - reads newline-delimited commands.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)

	return &Reader{scanner: scanner}
}

// ReadCommand - decodes the next non-blank line. Decode failures wrap apperror.ErrDecode and
// leave the reader usable, except ErrLineTooLong; io.EOF marks the end of the stream.
func (that *Reader) ReadCommand() (Command, error) {
	for that.scanner.Scan() {
		line := bytes.TrimSpace(that.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return DecodeCommand(line)
	}

	if err := that.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: limit is %d bytes: %w", ErrLineTooLong, MaxLineSize, err)
		}
		return nil, fmt.Errorf("failed to read line: %w", err)
	}

	return nil, io.EOF
}

// Writer - writes newline-delimited messages, safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (that *Writer) Write(msg tagged) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, err = that.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Tag(), err)
	}

	return nil
}
