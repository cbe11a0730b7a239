package command

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors returned by Parse.
var (
	// ErrMalformed means the payload is not valid JSON.
	ErrMalformed = errors.New("command: malformed payload")

	// ErrUnrecognized means the payload is JSON but not a known command.
	ErrUnrecognized = errors.New("command: unrecognized payload")
)

// ledwallField is the key naming a display message.
const ledwallField = "ledwall"

// Command is a parsed inbound command.
type Command struct {
	// LEDWall is the text to show on the display. Never empty.
	LEDWall string
}

// Parse decodes a command payload. Unknown fields are ignored.
//
// Returns:
//   - Command: The parsed command
//   - error: Wraps ErrMalformed for invalid JSON, ErrUnrecognized for a
//     non-object, a missing ledwall field, or a ledwall that is not a
//     non-empty string
func Parse(payload []byte) (Command, error) {
	if !json.Valid(payload) {
		return Command{}, ErrMalformed
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Command{}, fmt.Errorf("%w: not a JSON object", ErrUnrecognized)
	}

	raw, ok := fields[ledwallField]
	if !ok {
		return Command{}, fmt.Errorf("%w: no %s field", ErrUnrecognized, ledwallField)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return Command{}, fmt.Errorf("%w: %s is not a string", ErrUnrecognized, ledwallField)
	}
	if text == "" {
		return Command{}, fmt.Errorf("%w: %s is empty", ErrUnrecognized, ledwallField)
	}

	return Command{LEDWall: text}, nil
}
