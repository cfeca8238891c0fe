package planning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DrivingAction is the operator-level command that governs planning.
type DrivingAction uint8

// The known driving actions. ActionFollow, i.e. cruise in the current lane, is the default.
const (
	ActionFollow DrivingAction = iota
	ActionChangeLeft
	ActionChangeRight
	ActionPullOver
	ActionStop
)

var actionNames = map[DrivingAction]string{
	ActionFollow:      "follow",
	ActionChangeLeft:  "change_left",
	ActionChangeRight: "change_right",
	ActionPullOver:    "pull_over",
	ActionStop:        "stop",
}

func (a DrivingAction) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(a))
}

// Valid reports whether a is one of the known actions.
func (a DrivingAction) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// ParseDrivingAction parses an action name. "cruise" is accepted as an alias of "follow".
func ParseDrivingAction(name string) (DrivingAction, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "cruise" {
		return ActionFollow, nil
	}
	for action, actionName := range actionNames {
		if actionName == name {
			return action, nil
		}
	}
	return 0, errors.Errorf("unknown driving action %q", name)
}

// MarshalText encodes the action by name.
func (a DrivingAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *DrivingAction) UnmarshalText(text []byte) error {
	action, err := ParseDrivingAction(string(text))
	if err != nil {
		return err
	}
	*a = action
	return nil
}

// A PadMessage is an operator command. It is consumed at most once.
type PadMessage struct {
	Action   DrivingAction  `json:"action"`
	Params   map[string]any `json:"params,omitempty"`
	Received time.Time      `json:"-"`
}

// ParsePadMessage decodes either a bare action name, e.g. "change_left", or a JSON object such as
// {"action": "stop", "params": {"reason": "obstacle"}}.
func ParsePadMessage(line string) (PadMessage, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var msg PadMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return PadMessage{}, errors.Wrap(err, "decoding pad message")
		}
		return msg, nil
	}
	action, err := ParseDrivingAction(line)
	if err != nil {
		return PadMessage{}, err
	}
	return PadMessage{Action: action}, nil
}
