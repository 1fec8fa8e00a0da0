// Package ui encodes and decodes the callback data attached to reminder
// message buttons. Telegram caps callback data at 64 bytes, so the wire
// form is a compact colon-separated string, validated strictly on parse.
package ui

import (
	"errors"
	"strconv"
	"strings"
)

const (
	CallbackPrefix     = "r:"
	MaxCallbackDataLen = 64
)

type Operation string

const (
	OpComplete Operation = "done"
	OpSnooze   Operation = "snooze"
)

// Action is one decoded button press. Option is set only for snoozes.
type Action struct {
	Op         Operation
	ReminderID uint
	Option     string
}

// ErrUnknownOperation is returned for syntactically valid data naming an
// operation this build does not know.
var ErrUnknownOperation = errors.New("unknown callback operation")

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

func BuildCompleteCallback(reminderID uint) (string, error) {
	return validateCallbackData(CallbackPrefix + string(OpComplete) + ":" + formatID(reminderID))
}

// BuildSnoozeCallback encodes a snooze option choice. The option name is
// the candidate type, restricted to the characters safe for callback
// data.
func BuildSnoozeCallback(reminderID uint, option string) (string, error) {
	if option == "" || !isCallbackToken(option) {
		return "", errInvalidValue
	}
	return validateCallbackData(CallbackPrefix + string(OpSnooze) + ":" + formatID(reminderID) + ":" + option)
}

func ParseCallbackData(data string) (Action, error) {
	if data == "" {
		return Action{}, errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return Action{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, CallbackPrefix) {
		return Action{}, errInvalidPrefix
	}

	parts := strings.Split(data[len(CallbackPrefix):], ":")
	switch Operation(parts[0]) {
	case OpComplete:
		if len(parts) != 2 {
			return Action{}, errInvalidAction
		}
		id, err := parseID(parts[1])
		if err != nil {
			return Action{}, err
		}
		return Action{Op: Operation(parts[0]), ReminderID: id}, nil
	case OpSnooze:
		if len(parts) != 3 {
			return Action{}, errInvalidAction
		}
		id, err := parseID(parts[1])
		if err != nil {
			return Action{}, err
		}
		if parts[2] == "" || !isCallbackToken(parts[2]) {
			return Action{}, errInvalidValue
		}
		return Action{Op: OpSnooze, ReminderID: id, Option: parts[2]}, nil
	default:
		return Action{}, ErrUnknownOperation
	}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(value string) (uint, error) {
	if !isASCIIUnsignedInt(value) {
		return 0, errInvalidValue
	}
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidValue
	}
	return uint(id), nil
}

func validateCallbackData(data string) (string, error) {
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

// isCallbackToken allows lowercase snake_case option names only.
func isCallbackToken(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}
