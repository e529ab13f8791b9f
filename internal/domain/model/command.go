package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Command is a single bit of the Telldus method bitmask. A device's State
// holds exactly one of these.
type Command int

const (
	CommandOn         Command = 0x0001
	CommandOff        Command = 0x0002
	CommandBell       Command = 0x0004
	CommandToggle     Command = 0x0008
	CommandDim        Command = 0x0010
	CommandLearn      Command = 0x0020
	CommandExecute    Command = 0x0040
	CommandUp         Command = 0x0080
	CommandDown       Command = 0x0100
	CommandStop       Command = 0x0200
	CommandRGB        Command = 0x0400
	CommandThermostat Command = 0x0800
)

var commandNames = map[string]Command{
	"on":         CommandOn,
	"off":        CommandOff,
	"bell":       CommandBell,
	"toggle":     CommandToggle,
	"dim":        CommandDim,
	"learn":      CommandLearn,
	"execute":    CommandExecute,
	"up":         CommandUp,
	"down":       CommandDown,
	"stop":       CommandStop,
	"rgb":        CommandRGB,
	"thermostat": CommandThermostat,
}

// ParseCommand resolves a command name such as "dim" to its bit.
func ParseCommand(name string) (Command, error) {
	c, ok := commandNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCommand, name)
	}
	return c, nil
}

// CommandNames lists the known command names in bit order.
func CommandNames() []string {
	names := make([]string, 0, len(commandNames))
	for n := range commandNames {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return commandNames[names[i]] < commandNames[names[j]]
	})
	return names
}

// SupportedMethods is the union of every known command bit, sent to the
// device list endpoint so the remote reports all states.
func SupportedMethods() int {
	var mask int
	for _, c := range commandNames {
		mask |= int(c)
	}
	return mask
}

func (c Command) String() string {
	for n, v := range commandNames {
		if v == c {
			return n
		}
	}
	return strconv.Itoa(int(c))
}

func (c *Command) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("command %s: %w", data, err)
	}
	*c = Command(v)
	return nil
}
