package session

import (
	"fmt"
	"strings"
)

// Action is a user command the controller understands
type Action int

const (
	Quit Action = iota
	PlayPauseToggle
	Next
	Previous
	SkipAhead
	LoopCurrent
)

var actionNames = map[Action]string{
	Quit:            "quit",
	PlayPauseToggle: "playpause",
	Next:            "next",
	Previous:        "prev",
	SkipAhead:       "skip",
	LoopCurrent:     "loop",
}

// Actions lists every action in declaration order
func Actions() []Action {
	return []Action{Quit, PlayPauseToggle, Next, Previous, SkipAhead, LoopCurrent}
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction maps a name like "next" or "playpause" to an Action.
// "previous" and "play-pause" style aliases are accepted.
func ParseAction(s string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("-", "", "_", "").Replace(name)
	switch name {
	case "previous":
		return Previous, nil
	case "skipahead":
		return SkipAhead, nil
	case "loopcurrent":
		return LoopCurrent, nil
	}
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}
