// Package keymap binds key names to session actions.
package keymap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/austinkregel/local-media/termplay/internal/session"
	"github.com/austinkregel/local-media/termplay/internal/terminal"
)

// Defaults are the built-in bindings
var Defaults = map[string]session.Action{
	"q":      session.Quit,
	"ctrl+c": session.Quit,
	"p":      session.PlayPauseToggle,
	"n":      session.Next,
	"m":      session.Previous,
	"s":      session.Previous,
	"r":      session.LoopCurrent,
	"right":  session.SkipAhead,
}

// Keymap resolves key events to actions
type Keymap struct {
	bindings map[string]session.Action
}

// New builds a keymap from the defaults plus overrides, where overrides maps
// an action name to the keys that trigger it. An action named in overrides
// loses its default keys.
func New(overrides map[string][]string) (*Keymap, error) {
	km := &Keymap{bindings: make(map[string]session.Action, len(Defaults))}

	replaced := make(map[session.Action]bool)
	for name := range overrides {
		a, err := session.ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
		replaced[a] = true
	}

	for key, a := range Defaults {
		if !replaced[a] {
			km.bindings[key] = a
		}
	}

	for name, keys := range overrides {
		a, _ := session.ParseAction(name)
		for _, key := range keys {
			key = normalize(key)
			if key == "" {
				continue
			}
			if prev, ok := km.bindings[key]; ok && prev != a && !replaced[prev] {
				// an override beats a default binding for the same key
				delete(km.bindings, key)
			} else if ok && prev != a {
				return nil, fmt.Errorf("keys: %q bound to both %s and %s", key, prev, a)
			}
			km.bindings[key] = a
		}
	}
	return km, nil
}

func normalize(key string) string {
	key = strings.TrimSpace(key)
	if len([]rune(key)) == 1 {
		return key
	}
	return strings.ToLower(key)
}

// Lookup returns the action bound to k. Only key presses map to actions.
func (km *Keymap) Lookup(k terminal.Key) (session.Action, bool) {
	if !k.Press {
		return 0, false
	}
	a, ok := km.bindings[k.String()]
	return a, ok
}

// KeysFor returns the sorted key names bound to a
func (km *Keymap) KeysFor(a session.Action) []string {
	var keys []string
	for key, bound := range km.bindings {
		if bound == a {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Help renders a one-line summary like "q quit  p playpause"
func (km *Keymap) Help() string {
	var parts []string
	for _, a := range session.Actions() {
		keys := km.KeysFor(a)
		if len(keys) == 0 {
			continue
		}
		parts = append(parts, strings.Join(keys, "/")+" "+a.String())
	}
	return strings.Join(parts, "  ")
}
