package artwork

import (
	"fmt"
	"os"
	"strings"
)

// Protocol is a terminal graphics encoding
type Protocol string

const (
	ProtocolAuto       Protocol = "auto"
	ProtocolSixel      Protocol = "sixel"
	ProtocolHalfblocks Protocol = "halfblocks"
	ProtocolNone       Protocol = "none"
)

// ParseProtocol maps a config value to a Protocol. Empty means auto.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProtocolAuto, nil
	case ProtocolAuto, ProtocolSixel, ProtocolHalfblocks, ProtocolNone:
		return p, nil
	default:
		return "", fmt.Errorf("unknown artwork protocol %q", s)
	}
}

// sixel-capable terminals that advertise themselves through the environment
var sixelTerms = []string{"foot", "mlterm", "yaft", "contour", "sixel"}

var sixelPrograms = map[string]bool{
	"WezTerm":   true,
	"mlterm":    true,
	"iTerm.app": true,
	"contour":   true,
}

// Detect picks a protocol from the environment. It never queries the
// terminal itself, since stdin belongs to the key reader.
func Detect(getenv func(string) string) Protocol {
	if getenv == nil {
		getenv = os.Getenv
	}

	term := strings.ToLower(getenv("TERM"))
	if term == "" || term == "dumb" {
		return ProtocolNone
	}

	if sixelPrograms[getenv("TERM_PROGRAM")] {
		return ProtocolSixel
	}
	for _, t := range sixelTerms {
		if strings.Contains(term, t) {
			return ProtocolSixel
		}
	}

	switch strings.ToLower(getenv("COLORTERM")) {
	case "truecolor", "24bit":
		return ProtocolHalfblocks
	}
	if strings.Contains(term, "256color") || strings.Contains(term, "kitty") || strings.Contains(term, "alacritty") {
		return ProtocolHalfblocks
	}

	return ProtocolNone
}
