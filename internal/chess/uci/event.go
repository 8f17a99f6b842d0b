package uci

import "strings"

type EventKind uint8

const (
	// EventLine is any output the adapter does not interpret.
	EventLine EventKind = iota
	EventBestMove
	// EventNoMove is a bestmove carrying "0000" or "(none)".
	EventNoMove
	// EventFailure means the worker died or never acknowledged "uci".
	EventFailure
)

func (k EventKind) String() string {
	switch k {
	case EventBestMove:
		return "bestmove"
	case EventNoMove:
		return "nomove"
	case EventFailure:
		return "failure"
	default:
		return "line"
	}
}

// Event is one engine output, tagged with the generation of the channel that
// produced it.
type Event struct {
	Generation uint64
	Kind       EventKind
	Line       string
	// Move is the raw coordinate move of a bestmove event ("e7e5", "a2a1q").
	Move string
	Err  error
}

type Handler func(Event)

// ParseLine classifies a single output line. Only bestmove is interpreted.
func ParseLine(line string) Event {
	text := strings.TrimSpace(line)
	ev := Event{Kind: EventLine, Line: text}
	fields := strings.Fields(text)
	if len(fields) == 0 || fields[0] != "bestmove" {
		return ev
	}
	if len(fields) < 2 || isNoMove(fields[1]) {
		ev.Kind = EventNoMove
		return ev
	}
	ev.Kind = EventBestMove
	ev.Move = fields[1]
	return ev
}

func isNoMove(tok string) bool {
	return tok == "0000" || tok == "(none)"
}
