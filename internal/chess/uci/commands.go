package uci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinSkillLevel     SkillLevel = 0
	MaxSkillLevel     SkillLevel = 20
	DefaultSkillLevel SkillLevel = 10

	DefaultDepth = 12
)

var ErrInvalidSkillLevel = errors.New("skill level out of range 0-20")

// SkillLevel maps onto Stockfish's "Skill Level" option. It changes move
// quality, not search depth.
type SkillLevel int

func (l SkillLevel) Valid() bool { return l >= MinSkillLevel && l <= MaxSkillLevel }

func ParseSkillLevel(raw string) (SkillLevel, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSkillLevel, raw)
	}
	l := SkillLevel(v)
	if !l.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSkillLevel, v)
	}
	return l, nil
}

// Levels lists every selectable level in ascending order.
func Levels() []SkillLevel {
	out := make([]SkillLevel, 0, MaxSkillLevel-MinSkillLevel+1)
	for l := MinSkillLevel; l <= MaxSkillLevel; l++ {
		out = append(out, l)
	}
	return out
}

func SkillLevelCommand(l SkillLevel) string {
	return fmt.Sprintf("setoption name Skill Level value %d", int(l))
}

func PositionCommand(fen string) string {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return "position startpos"
	}
	return "position fen " + strings.TrimSpace(fen)
}

func GoDepthCommand(depth int) string {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return "go depth " + strconv.Itoa(depth)
}
