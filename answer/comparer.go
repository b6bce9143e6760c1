package answer

import (
	"crypto/subtle"
	"errors"
)

// ErrUnsupportedStrategy is returned by [New] for an unknown strategy name.
var ErrUnsupportedStrategy = errors.New("unsupported answer comparison strategy")

const (
	// StrategyPlain selects [Plain].
	StrategyPlain = "plain"
	// StrategyArgon2 selects [Argon2].
	StrategyArgon2 = "argon2"
)

// Comparer prepares answers for storage and matches submissions against them.
//
// Prepare is called once at enrollment; its output is what ends up in the
// credential's secret payload. Match must be safe for concurrent use.
type Comparer interface {
	Prepare(answer string) (string, error)
	Match(stored, submitted string) (bool, error)
}

// Plain stores answers verbatim and compares them exactly.
type Plain struct{}

// Prepare returns answer unchanged.
func (Plain) Prepare(answer string) (string, error) {
	return answer, nil
}

// Match reports whether submitted equals stored byte-for-byte.
func (Plain) Match(stored, submitted string) (bool, error) {
	if len(stored) != len(submitted) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1, nil
}

// New builds the comparer named by strategy. cfg is only consulted for argon2.
func New(strategy string, cfg Config) (Comparer, error) {
	switch strategy {
	case "", StrategyPlain:
		return Plain{}, nil
	case StrategyArgon2:
		return NewArgon2(cfg)
	default:
		return nil, ErrUnsupportedStrategy
	}
}
