package match

import (
	"strings"
	"unicode/utf8"
)

// Tuning defaults for client matching. They encode accepted business tuning.
const (
	// DefaultThreshold is the score a match must strictly exceed.
	DefaultThreshold = 0.3
	// DefaultSubstringBonus is added when a significant candidate word
	// appears inside the known name.
	DefaultSubstringBonus = 0.3
	// DefaultSubstringMinLen is the rune length a candidate word must
	// exceed to earn the substring bonus.
	DefaultSubstringMinLen = 3
)

// Config tunes the matcher.
type Config struct {
	Threshold       float64 `yaml:"threshold" mapstructure:"threshold"`
	SubstringBonus  float64 `yaml:"substring_bonus" mapstructure:"substring_bonus"`
	SubstringMinLen int     `yaml:"substring_min_len" mapstructure:"substring_min_len"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Threshold:       DefaultThreshold,
		SubstringBonus:  DefaultSubstringBonus,
		SubstringMinLen: DefaultSubstringMinLen,
	}
}

// Match is the best known name for a candidate and its score.
type Match struct {
	Name  string
	Score float64
}

// Matcher scores free-text names against known client names by word overlap.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a matcher. Zero fields in cfg take their defaults.
func NewMatcher(cfg Config) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.SubstringBonus <= 0 {
		cfg.SubstringBonus = DefaultSubstringBonus
	}
	if cfg.SubstringMinLen <= 0 {
		cfg.SubstringMinLen = DefaultSubstringMinLen
	}
	return &Matcher{cfg: cfg}
}

// Config returns the effective tuning.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Score rates how well candidate names the known client:
//
//	|common words| / max(|candidate words|, |known words|)
//
// plus SubstringBonus when any candidate word longer than SubstringMinLen
// runes occurs inside the normalized known name. The bonus needs at least
// one common word, so it cannot carry a match on its own whatever the
// configured threshold.
func (m *Matcher) Score(candidate, known string) float64 {
	cand := Tokens(candidate)
	if len(cand) == 0 {
		return 0
	}
	knownNorm := Normalize(known)
	kn := Tokens(knownNorm)
	if len(kn) == 0 {
		return 0
	}

	common := 0
	for w := range cand {
		if _, ok := kn[w]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	score := float64(common) / float64(max(len(cand), len(kn)))

	for w := range cand {
		if utf8.RuneCountInString(w) > m.cfg.SubstringMinLen && strings.Contains(knownNorm, w) {
			score += m.cfg.SubstringBonus
			break
		}
	}
	return score
}

// Accepts reports whether score clears the threshold. The boundary is
// exclusive: a score equal to the threshold is not a match.
func (m *Matcher) Accepts(score float64) bool {
	return score > m.cfg.Threshold
}

// Best returns the highest scoring known name for candidate. Equal scores
// resolve to the lexicographically smallest name so the result does not
// depend on the order of known. ok is false when nothing clears the
// threshold.
func (m *Matcher) Best(candidate string, known []string) (Match, bool) {
	var best Match
	found := false
	for _, name := range known {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s := m.Score(candidate, name)
		if !found || s > best.Score || (s == best.Score && name < best.Name) {
			best = Match{Name: name, Score: s}
			found = true
		}
	}
	if !found || !m.Accepts(best.Score) {
		return Match{}, false
	}
	return best, true
}
