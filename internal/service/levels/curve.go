// Package levels maps cumulative XP onto levels and level progress.
package levels

import (
	"math"
	"sort"

	"github.com/csat-hub/attendant-rewards/internal/config"
)

// Default curve parameters.
const (
	DefaultBaseXP   = 100
	DefaultExponent = 1.5
	DefaultMaxLevel = 50
)

// Curve is an immutable XP threshold table. XPForLevel(level) is
// round(baseXP * (level-1)^exponent), which is 0 at level 1 and strictly
// increasing for positive parameters.
type Curve struct {
	baseXP     int
	exponent   float64
	maxLevel   int
	thresholds []int // thresholds[i] is the XP required for level i+1
}

// Option configures a Curve.
type Option func(*Curve)

// WithBaseXP sets the XP multiplier of the growth formula.
func WithBaseXP(base int) Option {
	return func(c *Curve) {
		if base > 0 {
			c.baseXP = base
		}
	}
}

// WithExponent sets the growth exponent.
func WithExponent(exp float64) Option {
	return func(c *Curve) {
		if exp > 0 {
			c.exponent = exp
		}
	}
}

// WithMaxLevel caps the curve.
func WithMaxLevel(maxLevel int) Option {
	return func(c *Curve) {
		if maxLevel >= 2 {
			c.maxLevel = maxLevel
		}
	}
}

// NewCurve builds a curve and precomputes its thresholds. Invalid option
// values are ignored and the defaults kept.
func NewCurve(opts ...Option) *Curve {
	c := &Curve{
		baseXP:   DefaultBaseXP,
		exponent: DefaultExponent,
		maxLevel: DefaultMaxLevel,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.thresholds = make([]int, c.maxLevel)
	for i := 1; i < c.maxLevel; i++ {
		xp := int(math.Round(float64(c.baseXP) * math.Pow(float64(i), c.exponent)))
		// keep the table monotonic even if rounding collapses two steps
		if xp <= c.thresholds[i-1] {
			xp = c.thresholds[i-1] + 1
		}
		c.thresholds[i] = xp
	}
	return c
}

// Default is the curve used when no configuration is supplied.
var Default = NewCurve()

// FromConfig builds a curve from the levels section of the gamification config.
func FromConfig(cfg *config.LevelCurveConfig) *Curve {
	return NewCurve(
		WithBaseXP(cfg.BaseXP),
		WithExponent(cfg.Exponent),
		WithMaxLevel(cfg.MaxLevel),
	)
}

// MaxLevel returns the highest reachable level.
func (c *Curve) MaxLevel() int {
	return c.maxLevel
}

// XPForLevel returns the cumulative XP required to reach level.
// Levels outside [1, MaxLevel] are clamped.
func (c *Curve) XPForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	if level > c.maxLevel {
		level = c.maxLevel
	}
	return c.thresholds[level-1]
}

// LevelFromXP returns the largest level whose threshold does not exceed xp.
func (c *Curve) LevelFromXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	// first index whose threshold is above xp; that index is the level count
	idx := sort.Search(len(c.thresholds), func(i int) bool {
		return c.thresholds[i] > xp
	})
	if idx < 1 {
		return 1
	}
	return idx
}

// Progress describes where an XP total sits inside its level.
type Progress struct {
	Level          int     `json:"level"`
	Percent        float64 `json:"percent"`
	XPIntoLevel    int     `json:"xp_into_level"`
	XPToNext       int     `json:"xp_to_next"`
	CurrentLevelXP int     `json:"current_level_xp"`
	NextLevelXP    int     `json:"next_level_xp"`
	MaxLevel       bool    `json:"max_level"`
}

// Progress computes level progress for xp. At the max level Percent is 100
// and XPToNext is 0.
func (c *Curve) Progress(xp int) Progress {
	if xp < 0 {
		xp = 0
	}

	level := c.LevelFromXP(xp)
	current := c.XPForLevel(level)
	p := Progress{
		Level:          level,
		XPIntoLevel:    xp - current,
		CurrentLevelXP: current,
	}

	if level >= c.maxLevel {
		p.Percent = 100
		p.NextLevelXP = current
		p.MaxLevel = true
		return p
	}

	next := c.XPForLevel(level + 1)
	p.NextLevelXP = next
	p.XPToNext = next - xp
	p.Percent = clampPercent(100 * float64(xp-current) / float64(next-current))
	return p
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
