package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/csat-hub/attendant-rewards/internal/config"
)

func TestXPForLevel(t *testing.T) {
	c := NewCurve()

	assert.Equal(t, 0, c.XPForLevel(1))
	assert.Equal(t, 100, c.XPForLevel(2))
	assert.Equal(t, 283, c.XPForLevel(3)) // round(100 * 2^1.5)
	assert.Equal(t, 0, c.XPForLevel(0), "below range clamps to level 1")
	assert.Equal(t, c.XPForLevel(DefaultMaxLevel), c.XPForLevel(DefaultMaxLevel+10))
}

func TestXPForLevel_Monotonic(t *testing.T) {
	curves := []*Curve{
		NewCurve(),
		NewCurve(WithBaseXP(1), WithExponent(0.1), WithMaxLevel(200)),
		NewCurve(WithBaseXP(50), WithExponent(2)),
	}

	for _, c := range curves {
		for level := 2; level <= c.MaxLevel(); level++ {
			if c.XPForLevel(level) <= c.XPForLevel(level-1) {
				t.Fatalf("threshold for level %d (%d) not above level %d (%d)",
					level, c.XPForLevel(level), level-1, c.XPForLevel(level-1))
			}
		}
	}
}

func TestLevelFromXP(t *testing.T) {
	c := NewCurve()

	tests := []struct {
		xp   int
		want int
	}{
		{-50, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{282, 2},
		{283, 3},
		{c.XPForLevel(DefaultMaxLevel), DefaultMaxLevel},
		{c.XPForLevel(DefaultMaxLevel) * 10, DefaultMaxLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.LevelFromXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevelFromXP_MonotonicAndRoundTrip(t *testing.T) {
	c := NewCurve(WithMaxLevel(20))

	prev := c.LevelFromXP(0)
	for xp := 1; xp <= c.XPForLevel(20)+500; xp += 7 {
		lvl := c.LevelFromXP(xp)
		if lvl < prev {
			t.Fatalf("level decreased from %d to %d at xp=%d", prev, lvl, xp)
		}
		prev = lvl
	}

	for level := 1; level <= c.MaxLevel(); level++ {
		assert.Equal(t, level, c.LevelFromXP(c.XPForLevel(level)))
	}
}

func TestProgress(t *testing.T) {
	c := NewCurve()

	p := c.Progress(0)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0.0, p.Percent)
	assert.Equal(t, 100, p.XPToNext)
	assert.False(t, p.MaxLevel)

	p = c.Progress(50)
	assert.Equal(t, 1, p.Level)
	assert.InDelta(t, 50.0, p.Percent, 1e-9)
	assert.Equal(t, 50, p.XPIntoLevel)
	assert.Equal(t, 50, p.XPToNext)

	p = c.Progress(-10)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0.0, p.Percent)
}

func TestProgress_MaxLevel(t *testing.T) {
	c := NewCurve(WithMaxLevel(3))
	top := c.XPForLevel(3)

	p := c.Progress(top + 1000)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, 0, p.XPToNext)
	assert.Equal(t, 1000, p.XPIntoLevel)
	assert.True(t, p.MaxLevel)
}

func TestNewCurve_IgnoresInvalidOptions(t *testing.T) {
	c := NewCurve(WithBaseXP(0), WithExponent(-1), WithMaxLevel(1))

	assert.Equal(t, DefaultMaxLevel, c.MaxLevel())
	assert.Equal(t, Default.XPForLevel(10), c.XPForLevel(10))
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(&config.LevelCurveConfig{BaseXP: 50, Exponent: 2, MaxLevel: 10})

	assert.Equal(t, 10, c.MaxLevel())
	assert.Equal(t, 50, c.XPForLevel(2))
	assert.Equal(t, 200, c.XPForLevel(3))
}
