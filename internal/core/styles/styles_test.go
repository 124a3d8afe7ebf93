package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colonyops/storefront/internal/core/notify"
)

func TestThemes(t *testing.T) {
	names := ThemeNames()
	assert.Contains(t, names, DefaultTheme)

	for _, name := range names {
		p, ok := GetPalette(name)
		assert.True(t, ok, name)
		assert.NotNil(t, p.Primary, name)
		assert.NotNil(t, p.Error, name)
	}

	_, ok := GetPalette("nope")
	assert.False(t, ok)
}

func TestLevelColor(t *testing.T) {
	p, _ := GetPalette("bootstrap")
	SetTheme(p)
	t.Cleanup(func() { SetTheme(themes[DefaultTheme]) })

	assert.Equal(t, p.Error, LevelColor(notify.LevelDanger))
	assert.Equal(t, p.Success, LevelColor(notify.LevelSuccess))
	assert.Equal(t, p.Warning, LevelColor(notify.LevelWarning))
	assert.Equal(t, p.Secondary, LevelColor(notify.LevelInfo))
	assert.Equal(t, p.Secondary, LevelColor(notify.Level("unknown")))

	for _, l := range []notify.Level{notify.LevelInfo, notify.LevelSuccess, notify.LevelWarning, notify.LevelDanger} {
		assert.NotEmpty(t, LevelIcon[string(l)])
	}
}
