package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivrflow/diagram"
)

func TestLoad(t *testing.T) {
	rc := `
# ivrflow settings
line_type = b
move_unit = 25
background_pattern = false
rounded_corners = true
confirmations = false
memo_background_color = #ffffe0
memo_font_size = 14
log_level = debug
not a setting
unknown_key = whatever
`
	c, err := Load(strings.NewReader(rc))
	require.NoError(t, err)

	assert.Equal(t, diagram.LineBezier, c.LineType)
	assert.Equal(t, 25.0, c.MoveUnit)
	assert.False(t, c.BackgroundPattern)
	assert.True(t, c.RoundedCorners)
	assert.False(t, c.Confirmations)
	assert.Equal(t, "#ffffe0", c.MemoBackgroundColor)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)

	opts := c.Options()
	assert.Equal(t, diagram.LineBezier, opts.LineType)
	assert.Equal(t, 25.0, opts.MoveUnit)
	assert.True(t, opts.RoundedCorners)
	assert.Equal(t, 14.0, opts.MemoFontSize)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for _, rc := range []string{"line_type = zigzag", "move_unit = wide", "log_level = loud"} {
		_, err := Load(strings.NewReader(rc))
		assert.Error(t, err, rc)
	}
}

func TestLoadFileMissingGivesDefaults(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, diagram.LineOrthogonal, c.LineType)
	assert.True(t, c.Confirmations)
}

func TestSavePath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	c, err := Load(strings.NewReader("save_directory = " + dir))
	require.NoError(t, err)

	path, err := c.SavePath("main.xml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "main.xml"), path)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	path, err = Default().SavePath("main.xml")
	require.NoError(t, err)
	assert.Equal(t, "main.xml", path)
}
