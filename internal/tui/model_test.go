package tui

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivrflow/diagram"
	"ivrflow/geom"
	"ivrflow/internal/config"
	"ivrflow/surface"
)

const catalog = `
version: 1
nodes:
  menu:
    shape: rectangle
    displayName: Menu
    buildTag: menu
    links: [digit1, timeout]
  hangup:
    shape: circle
    displayName: Hangup
    buildTag: hangup
`

func newModel(t *testing.T, cfg *config.Config) Model {
	t.Helper()
	meta, err := diagram.LoadMetadata(strings.NewReader(catalog))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := Open(meta, filepath.Join(t.TempDir(), "main.xml"), cfg, logger)
	require.NoError(t, err)
	return m
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
}

func release(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone}
}

func types(evs []surface.PointerEvent) []surface.EventType {
	out := make([]surface.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestPointerSynthesizesClicks(t *testing.T) {
	now := time.Unix(0, 0)
	p := newPointer()
	p.now = func() time.Time { return now }

	down := p.translate(press(3, 2))
	require.Len(t, down, 1)
	assert.Equal(t, surface.PointerDown, down[0].Type)
	assert.Equal(t, 1, down[0].Buttons)
	assert.Equal(t, geom.Pt(28, 40), down[0].Client)

	assert.Equal(t, []surface.EventType{surface.PointerUp, surface.Click}, types(p.translate(release(3, 2))))

	now = now.Add(100 * time.Millisecond)
	p.translate(press(3, 2))
	assert.Equal(t, []surface.EventType{surface.PointerUp, surface.Click, surface.DoubleClick}, types(p.translate(release(3, 2))))

	now = now.Add(time.Second)
	p.translate(press(3, 2))
	assert.Equal(t, []surface.EventType{surface.PointerUp, surface.Click}, types(p.translate(release(3, 2))))
}

func TestPointerDragSuppressesClick(t *testing.T) {
	p := newPointer()
	p.translate(press(3, 2))

	moves := p.translate(motion(6, 2))
	require.Len(t, moves, 1)
	assert.Equal(t, surface.PointerMove, moves[0].Type)
	assert.Equal(t, 1, moves[0].Buttons)

	assert.Equal(t, []surface.EventType{surface.PointerUp}, types(p.translate(release(6, 2))))
	assert.Nil(t, p.translate(release(6, 2)), "release without press")

	hover := p.translate(tea.MouseMsg{X: 1, Y: 1, Action: tea.MouseActionMotion, Button: tea.MouseButtonNone})
	require.Len(t, hover, 1)
	assert.Equal(t, 0, hover[0].Buttons)
}

func TestOpenStartsEmptyScenario(t *testing.T) {
	m := newModel(t, nil)
	assert.Equal(t, 0, m.Diagram().Len())
	assert.Equal(t, ModeNormal, m.Mode())
	assert.False(t, m.Dirty())
}

func TestCreateModePlacesBlockOnClick(t *testing.T) {
	m := newModel(t, nil)

	// catalog keys sort as hangup, menu
	m = update(m, key("2"))
	assert.Equal(t, ModeCreate, m.Mode())
	assert.Equal(t, "menu", m.Diagram().CreateMode())

	// cell (20,5) is client (164,88)
	m = update(m, press(20, 5))
	m = update(m, release(20, 5))

	blocks := m.Diagram().Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "menu", blocks[0].MetaName())
	assert.Equal(t, geom.Pt(164, 88), blocks[0].Position())
	assert.True(t, blocks[0].Selected())
	assert.Equal(t, ModeNormal, m.Mode())
	assert.True(t, m.Dirty())
}

func TestUnknownNodeNumber(t *testing.T) {
	m := newModel(t, nil)
	m = update(m, key("7"))
	assert.Equal(t, ModeNormal, m.Mode())
	assert.Contains(t, m.View(), "No node type #7")
}

func TestDeleteMemoAsksFirst(t *testing.T) {
	m := newModel(t, nil)
	memo, err := m.Diagram().AddMemo(geom.Pt(0, 0), "note")
	require.NoError(t, err)
	memo.Select()

	m = update(m, key("d"))
	assert.Equal(t, ModeConfirm, m.Mode())
	assert.Contains(t, m.View(), "Delete selected memo(s)?")

	m = update(m, key("n"))
	assert.Equal(t, ModeNormal, m.Mode())
	assert.Len(t, m.Diagram().Memos(), 1)

	m = update(m, key("d"))
	m = update(m, key("y"))
	assert.Empty(t, m.Diagram().Memos())
	assert.True(t, m.Dirty())
}

func TestDeleteWithoutConfirmations(t *testing.T) {
	cfg := config.Default()
	cfg.Confirmations = false
	m := newModel(t, cfg)
	_, err := m.Diagram().AddMemo(geom.Pt(0, 0), "note")
	require.NoError(t, err)
	_, err = m.Diagram().AddBlock("menu", geom.Pt(200, 0))
	require.NoError(t, err)
	m = update(m, key("a"))

	m = update(m, key("d"))
	assert.Equal(t, ModeNormal, m.Mode())
	assert.Equal(t, 0, m.Diagram().Len())

	m = update(m, key("u"))
	assert.Len(t, m.Diagram().Blocks(), 1)
}

func TestQuitConfirmsUnsavedChanges(t *testing.T) {
	m := newModel(t, nil)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m.dirty = true
	next, cmd := m.Update(key("q"))
	assert.Nil(t, cmd)
	m = next.(Model)
	assert.Equal(t, ModeConfirm, m.Mode())

	_, cmd = m.Update(key("y"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSaveWritesScenario(t *testing.T) {
	m := newModel(t, nil)
	_, err := m.Diagram().AddBlock("menu", geom.Pt(0, 0))
	require.NoError(t, err)
	m.dirty = true

	m = update(m, key("s"))
	assert.False(t, m.Dirty())

	data, err := os.ReadFile(m.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<block id="00000001" desc="Menu" meta-name="menu">`)

	reopened, err := Open(m.meta, m.path, m.config, m.logger)
	require.NoError(t, err)
	assert.Len(t, reopened.Diagram().Blocks(), 1)
}

func TestExportText(t *testing.T) {
	m := newModel(t, nil)
	_, err := m.Diagram().AddBlock("menu", geom.Pt(0, 0))
	require.NoError(t, err)

	m = update(m, key("T"))
	data, err := os.ReadFile(strings.TrimSuffix(m.path, ".xml") + ".txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Menu")
}

func TestMemoEditing(t *testing.T) {
	m := newModel(t, nil)
	memo, err := m.Diagram().AddMemo(geom.Pt(0, 0), "")
	require.NoError(t, err)
	memo.Select()

	m = update(m, key("e"))
	assert.Equal(t, ModeEditMemo, m.Mode())
	assert.True(t, memo.Editing())

	m = update(m, key("hi"))
	m = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ModeNormal, m.Mode())
	assert.False(t, memo.Editing())
	assert.Equal(t, "hi", memo.Text())
	assert.True(t, m.Dirty())
}

func TestDoubleClickOpensMemoEditor(t *testing.T) {
	m := newModel(t, nil)
	memo, err := m.Diagram().AddMemo(geom.Pt(0, 0), "note")
	require.NoError(t, err)

	m = update(m, press(2, 2))
	m = update(m, release(2, 2))
	m = update(m, press(2, 2))
	m = update(m, release(2, 2))

	assert.Equal(t, ModeEditMemo, m.Mode())
	assert.True(t, memo.Editing())
	assert.Equal(t, "note", m.editor.Value())
}

func TestPanAndZoom(t *testing.T) {
	m := newModel(t, nil)
	vb := m.surface.ViewBox()

	m = update(m, key("l"))
	assert.InDelta(t, vb.X+32, m.surface.ViewBox().X, 1e-9)
	m = update(m, key("L"))
	assert.InDelta(t, vb.X+96, m.surface.ViewBox().X, 1e-9)

	m = update(m, key("+"))
	assert.InDelta(t, vb.W*0.9, m.surface.ViewBox().W, 1e-9)
	m = update(m, key("0"))
	assert.InDelta(t, vb.W, m.surface.ViewBox().W, 1e-9)
}

func TestResizeKeepsZoom(t *testing.T) {
	m := newModel(t, nil)
	m = update(m, key("-"))
	before := m.surface.ViewBox()

	m = update(m, tea.WindowSizeMsg{Width: 160, Height: 47})
	w, h := m.surface.ClientSize()
	assert.Equal(t, 1280.0, w)
	assert.Equal(t, 736.0, h)
	assert.InDelta(t, before.W*2, m.surface.ViewBox().W, 1e-9)
	assert.InDelta(t, before.H*2, m.surface.ViewBox().H, 1e-9)
}

func TestViewShowsCanvasAndStatus(t *testing.T) {
	m := newModel(t, nil)
	_, err := m.Diagram().AddBlock("menu", geom.Pt(100, 100))
	require.NoError(t, err)

	out := m.View()
	assert.Contains(t, out, "Menu")
	assert.Contains(t, out, "Mode: NORMAL")
	assert.Contains(t, out, "1 components")

	m = update(m, key("?"))
	assert.Contains(t, m.View(), "ivrflow Help")
	assert.Contains(t, m.View(), "2                Menu (menu)")
	m = update(m, key("x"))
	assert.NotContains(t, m.View(), "ivrflow Help")
}
