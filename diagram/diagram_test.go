package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivrflow/geom"
	"ivrflow/surface"
)

const catalogYAML = `
version: 1
nodes:
  menu:
    shape: rectangle
    icon: icons/menu.svg
    displayName: Menu
    buildTag: menu
    properties:
      - name: prompt
        default: welcome.wav
      - name: timeout
        default: "5"
    links: [digit1, digit2, timeout]
  play:
    shape: rectangle
    displayName: Play
    buildTag: play
    properties:
      - name: prompt
    links: [done]
  hangup:
    shape: circle
    displayName: Hangup
    buildTag: hangup
  branch:
    shape: diamond
    displayName: Branch
    buildTag: branch
    links: ["true", "false"]
descriptions:
  link:
    digit1: "Pressed 1"
    timeout: "No input"
`

func testMeta(t *testing.T) *Metadata {
	t.Helper()
	meta, err := LoadMetadata(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	return meta
}

func newTestDiagram(t *testing.T, opts Options) (*Diagram, *surface.Memory) {
	t.Helper()
	s := surface.NewMemory(1000, 800)
	d, err := New(s, testMeta(t), opts)
	require.NoError(t, err)
	return d, s
}

func addBlock(t *testing.T, d *Diagram, key string, x, y float64) *Block {
	t.Helper()
	b, err := d.AddBlock(key, geom.Pt(x, y))
	require.NoError(t, err)
	return b
}

func TestNewRejectsOldMetadata(t *testing.T) {
	s := surface.NewMemory(100, 100)

	_, err := New(s, nil, Options{})
	assert.ErrorIs(t, err, ErrMetadataVersion)

	_, err = New(s, &Metadata{Version: 0}, Options{})
	assert.ErrorIs(t, err, ErrMetadataVersion)

	_, err = LoadMetadata(strings.NewReader("version: 0\nnodes: {}\n"))
	assert.ErrorIs(t, err, ErrMetadataVersion)
}

func TestLoadMetadata(t *testing.T) {
	meta := testMeta(t)

	assert.Equal(t, []string{"branch", "hangup", "menu", "play"}, meta.NodeKeys())
	nt, err := meta.NodeType("menu")
	require.NoError(t, err)
	assert.Equal(t, "menu", nt.BuildTag)
	assert.Len(t, nt.Properties, 2)
	assert.Equal(t, "Pressed 1", meta.LinkDescription("digit1"))
	assert.Equal(t, "digit2", meta.LinkDescription("digit2"))

	_, err = meta.NodeType("transfer")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestLoadMetadataRejectsBadShape(t *testing.T) {
	_, err := LoadMetadata(strings.NewReader("version: 1\nnodes:\n  x:\n    shape: hexagon\n    buildTag: x\n"))
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestBackgroundPattern(t *testing.T) {
	d, s := newTestDiagram(t, Options{UseBackgroundPattern: true, MoveUnit: 25})
	require.Equal(t, 1, s.Len())
	assert.Equal(t, surface.KindPattern, d.background.Kind)
	assert.Equal(t, 25.0, d.background.Bounds.W)

	d.Close()
	assert.Equal(t, 0, s.Len())
}

func TestAddBlockDefaults(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})

	b := addBlock(t, d, "menu", 10, 20)
	assert.Equal(t, "1", b.ID())
	assert.Equal(t, "Menu", b.Caption())
	assert.Equal(t, ShapeRectangle, b.Shape())
	assert.Equal(t, geom.Rect{X: 10, Y: 20, W: 100, H: 50}, b.Bounds())
	assert.Equal(t, "<menu><prompt>welcome.wav</prompt><timeout>5</timeout></menu>", string(b.UserData().RawXML()))

	c := addBlock(t, d, "hangup", 0, 0)
	assert.Equal(t, ShapeCircle, c.Shape())
	assert.Equal(t, geom.Rect{W: 50, H: 50}, c.Bounds())

	_, err := d.AddBlock("transfer", geom.Pt(0, 0))
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestAnchorsFollowBlock(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})
	b := addBlock(t, d, "menu", 0, 0)

	assert.Equal(t, geom.Pt(0, 25), b.Anchor(AnchorL).Position())
	assert.Equal(t, geom.Pt(50, 0), b.Anchor(AnchorT).Position())
	assert.Equal(t, geom.Pt(100, 25), b.Anchor(AnchorR).Position())
	assert.Equal(t, geom.Pt(50, 50), b.Anchor(AnchorB).Position())

	b.MovePosition(200, 100)
	assert.Equal(t, geom.Pt(300, 125), b.Anchor(AnchorR).Position())
	assert.Equal(t, geom.Pt(-1, 0), AnchorL.Direction())
	assert.Equal(t, geom.Pt(0, 1), AnchorB.Direction())
}

func TestDiamondContains(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})
	b := addBlock(t, d, "branch", 0, 0)

	assert.True(t, b.Contains(geom.Pt(50, 30)))
	assert.False(t, b.Contains(geom.Pt(2, 2)))
}

func TestIDsAreMonotonic(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})

	a := addBlock(t, d, "menu", 0, 0)
	b := addBlock(t, d, "play", 300, 0)
	l, err := d.AddLink(a.Anchor(AnchorR), b.Anchor(AnchorL), "")
	require.NoError(t, err)
	m, err := d.AddMemo(geom.Pt(0, 300), "note")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3", "4"}, []string{a.ID(), b.ID(), l.ID(), m.ID()})

	b.Remove()
	require.NoError(t, d.Undo())
	c := addBlock(t, d, "hangup", 600, 0)
	assert.Equal(t, "5", c.ID(), "ids are never reused")

	got, ok := d.Component("00000002")
	require.True(t, ok)
	assert.Equal(t, TypeBlock, got.Type())
	assert.Equal(t, "00000005", FormatID(c.ID()))
}

func TestDefaultLinkCaption(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})
	a := addBlock(t, d, "menu", 0, 0)
	b := addBlock(t, d, "play", 300, 0)
	c := addBlock(t, d, "play", 300, 200)

	l1, err := d.AddLink(a.Anchor(AnchorR), b.Anchor(AnchorL), "")
	require.NoError(t, err)
	l2, err := d.AddLink(a.Anchor(AnchorB), c.Anchor(AnchorL), "")
	require.NoError(t, err)
	l3, err := d.AddLink(b.Anchor(AnchorB), c.Anchor(AnchorT), "custom")
	require.NoError(t, err)

	assert.Equal(t, "digit1", l1.Caption())
	assert.Equal(t, "digit2", l2.Caption())
	assert.Equal(t, "custom", l3.Caption())
	assert.Equal(t, "Pressed 1", l1.labelPrim.Text)
}

func TestSelfLoopAllowedOnDistinctAnchors(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})
	a := addBlock(t, d, "menu", 0, 0)

	_, err := d.AddLink(a.Anchor(AnchorR), a.Anchor(AnchorR), "")
	assert.Error(t, err)

	l, err := d.AddLink(a.Anchor(AnchorR), a.Anchor(AnchorB), "")
	require.NoError(t, err)
	assert.Same(t, l.Origin(), l.Dest())
	assert.Len(t, a.Links(), 1)
}

func TestCascadeDeletion(t *testing.T) {
	d, s := newTestDiagram(t, Options{})
	hub := addBlock(t, d, "menu", 400, 400)
	const k = 4
	for i := 0; i < k; i++ {
		other := addBlock(t, d, "play", float64(i)*200, 0)
		_, err := d.AddLink(hub.Anchor(AnchorT), other.Anchor(AnchorB), "")
		require.NoError(t, err)
	}
	before := d.Len()
	prims := s.Len()

	hub.Remove()

	assert.Equal(t, before-(k+1), d.Len())
	assert.Empty(t, d.Links())
	_, ok := d.Component(hub.ID())
	assert.False(t, ok)

	require.NoError(t, d.Undo())
	assert.Equal(t, before, d.Len())
	assert.Len(t, d.Links(), k)
	assert.Equal(t, prims, s.Len())
	restored, ok := d.Component(hub.ID())
	require.True(t, ok)
	assert.Len(t, restored.(*Block).Links(), k)
}

func TestMoveReroutesIncidentLinks(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})
	a := addBlock(t, d, "menu", 0, 0)
	b := addBlock(t, d, "play", 400, 0)
	l, err := d.AddLink(a.Anchor(AnchorR), b.Anchor(AnchorL), "")
	require.NoError(t, err)

	before := l.Path()
	a.MovePosition(50, 50)
	b.MovePosition(450, 50)

	want := before.Translate(50, 50).Points()
	got := l.Path().Points()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].X, got[i].X, 1e-9)
		assert.InDelta(t, want[i].Y, got[i].Y, 1e-9)
	}
}

func TestListenersFireInRegistrationOrder(t *testing.T) {
	var calls []string
	d, _ := newTestDiagram(t, Options{
		OnNodeCreated: func(Component) { calls = append(calls, "options") },
	})
	d.OnNodeCreated(func(Component) { calls = append(calls, "first") })
	d.OnNodeCreated(func(Component) { calls = append(calls, "second") })

	addBlock(t, d, "menu", 0, 0)

	assert.Equal(t, []string{"options", "first", "second"}, calls)
}

func TestSelectionEvents(t *testing.T) {
	var selected, unselected []string
	d, _ := newTestDiagram(t, Options{})
	d.OnNodeSelected(func(c Component) { selected = append(selected, c.ID()) })
	d.OnNodeUnSelected(func(c Component) { unselected = append(unselected, c.ID()) })

	a := addBlock(t, d, "menu", 0, 0)
	b := addBlock(t, d, "play", 300, 0)

	d.SelectAll()
	assert.True(t, d.IsSelected(a))
	assert.Len(t, d.Selection(), 2)
	a.Select()
	assert.Equal(t, []string{"1", "2"}, selected, "selecting twice fires once")

	d.UnselectAll()
	assert.Empty(t, d.Selection())
	assert.Equal(t, []string{"1", "2"}, unselected)
	assert.False(t, b.Selected())
}

func TestMemoRemoveConfirm(t *testing.T) {
	asked := 0
	d, _ := newTestDiagram(t, Options{MemoRemoveConfirm: func(*Memo) bool {
		asked++
		return false
	}})
	m, err := d.AddMemo(geom.Pt(0, 0), "keep me")
	require.NoError(t, err)

	m.Remove()
	m.Select()
	d.RemoveSelected()

	assert.Equal(t, 2, asked)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 1, d.Actions().Len())
}

func TestMemoEditing(t *testing.T) {
	d, s := newTestDiagram(t, Options{})
	m, err := d.AddMemo(geom.Pt(0, 0), "")
	require.NoError(t, err)
	assert.Equal(t, geom.Rect{W: 150, H: 100}, m.Bounds())

	m.BeginEdit()
	assert.Same(t, m, d.EditingMemo())
	m.EndEdit("line one\nline two")
	assert.Nil(t, d.EditingMemo())
	assert.Equal(t, []string{"line one", "line two"}, m.Lines())

	prim, ok := s.Get(m.textPrim.ID)
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", prim.Text)

	m.Resize(200, 80)
	assert.Equal(t, geom.Rect{W: 200, H: 80}, m.Bounds())
}

func TestZoomAndPan(t *testing.T) {
	d, s := newTestDiagram(t, Options{})

	d.ZoomIn()
	assert.InDelta(t, 900, s.ViewBox().W, 1e-9)
	assert.InDelta(t, 720, s.ViewBox().H, 1e-9)

	d.ZoomOut()
	assert.InDelta(t, 990, s.ViewBox().W, 1e-9)

	d.Pan(10, -5)
	assert.Equal(t, geom.Pt(10, -5), s.ViewBox().Min())
}

func TestCloseDetachesEverything(t *testing.T) {
	d, s := newTestDiagram(t, Options{})
	a := addBlock(t, d, "menu", 0, 0)
	b := addBlock(t, d, "play", 300, 0)
	_, err := d.AddLink(a.Anchor(AnchorR), b.Anchor(AnchorL), "")
	require.NoError(t, err)
	require.NotZero(t, s.Len())

	d.Close()
	assert.Equal(t, 0, s.Len())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	d1, s1 := newTestDiagram(t, Options{})
	d2, _ := newTestDiagram(t, Options{})
	addBlock(t, d1, "menu", 0, 0)

	id := r.Register(d1)
	r.Register(d2)
	assert.Equal(t, 2, r.Len())
	assert.NotEqual(t, d1.ID(), d2.ID())

	got, ok := r.Lookup(id)
	require.True(t, ok)
	assert.Same(t, d1, got)

	assert.True(t, r.Unregister(id))
	assert.False(t, r.Unregister(id))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 0, s1.Len())
}

func TestRestoreDuplicateIDLeavesDiagramUntouched(t *testing.T) {
	d, s := newTestDiagram(t, Options{})
	a := addBlock(t, d, "menu", 0, 0)
	b := addBlock(t, d, "hangup", 300, 0)
	l, err := d.AddLink(a.Anchor(AnchorR), b.Anchor(AnchorL), "")
	require.NoError(t, err)
	prims, count := s.Len(), d.Len()

	_, err = d.restoreLink(linkState{ID: a.seq(), Origin: a.seq(), Dest: b.seq(), OriginKey: AnchorB, DestKey: AnchorT})
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, err = d.restoreMemo(memoState{ID: l.seq(), Text: "n", Bounds: geom.Rect{W: 150, H: 100}})
	assert.ErrorIs(t, err, ErrDuplicateID)

	assert.Equal(t, prims, s.Len())
	assert.Equal(t, count, d.Len())
	assert.Len(t, a.Links(), 1)
	assert.Same(t, l, d.Links()[0])
}
