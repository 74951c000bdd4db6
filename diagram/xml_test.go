package diagram

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivrflow/geom"
	"ivrflow/surface"
)

const twoBlockScenario = `<scenario>
  <block id="00000001" desc="Main menu" meta-name="menu">
    <menu><prompt lang="en">main.wav</prompt><timeout>5</timeout></menu>
    <svg><bounds>100,100,100,50</bounds><selected>false</selected></svg>
    <choice event="digit1" target="00000002" svg-origin-anchor="2" svg-dest-anchor="0" svg-selected="false"/>
  </block>
  <block id="00000002" desc="Say goodbye" meta-name="play">
    <play><prompt>bye.wav</prompt></play>
    <svg><bounds>400,100,100,50</bounds><selected>true</selected></svg>
  </block>
</scenario>
`

func deserialize(t *testing.T, doc string) *Diagram {
	t.Helper()
	d, err := Deserialize(surface.NewMemory(1000, 800), testMeta(t), strings.NewReader(doc), Options{})
	require.NoError(t, err)
	return d
}

func TestDeserializeTwoBlocks(t *testing.T) {
	d := deserialize(t, twoBlockScenario)

	require.Len(t, d.Blocks(), 2)
	require.Len(t, d.Links(), 1)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 4, d.NextSeq())

	l := d.Links()[0]
	assert.Equal(t, "1", l.Origin().ID())
	assert.Equal(t, "2", l.Dest().ID())
	assert.Equal(t, AnchorR, l.OriginAnchor().Key())
	assert.Equal(t, AnchorL, l.DestAnchor().Key())
	assert.Equal(t, "digit1", l.Caption())

	first := d.Blocks()[0]
	assert.Equal(t, "Main menu", first.Caption())
	assert.Equal(t, geom.Rect{X: 100, Y: 100, W: 100, H: 50}, first.Bounds())
	assert.Equal(t, `<menu><prompt lang="en">main.wav</prompt><timeout>5</timeout></menu>`, string(first.UserData().RawXML()))

	second := d.Blocks()[1]
	assert.True(t, second.Selected())
	assert.Equal(t, []Component{second}, d.Selection())
	assert.Equal(t, 0, d.Actions().Len(), "loading is not undoable")
}

func TestDeserializeErrors(t *testing.T) {
	meta := testMeta(t)
	load := func(doc string) error {
		_, err := DeserializeBytes(surface.NewMemory(100, 100), meta, []byte(doc), Options{})
		return err
	}

	err := load(`<scenario><block id="00000001" meta-name="transfer"><svg><bounds>0,0,10,10</bounds></svg></block></scenario>`)
	assert.ErrorIs(t, err, ErrUnknownNodeType)

	err = load(`<scenario><block id="00000001" meta-name="menu"><svg><bounds>0,0,10,10</bounds></svg>` +
		`<choice event="x" target="00000009" svg-origin-anchor="2" svg-dest-anchor="0"/></block></scenario>`)
	assert.ErrorIs(t, err, ErrDanglingLink)

	err = load(`<scenario><block id="00000001" meta-name="menu"><svg><bounds>0,0</bounds></svg></block></scenario>`)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	err = load(`<scenario><block id="1" meta-name="menu"><svg><bounds>0,0,1,1</bounds></svg></block>` +
		`<block id="00000001" meta-name="menu"><svg><bounds>0,0,1,1</bounds></svg></block></scenario>`)
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = load(`<scenario><block`)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = DeserializeBytes(surface.NewMemory(100, 100), &Metadata{}, []byte(twoBlockScenario), Options{})
	assert.ErrorIs(t, err, ErrMetadataVersion)
}

func TestDeserializeFailureLeavesSurfaceClean(t *testing.T) {
	s := surface.NewMemory(100, 100)
	doc := `<scenario><block id="00000001" meta-name="menu"><svg><bounds>0,0,10,10</bounds></svg>` +
		`<choice event="x" target="00000009" svg-origin-anchor="2" svg-dest-anchor="0"/></block></scenario>`

	_, err := DeserializeBytes(s, testMeta(t), []byte(doc), Options{})
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestPayloadKeptVerbatim(t *testing.T) {
	payload := `<menu xmlns:v="urn:ivr:voice" v:timeout="5"><v:prompt lang="en">a &amp; b &#x263A;</v:prompt><beep/><!-- keep --></menu>`
	doc := `<scenario><block id="00000001" desc="Menu" meta-name="menu">` + payload +
		`<svg><bounds>0,0,100,50</bounds><selected>false</selected></svg></block></scenario>`

	d := deserialize(t, doc)
	require.Len(t, d.Blocks(), 1)
	assert.Equal(t, payload, string(d.Blocks()[0].UserData().RawXML()))

	first, err := Serialize(d)
	require.NoError(t, err)
	assert.Contains(t, string(first), payload)

	again, err := DeserializeBytes(surface.NewMemory(1000, 800), testMeta(t), first, Options{})
	require.NoError(t, err)
	second, err := Serialize(again)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, payload, string(again.Blocks()[0].UserData().RawXML()))
}

func TestPayloadWithOtherTagSurvives(t *testing.T) {
	doc := `<scenario><block id="00000001" desc="Menu" meta-name="menu">` +
		`<legacyMenu><prompt>old.wav</prompt></legacyMenu>` +
		`<svg><bounds>0,0,100,50</bounds></svg></block></scenario>`

	d := deserialize(t, doc)
	assert.Equal(t, `<legacyMenu><prompt>old.wav</prompt></legacyMenu>`, string(d.Blocks()[0].UserData().RawXML()))

	out, err := Serialize(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<legacyMenu><prompt>old.wav</prompt></legacyMenu>`)
}

func TestSecondPayloadRejected(t *testing.T) {
	s := surface.NewMemory(100, 100)
	doc := `<scenario><block id="00000001" meta-name="menu"><menu></menu><notes>x</notes>` +
		`<svg><bounds>0,0,10,10</bounds></svg></block></scenario>`

	_, err := DeserializeBytes(s, testMeta(t), []byte(doc), Options{})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorContains(t, err, "<notes>")
	assert.Equal(t, 0, s.Len())
}

func TestDeserializeLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	_, err := DeserializeBytes(surface.NewMemory(1000, 800), testMeta(t), []byte(twoBlockScenario), Options{Logger: logger})
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	buf.Reset()
	logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err = DeserializeBytes(surface.NewMemory(1000, 800), testMeta(t), []byte(twoBlockScenario), Options{Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scenario loaded")
}

func TestSerializeLayout(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})
	a := addBlock(t, d, "menu", 0, 0)
	_, err := d.AddMemo(geom.Pt(0, 200), "remember <this> & that")
	require.NoError(t, err)
	b := addBlock(t, d, "hangup", 300, 0)
	_, err = d.AddLink(a.Anchor(AnchorR), b.Anchor(AnchorL), "")
	require.NoError(t, err)

	out, err := Serialize(d)
	require.NoError(t, err)
	doc := string(out)

	assert.True(t, strings.HasPrefix(doc, "<scenario>"))
	assert.Contains(t, doc, `<block id="00000001" desc="Menu" meta-name="menu"><menu><prompt>welcome.wav</prompt><timeout>5</timeout></menu>`)
	assert.Contains(t, doc, `<bounds>0,0,100,50</bounds>`)
	assert.Contains(t, doc, `<choice event="digit1" target="00000003" svg-origin-anchor="2" svg-dest-anchor="0" svg-selected="false"></choice>`)
	assert.Contains(t, doc, `remember &lt;this&gt; &amp; that`)
	assert.Equal(t, 1, strings.Count(doc, "<choice"), "choices live under the origin only")
	assert.Less(t, strings.Index(doc, `id="00000001"`), strings.Index(doc, `id="00000003"`))
	assert.Less(t, strings.LastIndex(doc, "</block>"), strings.Index(doc, "<memo>"))
}

func TestSerializeRoundTrip(t *testing.T) {
	d, _ := newTestDiagram(t, Options{})
	a := addBlock(t, d, "menu", 0, 0)
	b := addBlock(t, d, "play", 300, 0)
	c := addBlock(t, d, "branch", 300, 300)
	_, err := d.AddLink(a.Anchor(AnchorR), b.Anchor(AnchorL), "")
	require.NoError(t, err)
	l, err := d.AddLink(b.Anchor(AnchorB), c.Anchor(AnchorT), "done")
	require.NoError(t, err)
	_, err = d.AddLink(c.Anchor(AnchorL), a.Anchor(AnchorB), "false")
	require.NoError(t, err)
	m, err := d.AddMemo(geom.Pt(600, 0), "first line\nsecond line")
	require.NoError(t, err)
	b.SetCaption("Play prompt")
	b.SetUserData(RawSubtree(`<play><prompt>x.wav</prompt></play>`))
	l.Select()
	m.Select()

	first, err := Serialize(d)
	require.NoError(t, err)

	again, err := DeserializeBytes(surface.NewMemory(1000, 800), testMeta(t), first, Options{})
	require.NoError(t, err)
	second, err := Serialize(again)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Len(t, again.Blocks(), 3)
	assert.Len(t, again.Links(), 3)
	require.Len(t, again.Memos(), 1)
	assert.Equal(t, "first line\nsecond line", again.Memos()[0].Text())
	assert.Len(t, again.Selection(), 2)
}

func TestDeserializeContinuesIDSequence(t *testing.T) {
	doc := `<scenario>
  <block id="00000007" desc="" meta-name="hangup"><svg><bounds>0,0,50,50</bounds><selected>false</selected></svg></block>
  <memo><text>n</text><svg><bounds>0,100,150,100</bounds><selected>false</selected></svg></memo>
</scenario>`
	d := deserialize(t, doc)

	require.Len(t, d.Memos(), 1)
	assert.Equal(t, "8", d.Memos()[0].ID())
	b := addBlock(t, d, "menu", 0, 0)
	assert.Equal(t, "9", b.ID())
}
