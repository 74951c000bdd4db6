package diagram

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"ivrflow/geom"
	"ivrflow/surface"
)

type xmlScenario struct {
	XMLName xml.Name   `xml:"scenario"`
	Blocks  []xmlBlock `xml:"block"`
	Memos   []xmlMemo  `xml:"memo"`
}

// xmlBlock is the decode form. Any child other than svg and choice is
// recorded as a span of the source document so the payload can be kept
// byte for byte.
type xmlBlock struct {
	ID       string
	Desc     string
	MetaName string
	SVG      xmlSVG
	Choices  []xmlChoice
	Extra    []span
}

// span is a child element's extent in the source document.
type span struct {
	Name       string
	Start, End int64
}

func (xb *xmlBlock) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			xb.ID = a.Value
		case "desc":
			xb.Desc = a.Value
		case "meta-name":
			xb.MetaName = a.Value
		}
	}
	for {
		off := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "svg":
				if err := dec.DecodeElement(&xb.SVG, &t); err != nil {
					return err
				}
			case "choice":
				var c xmlChoice
				if err := dec.DecodeElement(&c, &t); err != nil {
					return err
				}
				xb.Choices = append(xb.Choices, c)
			default:
				if err := dec.Skip(); err != nil {
					return err
				}
				xb.Extra = append(xb.Extra, span{Name: t.Name.Local, Start: off, End: dec.InputOffset()})
			}
		case xml.EndElement:
			return nil
		}
	}
}

// xmlBlockOut is the encode form: the payload is written verbatim
// before the svg element.
type xmlBlockOut struct {
	XMLName  xml.Name    `xml:"block"`
	ID       string      `xml:"id,attr"`
	Desc     string      `xml:"desc,attr"`
	MetaName string      `xml:"meta-name,attr"`
	Payload  string      `xml:",innerxml"`
	SVG      xmlSVG      `xml:"svg"`
	Choices  []xmlChoice `xml:"choice"`
}

type xmlSVG struct {
	Bounds   string `xml:"bounds"`
	Selected bool   `xml:"selected"`
}

type xmlChoice struct {
	Event        string `xml:"event,attr"`
	Target       string `xml:"target,attr"`
	OriginAnchor int    `xml:"svg-origin-anchor,attr"`
	DestAnchor   int    `xml:"svg-dest-anchor,attr"`
	Selected     bool   `xml:"svg-selected,attr"`
}

type xmlMemo struct {
	Text string `xml:"text"`
	SVG  xmlSVG `xml:"svg"`
}

// Serialize renders the diagram as a scenario document.
func Serialize(d *Diagram) ([]byte, error) {
	doc := struct {
		XMLName xml.Name `xml:"scenario"`
		Blocks  []xmlBlockOut
		Memos   []xmlMemo `xml:"memo"`
	}{}
	for _, b := range d.Blocks() {
		out := xmlBlockOut{
			ID:       formatSeq(b.id),
			Desc:     b.caption,
			MetaName: b.metaName,
			SVG:      xmlSVG{Bounds: formatBounds(b.bounds), Selected: b.selected},
		}
		if b.userData != nil {
			out.Payload = string(b.userData.RawXML())
		}
		for _, l := range b.OutgoingLinks() {
			out.Choices = append(out.Choices, xmlChoice{
				Event:        l.caption,
				Target:       formatSeq(l.dest.id),
				OriginAnchor: int(l.originKey),
				DestAnchor:   int(l.destKey),
				Selected:     l.selected,
			})
		}
		doc.Blocks = append(doc.Blocks, out)
	}
	for _, m := range d.Memos() {
		doc.Memos = append(doc.Memos, xmlMemo{
			Text: m.text,
			SVG:  xmlSVG{Bounds: formatBounds(m.bounds), Selected: m.selected},
		})
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("diagram: encode scenario: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Deserialize builds a diagram from a scenario document. Blocks keep
// their document ids; links and memos get fresh ones after the highest
// block id.
func Deserialize(s surface.Surface, meta *Metadata, r io.Reader, opts Options) (*Diagram, error) {
	d, err := New(s, meta, opts)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("diagram: read scenario: %w", err)
	}
	var doc xmlScenario
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		d.Close()
		return nil, fmt.Errorf("diagram: decode scenario: %v: %w", err, ErrInvalidDocument)
	}
	if err := d.load(doc, data); err != nil {
		d.Close()
		return nil, err
	}
	d.log.Debug("scenario loaded", "blocks", len(doc.Blocks), "memos", len(doc.Memos), "components", d.Len())
	return d, nil
}

// DeserializeBytes is Deserialize over an in-memory document.
func DeserializeBytes(s surface.Surface, meta *Metadata, data []byte, opts Options) (*Diagram, error) {
	return Deserialize(s, meta, bytes.NewReader(data), opts)
}

func (d *Diagram) load(doc xmlScenario, src []byte) error {
	var selected []Component
	ids := make([]int, len(doc.Blocks))
	for i, xb := range doc.Blocks {
		id, err := strconv.Atoi(strings.TrimSpace(xb.ID))
		if err != nil {
			return fmt.Errorf("diagram: block id %q: %w", xb.ID, ErrInvalidDocument)
		}
		nt, err := d.meta.NodeType(xb.MetaName)
		if err != nil {
			return err
		}
		bounds, err := parseBounds(xb.SVG.Bounds)
		if err != nil {
			return err
		}
		payload, err := d.payload(id, nt, xb.Extra, src)
		if err != nil {
			return err
		}
		b, err := d.restoreBlock(blockState{ID: id, MetaName: xb.MetaName, Caption: xb.Desc, Bounds: bounds, UserData: payload})
		if err != nil {
			return err
		}
		ids[i] = id
		if xb.SVG.Selected {
			selected = append(selected, b)
		}
	}

	// links get ids only once every block id is known
	for i, xb := range doc.Blocks {
		for _, xc := range xb.Choices {
			target, err := strconv.Atoi(strings.TrimSpace(xc.Target))
			if err != nil {
				return fmt.Errorf("diagram: choice target %q: %w", xc.Target, ErrInvalidDocument)
			}
			from, err := ParseAnchorCode(xc.OriginAnchor)
			if err != nil {
				return err
			}
			to, err := ParseAnchorCode(xc.DestAnchor)
			if err != nil {
				return err
			}
			l, err := d.restoreLink(linkState{
				ID:        d.nextID(),
				Caption:   xc.Event,
				Origin:    ids[i],
				Dest:      target,
				OriginKey: from,
				DestKey:   to,
			})
			if err != nil {
				return err
			}
			if xc.Selected {
				selected = append(selected, l)
			}
		}
	}

	for _, xm := range doc.Memos {
		bounds, err := parseBounds(xm.SVG.Bounds)
		if err != nil {
			return err
		}
		m, err := d.restoreMemo(memoState{ID: d.nextID(), Text: xm.Text, Bounds: bounds})
		if err != nil {
			return err
		}
		if xm.SVG.Selected {
			selected = append(selected, m)
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].seq() < selected[j].seq() })
	for _, c := range selected {
		c.Select()
	}
	return nil
}

// payload returns the block's single foreign child verbatim. A child
// named other than the build tag is kept too, so nothing is dropped on
// the next save.
func (d *Diagram) payload(id int, nt NodeType, extra []span, src []byte) (Subtree, error) {
	switch len(extra) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("diagram: block %d: unexpected element <%s>: %w", id, extra[1].Name, ErrInvalidDocument)
	}
	el := extra[0]
	if el.Name != nt.BuildTag {
		d.log.Debug("payload tag differs from build tag", "id", id, "tag", el.Name, "buildTag", nt.BuildTag)
	}
	return RawSubtree(bytes.Clone(src[el.Start:el.End])), nil
}

func formatBounds(r geom.Rect) string {
	return strings.Join([]string{num(r.X), num(r.Y), num(r.W), num(r.H)}, ",")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseBounds(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, fmt.Errorf("diagram: bounds %q: %w", s, ErrInvalidDocument)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, fmt.Errorf("diagram: bounds %q: %w", s, ErrInvalidDocument)
		}
		v[i] = f
	}
	return geom.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// defaultPayload builds the empty build-tag element for a new block, one
// child per catalog property.
func defaultPayload(nt NodeType) Subtree {
	var buf bytes.Buffer
	buf.WriteString("<" + nt.BuildTag + ">")
	for _, p := range nt.Properties {
		buf.WriteString("<" + p.Name + ">")
		xml.EscapeText(&buf, []byte(p.Default))
		buf.WriteString("</" + p.Name + ">")
	}
	buf.WriteString("</" + nt.BuildTag + ">")
	return RawSubtree(buf.Bytes())
}
