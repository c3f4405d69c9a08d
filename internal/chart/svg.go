package chart

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dvloznov/finantrack/internal/domain"
)

const (
	fontSize      = 11
	smallFontSize = 10
	markerRadius  = 4
	markerStroke  = "2"
	lineWidth     = "2.5"
	gridDash      = "3,3"
	gridOpacity   = "0.3"
	labelGap      = 10
	labelBaseline = 4
)

// num prints coordinates without trailing zeros, to three decimals.
type num float64

func (n num) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	v := math.Round(float64(n)*1000) / 1000
	if v == 0 {
		v = 0 // drop negative zero
	}
	return xml.Attr{Name: name, Value: strconv.FormatFloat(v, 'f', -1, 64)}, nil
}

type svgRoot struct {
	XMLName             xml.Name `xml:"svg"`
	Xmlns               string   `xml:"xmlns,attr"`
	ViewBox             string   `xml:"viewBox,attr"`
	Width               string   `xml:"width,attr"`
	PreserveAspectRatio string   `xml:"preserveAspectRatio,attr"`
	Role                string   `xml:"role,attr"`
	Body                []any
}

type svgGroup struct {
	XMLName xml.Name `xml:"g"`
	Class   string   `xml:"class,attr"`
	Body    []any
}

type svgRect struct {
	XMLName xml.Name `xml:"rect"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	Fill    string   `xml:"fill,attr"`
}

type svgLine struct {
	XMLName   xml.Name `xml:"line"`
	X1        num      `xml:"x1,attr"`
	Y1        num      `xml:"y1,attr"`
	X2        num      `xml:"x2,attr"`
	Y2        num      `xml:"y2,attr"`
	Stroke    string   `xml:"stroke,attr"`
	Width     string   `xml:"stroke-width,attr,omitempty"`
	Linecap   string   `xml:"stroke-linecap,attr,omitempty"`
	Dasharray string   `xml:"stroke-dasharray,attr,omitempty"`
	Opacity   string   `xml:"opacity,attr,omitempty"`
}

type svgCircle struct {
	XMLName xml.Name `xml:"circle"`
	CX      num      `xml:"cx,attr"`
	CY      num      `xml:"cy,attr"`
	R       num      `xml:"r,attr"`
	Fill    string   `xml:"fill,attr"`
	Stroke  string   `xml:"stroke,attr,omitempty"`
	Width   string   `xml:"stroke-width,attr,omitempty"`
}

type svgText struct {
	XMLName  xml.Name `xml:"text"`
	X        num      `xml:"x,attr"`
	Y        num      `xml:"y,attr"`
	Fill     string   `xml:"fill,attr"`
	FontSize int      `xml:"font-size,attr"`
	Anchor   string   `xml:"text-anchor,attr,omitempty"`
	Content  string   `xml:",chardata"`
}

// Render writes c as a standalone SVG document.
func Render(w io.Writer, c Chart) error {
	enc := xml.NewEncoder(w)
	if err := enc.Encode(document(c)); err != nil {
		return fmt.Errorf("encode svg: %w", err)
	}
	return enc.Close()
}

// RenderSVG returns the SVG markup of c.
func RenderSVG(c Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func document(c Chart) svgRoot {
	root := svgRoot{
		Xmlns:               "http://www.w3.org/2000/svg",
		ViewBox:             fmt.Sprintf("0 0 %d %d", int(c.Width), int(c.Height)),
		Width:               "100%",
		PreserveAspectRatio: "xMidYMid meet",
		Role:                "img",
	}
	root.Body = append(root.Body, svgRect{Width: "100%", Height: "100%", Fill: c.Theme.Background})

	if c.SkippedNote != "" {
		root.Body = append(root.Body, svgText{
			X: num(c.Padding.Left), Y: num(c.Padding.Top - 8),
			Fill: c.Theme.Text, FontSize: smallFontSize,
			Content: c.SkippedNote,
		})
	}

	if c.Empty {
		root.Body = append(root.Body, svgText{
			X: num(c.Width / 2), Y: num(c.Height / 2),
			Fill: c.Theme.Text, FontSize: fontSize + 3, Anchor: "middle",
			Content: c.Placeholder,
		})
		return root
	}

	right := c.Padding.Left + c.PlotWidth()

	grid := svgGroup{Class: "grid"}
	for _, t := range c.YTicks {
		grid.Body = append(grid.Body, svgLine{
			X1: num(c.Padding.Left), Y1: num(t.Y), X2: num(right), Y2: num(t.Y),
			Stroke: c.Theme.Grid, Width: "1", Dasharray: gridDash, Opacity: gridOpacity,
		})
	}

	line := svgGroup{Class: "balance"}
	for _, s := range c.Segments {
		line.Body = append(line.Body, svgLine{
			X1: num(s.X1), Y1: num(s.Y1), X2: num(s.X2), Y2: num(s.Y2),
			Stroke: c.trendColor(s.Up), Width: lineWidth, Linecap: "round",
		})
	}

	markers := svgGroup{Class: "points"}
	for _, p := range c.Points {
		markers.Body = append(markers.Body, svgCircle{
			CX: num(p.X), CY: num(p.Y), R: markerRadius,
			Fill:   c.trendColor(p.Type == domain.Income),
			Stroke: c.Theme.Background, Width: markerStroke,
		})
	}

	labels := svgGroup{Class: "labels"}
	for _, t := range c.YTicks {
		labels.Body = append(labels.Body, svgText{
			X: num(right + labelGap), Y: num(t.Y + labelBaseline),
			Fill: c.Theme.Text, FontSize: fontSize, Anchor: "start",
			Content: t.Label,
		})
	}
	for _, t := range c.XTicks {
		labels.Body = append(labels.Body, svgText{
			X: num(t.X), Y: num(c.Height - 10),
			Fill: c.Theme.Text, FontSize: smallFontSize, Anchor: "middle",
			Content: t.Label,
		})
	}

	root.Body = append(root.Body, grid, line, markers, labels)
	return root
}

func (c Chart) trendColor(positive bool) string {
	if positive {
		return c.Theme.Positive
	}
	return c.Theme.Negative
}
