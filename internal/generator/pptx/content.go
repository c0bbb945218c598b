package pptx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"slices"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

// AddImage places a picture on a slide. A zero width or height is derived
// from the image's aspect ratio at 96 dpi, capped to the slide.
func (p *Presentation) AddImage(index int, data []byte, ext string, box Box, description string) error {
	box = fitImage(data, box)
	return p.editSlide(index, func(s Slide, content string) (string, error) {
		relID, err := p.pkg.AddMedia(s.Part, "ppt/media", ext, data)
		if err != nil {
			return "", err
		}
		id := nextShapeID(content)
		return appendShape(content, Picture(id, fmt.Sprintf("Picture %d", id-1), relID, box, description)), nil
	})
}

func fitImage(data []byte, box Box) Box {
	if box.W > 0 && box.H > 0 {
		return box
	}
	width, height := 4.0, 3.0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		width, height = float64(cfg.Width)/96, float64(cfg.Height)/96
	}
	ratio := height / width
	switch {
	case box.W > 0:
		box.H = box.W * ratio
	case box.H > 0:
		box.W = box.H / ratio
	default:
		box.W, box.H = width, height
		if box.W > 10 {
			box.W, box.H = 10, 10*ratio
		}
		if box.H > 5.5 {
			box.W, box.H = 5.5/ratio, 5.5
		}
	}
	return box
}

// Series is one named row of chart values
type Series struct {
	Name   string
	Values []float64
}

// ChartSpec describes a chart drawn on a slide
type ChartSpec struct {
	Type       string
	Title      string
	Categories []string
	Series     []Series
}

// ChartTypes are the accepted chart types. Bar and column charts are drawn
// with shapes; the others are rendered as a data table.
var ChartTypes = []string{"column", "bar", "line", "pie", "area", "scatter", "doughnut"}

// AddChart draws a chart on a slide and reports how it was rendered ("shapes" or "table")
func (p *Presentation) AddChart(index int, spec ChartSpec, box Box) (string, error) {
	spec.Type = strings.ToLower(spec.Type)
	if spec.Type == "" {
		spec.Type = "column"
	}
	if !slices.Contains(ChartTypes, spec.Type) {
		return "", fmt.Errorf("unknown chart type %q (available: %s)", spec.Type, strings.Join(ChartTypes, ", "))
	}
	if len(spec.Categories) == 0 || len(spec.Series) == 0 {
		return "", fmt.Errorf("chart needs at least one category and one series")
	}

	rendering := "table"
	err := p.editSlide(index, func(_ Slide, content string) (string, error) {
		plot := box
		if spec.Title != "" {
			id := nextShapeID(content)
			title := Box{X: box.X, Y: box.Y, W: box.W, H: 0.5}
			content = appendShape(content, TextBox(id, "Chart Title", title,
				textParagraphs([]string{spec.Title}, TextStyle{FontSize: 18, Bold: true, Align: "center"}), false))
			plot.Y += 0.6
			plot.H -= 0.6
		}
		switch spec.Type {
		case "column", "bar":
			rendering = "shapes"
			return drawBars(content, spec, plot), nil
		}
		rows := [][]string{append([]string{""}, spec.Categories...)}
		for _, s := range spec.Series {
			row := []string{s.Name}
			for i := range spec.Categories {
				cell := ""
				if i < len(s.Values) {
					cell = fmt.Sprintf("%g", s.Values[i])
				}
				row = append(row, cell)
			}
			rows = append(rows, row)
		}
		id := nextShapeID(content)
		return appendShape(content, TableFrame(id, fmt.Sprintf("Chart Data %d", id-1), plot, rows, true, 12)), nil
	})
	return rendering, err
}

// drawBars renders one rectangle per value, grouped by category, with
// category labels and a legend for multiple series
func drawBars(content string, spec ChartSpec, plot Box) string {
	palette := Themes["office"].Accents
	highest := 0.0
	for _, s := range spec.Series {
		for _, v := range s.Values {
			highest = max(highest, v)
		}
	}
	if highest <= 0 {
		highest = 1
	}
	value := func(s Series, i int) float64 {
		if i < len(s.Values) && s.Values[i] > 0 {
			return s.Values[i] / highest
		}
		return 0
	}

	legend := 0.0
	if len(spec.Series) > 1 {
		legend = 0.4
	}
	label := TextStyle{FontSize: 11, Align: "center"}
	add := func(shape func(id int) string) {
		content = appendShape(content, shape(nextShapeID(content)))
	}

	cats, series := float64(len(spec.Categories)), float64(len(spec.Series))
	if spec.Type == "column" {
		area := Box{X: plot.X, Y: plot.Y, W: plot.W, H: plot.H - 0.4 - legend}
		group := area.W / cats
		bar := group * 0.8 / series
		for c, cat := range spec.Categories {
			for si, s := range spec.Series {
				h := area.H * value(s, c)
				b := Box{X: area.X + float64(c)*group + group*0.1 + float64(si)*bar, Y: area.Y + area.H - h, W: bar, H: h}
				add(func(id int) string {
					return AutoShape(id, fmt.Sprintf("Chart Bar %d", id-1), "rect", b, palette[si%len(palette)], "", "")
				})
			}
			lb := Box{X: area.X + float64(c)*group, Y: area.Y + area.H + 0.05, W: group, H: 0.35}
			add(func(id int) string {
				return TextBox(id, "Chart Label", lb, textParagraphs([]string{cat}, label), false)
			})
		}
	} else {
		labelWidth := min(1.5, plot.W/4)
		area := Box{X: plot.X + labelWidth, Y: plot.Y, W: plot.W - labelWidth, H: plot.H - legend}
		group := area.H / cats
		bar := group * 0.8 / series
		for c, cat := range spec.Categories {
			for si, s := range spec.Series {
				b := Box{X: area.X, Y: area.Y + float64(c)*group + group*0.1 + float64(si)*bar, W: area.W * value(s, c), H: bar}
				add(func(id int) string {
					return AutoShape(id, fmt.Sprintf("Chart Bar %d", id-1), "rect", b, palette[si%len(palette)], "", "")
				})
			}
			lb := Box{X: plot.X, Y: area.Y + float64(c)*group, W: labelWidth - 0.1, H: group}
			add(func(id int) string {
				return TextBox(id, "Chart Label", lb, textParagraphs([]string{cat}, TextStyle{FontSize: 11, Align: "right"}), false)
			})
		}
	}

	if legend > 0 {
		width := plot.W / series
		for si, s := range spec.Series {
			lb := Box{X: plot.X + float64(si)*width, Y: plot.Y + plot.H - legend + 0.05, W: width, H: 0.35}
			style := TextStyle{FontSize: 11, Bold: true, Color: palette[si%len(palette)], Align: "center"}
			add(func(id int) string {
				return TextBox(id, "Chart Legend", lb, textParagraphs([]string{s.Name}, style), false)
			})
		}
	}
	return content
}

var runText = regexp.MustCompile(`<a:t>([^<]*)</a:t>`)

// FindReplace replaces text within runs on every slide and returns the number of replacements
func (p *Presentation) FindReplace(find, replace string, matchCase bool) (int, error) {
	if find == "" {
		return 0, fmt.Errorf("search text must not be empty")
	}
	pattern := regexp.QuoteMeta(find)
	if !matchCase {
		pattern = "(?i)" + pattern
	}
	re := regexp.MustCompile(pattern)

	total := 0
	for _, s := range p.Slides() {
		count := 0
		content := runText.ReplaceAllStringFunc(p.slideXML(s), func(run string) string {
			text := ooxml.Unescape(runText.FindStringSubmatch(run)[1])
			n := len(re.FindAllStringIndex(text, -1))
			if n == 0 {
				return run
			}
			count += n
			return "<a:t>" + ooxml.Escape(re.ReplaceAllLiteralString(text, replace)) + "</a:t>"
		})
		if count > 0 {
			p.setSlideXML(s, content)
			total += count
		}
	}
	return total, nil
}

// paragraphTexts returns the non-empty paragraphs of a text body
func paragraphTexts(fragment string) []string {
	var out []string
	for _, span := range ooxml.Elements(fragment, "a:p") {
		var line strings.Builder
		for _, m := range runText.FindAllStringSubmatch(fragment[span.Start:span.End], -1) {
			line.WriteString(ooxml.Unescape(m[1]))
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func isTitleShape(shape string) bool {
	i := strings.Index(shape, "<p:ph")
	if i < 0 {
		return false
	}
	tag := shape[i : i+strings.Index(shape[i:], ">")+1]
	switch ooxml.Attr(tag, "type") {
	case "title", "ctrTitle":
		return true
	}
	return false
}

func isHidden(shape string) bool {
	i := strings.Index(shape, "<p:cNvPr")
	if i < 0 {
		return false
	}
	return ooxml.Attr(shape[i:i+strings.Index(shape[i:], ">")+1], "hidden") == "1"
}

func slideTitle(content string) string {
	for _, span := range ooxml.Elements(content, "p:sp") {
		shape := content[span.Start:span.End]
		if isTitleShape(shape) {
			return strings.Join(paragraphTexts(shape), " ")
		}
	}
	return ""
}

// SlideContent is the readable content of one slide
type SlideContent struct {
	Index      int
	Layout     string
	Title      string
	Body       []string
	Notes      string
	Images     int
	Tables     int
	Animations []string
}

// Read extracts the content of every slide
func (p *Presentation) Read() []SlideContent {
	var out []SlideContent
	for _, s := range p.Slides() {
		content := p.slideXML(s)
		sc := SlideContent{
			Index:      s.Index,
			Layout:     p.SlideLayout(s).Name,
			Title:      slideTitle(content),
			Notes:      notesOf(content),
			Animations: animationsOf(content),
		}

		spans := shapeSpans(content)
		slices.SortFunc(spans, func(a, b ooxml.Span) int { return a.Start - b.Start })
		end := 0
		for _, span := range spans {
			if span.Start < end {
				continue
			}
			end = span.End
			shape := content[span.Start:span.End]
			switch name := shapeName(shape); {
			case strings.HasPrefix(shape, "<p:pic"):
				sc.Images++
			case strings.Contains(shape, "<a:tbl>"):
				sc.Tables++
				for _, row := range ooxml.Elements(shape, "a:tr") {
					tr := shape[row.Start:row.End]
					var cells []string
					for _, cell := range ooxml.Elements(tr, "a:tc") {
						cells = append(cells, strings.Join(paragraphTexts(tr[cell.Start:cell.End]), " "))
					}
					sc.Body = append(sc.Body, strings.Join(cells, " | "))
				}
			case isTitleShape(shape), isHidden(shape), name == numberShape, name == footerShape:
			default:
				sc.Body = append(sc.Body, paragraphTexts(shape)...)
			}
		}
		out = append(out, sc)
	}
	return out
}

// Info summarises a presentation
type Info struct {
	Slides     int
	Width      float64
	Height     float64
	Theme      string
	Layouts    []string
	Titles     []string
	Sections   []string
	Images     int
	Properties ooxml.CoreProperties
}

var slideSize = regexp.MustCompile(`<p:sldSz[^>]*>`)

// Info returns deck-level statistics
func (p *Presentation) Info() (Info, error) {
	props, err := p.Properties()
	if err != nil {
		return Info{}, err
	}
	info := Info{Theme: p.ThemeName(), Sections: p.Sections(), Properties: props}
	info.Width, info.Height = float64(slideWidth)/emuPerInch, float64(slideHeight)/emuPerInch
	if tag := slideSize.FindString(p.xml); tag != "" {
		info.Width = float64(atoiOr(ooxml.Attr(tag, "cx"), slideWidth)) / emuPerInch
		info.Height = float64(atoiOr(ooxml.Attr(tag, "cy"), slideHeight)) / emuPerInch
	}
	all, err := p.Layouts()
	if err != nil {
		return Info{}, err
	}
	for _, l := range all {
		info.Layouts = append(info.Layouts, l.Name)
	}
	for _, sc := range p.Read() {
		info.Slides++
		info.Images += sc.Images
		info.Titles = append(info.Titles, sc.Title)
	}
	return info, nil
}

// Outline renders the deck as markdown: one heading per slide, its text as
// bullets and notes as a quote
func (p *Presentation) Outline() string {
	var b strings.Builder
	for i, sc := range p.Read() {
		if i > 0 {
			b.WriteString("\n")
		}
		title := sc.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "## %d. %s\n", sc.Index, title)
		if len(sc.Body) > 0 {
			b.WriteString("\n")
		}
		for _, line := range sc.Body {
			b.WriteString("- " + line + "\n")
		}
		if sc.Notes != "" {
			b.WriteString("\n")
			for _, line := range strings.Split(sc.Notes, "\n") {
				b.WriteString("> " + line + "\n")
			}
		}
	}
	return b.String()
}
