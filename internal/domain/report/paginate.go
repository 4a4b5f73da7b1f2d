package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
)

// BlockKind names what a content block holds.
type BlockKind string

const (
	BlockCover          BlockKind = "cover"
	BlockHeading        BlockKind = "heading"
	BlockParagraph      BlockKind = "paragraph"
	BlockList           BlockKind = "list"
	BlockRecommendation BlockKind = "recommendation"
	BlockGrant          BlockKind = "grant"
	BlockInsurance      BlockKind = "insurance"
	BlockDisclaimer     BlockKind = "disclaimer"
)

// Block is one unit of content that is never split across pages.
type Block struct {
	Kind           BlockKind
	Text           string
	Items          []string
	Tone           string // "concern" or "strength" for lists
	Recommendation *assessment.SelectedRecommendation
	Grant          *catalog.GrantProgram
	Insurance      *catalog.InsuranceProgram
	Height         float64
}

// Page is one printed page of blocks.
type Page struct {
	Number int
	Total  int
	Blocks []Block
}

// Layout describes the printed page in points (1/72 inch). The report
// template takes its box model from these fields, so the height estimates
// below and the CSS stay in step.
type Layout struct {
	PageWidth    float64
	PageHeight   float64
	MarginTop    float64
	MarginBottom float64
	MarginSide   float64
	HeaderHeight float64
	FooterHeight float64
	ContentTop   float64 // padding above the first block

	FontSize   float64
	SmallSize  float64 // figures lines
	FineSize   float64 // citations, URLs and the disclaimer
	LineHeight float64 // inherited by every block
	CharWidth  float64 // average glyph advance at FontSize

	HeadingSize       float64
	HeadingLineHeight float64
	HeadingMarginTop  float64
	HeadingMarginBot  float64

	BlockGap     float64 // bottom margin of paragraphs and lists
	ListIndent   float64
	CardBorder   float64
	CardPaddingY float64
	CardPaddingX float64
	CardGap      float64
	BadgeWidth   float64

	// Reserve is left empty at the bottom of every page to absorb
	// estimation error.
	Reserve float64
}

// Letter is US Letter at 11pt body text with 0.5in top and bottom margins.
var Letter = Layout{
	PageWidth:    612,
	PageHeight:   792,
	MarginTop:    36,
	MarginBottom: 36,
	MarginSide:   43.2,
	HeaderHeight: 48,
	FooterHeight: 36,
	ContentTop:   8,

	FontSize:   11,
	SmallSize:  9.5,
	FineSize:   8.5,
	LineHeight: 15,
	CharWidth:  5.8,

	HeadingSize:       15,
	HeadingLineHeight: 20,
	HeadingMarginTop:  10,
	HeadingMarginBot:  6,

	BlockGap:     10,
	ListIndent:   16,
	CardBorder:   1,
	CardPaddingY: 8,
	CardPaddingX: 10,
	CardGap:      8,
	BadgeWidth:   60,

	Reserve: 12,
}

// Usable is the height of the content box on each page.
func (l Layout) Usable() float64 {
	return l.PageHeight - l.MarginTop - l.MarginBottom - l.HeaderHeight - l.FooterHeight
}

// Capacity is how much block height Paginate places on one page.
func (l Layout) Capacity() float64 {
	return l.Usable() - l.ContentTop - l.Reserve
}

// ContentWidth is the width of the content box.
func (l Layout) ContentWidth() float64 { return l.PageWidth - 2*l.MarginSide }

func (l Layout) cardInner() float64 {
	return l.ContentWidth() - 2*(l.CardBorder+l.CardPaddingX)
}

// CardChrome is the vertical space a card adds around its text.
func (l Layout) CardChrome() float64 {
	return 2*(l.CardBorder+l.CardPaddingY) + l.CardGap
}

// text estimates the height of s wrapped greedily by words into width at
// the given font size.
func (l Layout) text(s string, width, size float64) float64 {
	if s == "" {
		return 0
	}
	perLine := int(width / (l.CharWidth * size / l.FontSize))
	if perLine < 1 {
		perLine = 1
	}
	lines, col := 1, 0
	for _, w := range strings.Fields(s) {
		n := utf8.RuneCountInString(w)
		switch {
		case col == 0:
			col = n
		case col+1+n <= perLine:
			col += 1 + n
			continue
		default:
			lines++
			col = n
		}
		for col > perLine {
			lines++
			col -= perLine
		}
	}
	return float64(lines) * l.LineHeight
}

func (l Layout) body(s string) float64 { return l.text(s, l.ContentWidth(), l.FontSize) }

// Blocks flattens d into content blocks in reading order, with estimated heights.
func (d Document) Blocks(l Layout) []Block {
	out := []Block{{Kind: BlockCover, Height: l.Usable()}}
	add := func(b Block) {
		b.Height = l.measure(b)
		out = append(out, b)
	}

	add(Block{Kind: BlockHeading, Text: "Executive summary"})
	add(Block{Kind: BlockParagraph, Text: d.SummaryText})
	if d.Insight != "" {
		add(Block{Kind: BlockParagraph, Text: d.Insight})
	}
	if len(d.Concerns) > 0 {
		add(Block{Kind: BlockHeading, Text: "Concerns"})
		add(Block{Kind: BlockList, Tone: "concern", Items: d.Concerns})
	}
	if len(d.Strengths) > 0 {
		add(Block{Kind: BlockHeading, Text: "Strengths"})
		add(Block{Kind: BlockList, Tone: "strength", Items: d.Strengths})
	}
	if len(d.Recommendations) > 0 {
		add(Block{Kind: BlockHeading, Text: "Recommended actions"})
		for i := range d.Recommendations {
			add(Block{Kind: BlockRecommendation, Recommendation: &d.Recommendations[i]})
		}
	}
	if len(d.Grants) > 0 {
		add(Block{Kind: BlockHeading, Text: "Grant programs"})
		for i := range d.Grants {
			add(Block{Kind: BlockGrant, Grant: &d.Grants[i]})
		}
	}
	if len(d.Insurance) > 0 {
		add(Block{Kind: BlockHeading, Text: "Insurance discounts"})
		for i := range d.Insurance {
			add(Block{Kind: BlockInsurance, Insurance: &d.Insurance[i]})
		}
	}
	add(Block{Kind: BlockDisclaimer, Text: d.Disclaimer})
	return out
}

func (l Layout) measure(b Block) float64 {
	inner := l.cardInner()
	switch b.Kind {
	case BlockHeading:
		lines := l.text(b.Text, l.ContentWidth(), l.HeadingSize) / l.LineHeight
		return l.HeadingMarginTop + lines*l.HeadingLineHeight + l.HeadingMarginBot
	case BlockParagraph:
		return l.body(b.Text) + l.BlockGap
	case BlockDisclaimer:
		return l.CardBorder + l.CardPaddingY + l.text(b.Text, l.ContentWidth(), l.FineSize) + l.BlockGap
	case BlockList:
		h := l.BlockGap
		for _, it := range b.Items {
			h += l.text(it, l.ContentWidth()-l.ListIndent, l.FontSize)
		}
		return h
	case BlockRecommendation:
		r := b.Recommendation
		return l.CardChrome() +
			l.text(r.Title, inner-l.BadgeWidth, l.FontSize) +
			l.text(r.Description, inner, l.FontSize) + l.BlockGap +
			l.text(RecommendationFigures(r), inner, l.SmallSize) +
			l.text("Source: "+r.Citation.String(), inner, l.FineSize)
	case BlockGrant:
		g := b.Grant
		return l.CardChrome() +
			l.text(g.Name, inner, l.FontSize) +
			l.text(GrantFigures(g), inner, l.SmallSize) +
			l.text(g.Eligibility, inner, l.FontSize) + l.BlockGap +
			l.text(g.URL, inner, l.FineSize)
	case BlockInsurance:
		p := b.Insurance
		return l.CardChrome() +
			l.text(p.Name, inner, l.FontSize) +
			l.text(InsuranceFigures(p), inner, l.SmallSize) +
			l.text(p.Eligibility, inner, l.FontSize) + l.BlockGap
	}
	return l.LineHeight
}

// RecommendationFigures is the cost and savings line printed on a card.
func RecommendationFigures(r *assessment.SelectedRecommendation) string {
	s := fmt.Sprintf("Cost %s (midpoint %s) · Insurance savings %s",
		USDRange(r.CostMin, r.CostMax), USD(r.CostMidpoint), PercentRange(r.SavingsMinPct, r.SavingsMaxPct))
	if r.EstimatedAnnualSavings > 0 {
		s += fmt.Sprintf(", about %s a year", USD(r.EstimatedAnnualSavings))
	}
	return s
}

// GrantFigures is the agency and funding line printed on a grant card.
func GrantFigures(g *catalog.GrantProgram) string {
	s := g.Agency
	if g.MaxAmount > 0 {
		s += " · up to " + USD(g.MaxAmount)
	}
	if g.MaxPercent > 0 {
		s += " · up to " + Percent(g.MaxPercent) + " of project cost"
	}
	return s
}

// InsuranceFigures is the agency and discount line printed on an insurance card.
func InsuranceFigures(p *catalog.InsuranceProgram) string {
	return p.Agency + " · up to " + Percent(p.MaxPercent) + " off"
}

// Paginate places d's blocks onto pages. The cover always fills the first
// page; a block that does not fit in what is left of a page starts a new
// one; a block taller than a whole page gets a page to itself. A heading
// moves to the next page when the block that follows it would not fit.
func Paginate(d Document, l Layout) []Page {
	blocks := d.Blocks(l)
	capacity := l.Capacity()

	var pages []Page
	var cur []Block
	var used float64
	flush := func() {
		if len(cur) == 0 {
			return
		}
		pages = append(pages, Page{Blocks: cur})
		cur, used = nil, 0
	}

	for i, b := range blocks {
		need := b.Height
		if b.Kind == BlockHeading && i+1 < len(blocks) {
			need += blocks[i+1].Height
		}
		if used > 0 && used+need > capacity {
			flush()
		}
		cur = append(cur, b)
		used += b.Height
		if b.Kind == BlockCover || used >= capacity {
			flush()
		}
	}
	flush()

	for i := range pages {
		pages[i].Number = i + 1
		pages[i].Total = len(pages)
	}
	return pages
}
