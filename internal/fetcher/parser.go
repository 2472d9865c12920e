package fetcher

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/gobwas/glob"
	"golang.org/x/net/html"

	"github.com/nao1215/listingdl/internal/model"
)

// maxPriceLength caps the price text. Longer text nodes are reduced to the
// dollar amount itself.
const maxPriceLength = 64

// descriptionSelector finds the element holding the listing description.
const descriptionSelector = "[itemprop=description]:not(meta), #description, .description"

// skipTokens mark thumbnails, virtual tours and video posters.
var skipTokens = []string{"thumb", "small", "video", "tour", "360"}

// skipExtensions are media types that are never listing photos.
var skipExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".gif":  true,
}

var priceRegex = regexp.MustCompile(`\$[\d,]+`)

// IgnoreList is a set of compiled glob patterns matched against absolute
// image URLs.
type IgnoreList []glob.Glob

// CompileIgnoreList compiles patterns. Blank patterns are skipped. Invalid
// patterns are reported in the returned error while the valid ones are
// still returned.
func CompileIgnoreList(patterns []string) (IgnoreList, error) {
	list := make(IgnoreList, 0, len(patterns))
	var errs []error
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err))
			continue
		}
		list = append(list, g)
	}
	return list, errors.Join(errs...)
}

// Match reports whether any pattern matches s.
func (l IgnoreList) Match(s string) bool {
	for _, g := range l {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// Parser extracts listing data from a listing page.
type Parser struct {
	// baseURL is the page URL used to resolve relative image URLs.
	baseURL *url.URL
	ignore  IgnoreList
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithIgnoreList skips images whose absolute URL matches the list.
func WithIgnoreList(list IgnoreList) ParserOption {
	return func(p *Parser) {
		p.ignore = list
	}
}

// ParseResult contains everything extracted from a listing page.
type ParseResult struct {
	// Title is the <title> text.
	Title string

	// Address is og:title, else Title, else model.UnknownAddress.
	Address string

	// Price is the first text node containing a dollar amount.
	Price string

	// Description is the og:description content.
	Description string

	// DescriptionMarkdown is the description element converted to Markdown,
	// or Description when the page has no such element.
	DescriptionMarkdown string

	// Images are the candidate photos in document order without duplicates.
	Images []*model.Image

	// MetaTags maps meta name or property to content.
	MetaTags map[string]string
}

// NewParser creates a parser for the page at baseURL.
func NewParser(baseURL string, opts ...ParserOption) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	p := &Parser{baseURL: u}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse parses a listing page.
func (p *Parser) Parse(content []byte) (*ParseResult, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Images:   make([]*model.Image, 0),
		MetaTags: make(map[string]string),
	}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
			p.processElement(n, result, seen)
		case html.TextNode:
			if result.Price == "" {
				result.Price = extractPrice(n.Data)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	result.Address = result.MetaTags["og:title"]
	if result.Address == "" {
		result.Address = result.Title
	}
	if result.Address == "" {
		result.Address = model.UnknownAddress
	}
	result.Description = result.MetaTags["og:description"]

	result.DescriptionMarkdown = descriptionMarkdown(goquery.NewDocumentFromNode(doc))
	if result.DescriptionMarkdown == "" {
		result.DescriptionMarkdown = result.Description
	}

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult, seen map[string]bool) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "meta":
		name := getAttr(n, "property")
		if name == "" {
			name = getAttr(n, "name")
		}
		content := strings.TrimSpace(getAttr(n, "content"))
		if name != "" && content != "" {
			if _, exists := result.MetaTags[name]; !exists {
				result.MetaTags[name] = content
			}
		}

	case "img":
		src := strings.TrimSpace(getAttr(n, "data-src"))
		if src == "" {
			src = strings.TrimSpace(getAttr(n, "src"))
		}
		resolved := p.imageURL(src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		result.Images = append(result.Images, &model.Image{
			Index: len(result.Images) + 1,
			URL:   resolved,
			Alt:   strings.TrimSpace(getAttr(n, "alt")),
			Title: strings.TrimSpace(getAttr(n, "title")),
		})
	}
}

// imageURL filters and resolves an image source. It returns "" for images
// that should not be downloaded.
func (p *Parser) imageURL(src string) string {
	if src == "" {
		return ""
	}

	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		return ""
	}
	for _, token := range skipTokens {
		if strings.Contains(lower, token) {
			return ""
		}
	}

	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""

	if skipExtensions[strings.ToLower(path.Ext(resolved.Path))] {
		return ""
	}

	s := resolved.String()
	if p.ignore.Match(s) {
		return ""
	}
	return s
}

// extractPrice returns the trimmed text when it contains a dollar amount.
func extractPrice(text string) string {
	match := priceRegex.FindString(text)
	if match == "" {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) > maxPriceLength {
		return match
	}
	return text
}

// descriptionMarkdown converts the first description element to Markdown.
func descriptionMarkdown(doc *goquery.Document) string {
	selection := doc.Find(descriptionSelector).First()
	if selection.Length() == 0 {
		return ""
	}
	selection.Find("script, style").Remove()

	fragment, err := goquery.OuterHtml(selection)
	if err != nil {
		return ""
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(fragment)
	if err != nil {
		return strings.TrimSpace(selection.Text())
	}
	return strings.TrimSpace(markdown)
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
