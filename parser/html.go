package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"smartchunk/chunk"
)

// parseHTML extracts the main content of an HTML page, converts it to
// markdown, and runs the markdown block parser on the result. Extraction
// degrades in stages: trafilatura, then readability, then a plain
// chrome-stripped conversion of the whole document.
func parseHTML(source string) (*chunk.Document, []chunk.Warning, error) {
	md, warnings, err := htmlToWorkingMarkdown(source)
	if err != nil {
		return nil, warnings, err
	}

	doc, mdWarnings := parseMarkdown(md)
	return doc, append(warnings, mdWarnings...), nil
}

func htmlToWorkingMarkdown(source string) (string, []chunk.Warning, error) {
	var warnings []chunk.Warning

	if result, err := trafilatura.Extract(strings.NewReader(source), trafilatura.Options{}); err == nil && result.ContentNode != nil {
		// The extract result holds trafilatura's internal tree; it must be
		// rebuilt as a plain HTML document or heading levels and paragraph
		// boundaries are lost in conversion.
		readable := trafilatura.CreateReadableDocument(result)
		if htmlStr, err := renderNode(readable); err == nil {
			if md, err := htmltomarkdown.ConvertString(htmlStr); err == nil {
				return md, warnings, nil
			}
		}
	}
	warnings = append(warnings, chunk.Warning{
		Kind:    chunk.WarnExtractionFail,
		Message: "trafilatura extraction failed, falling back to readability",
	})

	cleaned := stripChrome(source)

	pageURL, _ := url.Parse("https://localhost/")
	if article, err := readability.FromReader(strings.NewReader(cleaned), pageURL); err == nil && article.Content != "" {
		if md, err := htmltomarkdown.ConvertString(article.Content); err == nil {
			return md, warnings, nil
		}
	}
	warnings = append(warnings, chunk.Warning{
		Kind:    chunk.WarnExtractionFail,
		Message: "readability extraction failed, converting stripped document",
	})

	md, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		return "", warnings, fmt.Errorf("failed to convert html to markdown: %w", err)
	}
	return md, warnings, nil
}

// stripChrome removes script/style and navigation chrome before
// conversion. On any parse failure the source is returned unchanged.
func stripChrome(source string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return source
	}
	doc.Find("script, style, nav, header, footer, aside, form, noscript, iframe").Remove()
	out, err := doc.Html()
	if err != nil {
		return source
	}
	return out
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
