// Package htmlutil has the document helpers the markup extractors share.
package htmlutil

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parse reads an HTML document from a string body.
func Parse(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// NodeText concatenates every text node under node in document order.
func NodeText(node *html.Node) string {
	if node == nil {
		return ""
	}
	var out strings.Builder
	stack := []*html.Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type == html.TextNode {
			out.WriteString(n.Data)
			continue
		}
		// push children in reverse so they pop in document order
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return out.String()
}

// InlineScripts returns the source of every <script> element without a src
// attribute, in document order.
func InlineScripts(doc *goquery.Document) []string {
	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		out = append(out, NodeText(s.Get(0)))
	})
	return out
}

// FirstSubmatch returns the first capture group of the first text re matches.
func FirstSubmatch(texts []string, re *regexp.Regexp) (string, bool) {
	for _, text := range texts {
		groups := re.FindStringSubmatch(text)
		if len(groups) >= 2 {
			return groups[1], true
		}
	}
	return "", false
}
