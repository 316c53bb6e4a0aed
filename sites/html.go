package sites

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// documentHTML renders the whole document, used for the raw page copies kept
// on stories and chapters.
func documentHTML(doc *goquery.Document) string {
	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return ""
	}
	return out
}

// outerHTML renders every node of the selection, one after another.
func outerHTML(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Each(func(_ int, s *goquery.Selection) {
		if out, err := goquery.OuterHtml(s); err == nil {
			b.WriteString(out)
		}
	})
	return b.String()
}

// countWords counts whitespace-delimited tokens.
func countWords(text string) int {
	return len(strings.Fields(text))
}

// resolve joins ref onto base the way a browser resolves a link.
func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse link: %w", err)
	}
	return b.ResolveReference(r).String(), nil
}

// prepareURL trims user input and makes it start with a lowercase http://
// or https://, adding defaultScheme when the input has neither.
func prepareURL(rawURL, defaultScheme string) string {
	fixed := strings.TrimSpace(rawURL)
	lower := strings.ToLower(fixed)
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, scheme) {
			return scheme + fixed[len(scheme):]
		}
	}
	return defaultScheme + "://" + fixed
}

// stripQuery drops any query string and fragment.
func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// siblingText returns the text of the n-th node after the selection's first
// node, counting text nodes as well as elements. It returns "" when there is
// no such node.
func siblingText(sel *goquery.Selection, n int) string {
	if sel.Length() == 0 {
		return ""
	}
	node := sel.Get(0)
	for i := 0; i < n && node != nil; i++ {
		node = node.NextSibling
	}
	if node == nil {
		return ""
	}
	if node.Type == html.TextNode {
		return node.Data
	}
	return goquery.NewDocumentFromNode(node).Text()
}
