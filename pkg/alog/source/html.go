package source

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blocks are the elements whose text becomes one statement line each.
var blocks = map[atom.Atom]bool{
	atom.P:   true,
	atom.Li:  true,
	atom.Dd:  true,
	atom.Dt:  true,
	atom.Td:  true,
	atom.H1:  true,
	atom.H2:  true,
	atom.H3:  true,
	atom.H4:  true,
	atom.H5:  true,
	atom.H6:  true,
	atom.Pre: true,
}

// ExtractHTML returns the text of the block elements of an HTML document in
// document order. A <pre> block keeps its line breaks, so it may yield several
// lines. Script and style content is skipped.
func ExtractHTML(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Script || n.DataAtom == atom.Style:
				return
			case n.DataAtom == atom.Pre:
				for _, l := range strings.Split(text(n), "\n") {
					if l = strings.TrimSpace(l); l != "" {
						lines = append(lines, l)
					}
				}
				return
			case blocks[n.DataAtom] && !hasBlockChild(n):
				if t := strings.Join(strings.Fields(text(n)), " "); t != "" {
					lines = append(lines, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return lines, nil
}

func text(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// hasBlockChild reports whether a nested block (a list inside a list item, say)
// should be visited on its own instead.
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blocks[c.DataAtom] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}
