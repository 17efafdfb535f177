package osm

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// mastodonProfileRegex matches profile links such as https://en.osm.town/@alice.
var mastodonProfileRegex = regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}/@[A-Za-z0-9_]+`)

// meLinks returns the href of every anchor whose rel attribute contains "me", in document order.
func meLinks(description string) []string {
	var links []string

	z := html.NewTokenizer(strings.NewReader(description))

	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.A {
				continue
			}

			var href string

			isMe := false

			for _, attr := range tok.Attr {
				switch attr.Key {
				case "href":
					href = attr.Val
				case "rel":
					for _, rel := range strings.Fields(attr.Val) {
						if rel == "me" {
							isMe = true
						}
					}
				}
			}

			if isMe && href != "" {
				links = append(links, href)
			}
		}
	}
}

// handleFromProfileURL renders https://host/@user as @user@host.
func handleFromProfileURL(profile string) (string, bool) {
	u, err := url.Parse(profile)
	if err != nil || u.Host == "" {
		return "", false
	}

	path := strings.Trim(u.Path, "/")
	if path == "" || strings.Contains(path, "/") {
		return "", false
	}

	if !strings.HasPrefix(path, "@") {
		path = "@" + path
	}

	return path + "@" + u.Host, true
}

// findHandle extracts the fediverse handle from an OSM profile description: the first rel="me"
// link, otherwise the first Mastodon-shaped profile URL in the text.
func findHandle(description string) (string, bool) {
	for _, link := range meLinks(description) {
		if handle, ok := handleFromProfileURL(link); ok {
			return handle, true
		}
	}

	if match := mastodonProfileRegex.FindString(description); match != "" {
		return handleFromProfileURL(match)
	}

	return "", false
}

// plainText returns the text content of an HTML fragment. Block elements become spaces,
// inline markup is removed without adding whitespace.
func plainText(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div})
	if err != nil {
		return fragment
	}

	var sb strings.Builder

	var walk func(n *html.Node)

	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.DataAtom == atom.Br || n.DataAtom == atom.P):
			sb.WriteString(" ")
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}

		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			sb.WriteString(" ")
		}
	}

	for _, n := range nodes {
		walk(n)
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

// hasNoBotTag reports whether text carries #nobot or #nomapcompletebot. Dashes are ignored
// and matching is case-insensitive, so "#No-Bot" counts.
func hasNoBotTag(text string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(plainText(text), "-", ""))

	for _, token := range strings.Fields(normalized) {
		token = strings.TrimRight(token, ".,;:!?)")
		if token == tagNoBot || token == tagNoMapCompleteBot {
			return true
		}
	}

	return false
}

// fieldSaysNoBot reports whether the nobot profile field is yes or true.
func fieldSaysNoBot(fields map[string]string) bool {
	for name, value := range fields {
		if !strings.EqualFold(strings.TrimSpace(name), fieldNoBot) {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(plainText(value))) {
		case "yes", "true":
			return true
		}
	}

	return false
}
