package htmlutil

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// HiddenInputValue pulls the value of an <input name=...> out of a parsed
// page, the way login forms carry csrf tokens.
func HiddenInputValue(doc *goquery.Document, name string) (string, error) {
	value := doc.Find(fmt.Sprintf("input[name=%s]", name)).AttrOr("value", "")
	if value == "" {
		return "", fmt.Errorf("could not find input %q", name)
	}
	return value, nil
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// NormalizeText strips non-printable runes, trims surrounding whitespace
// and collapses inner whitespace runs.
func NormalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}
