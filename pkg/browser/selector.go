// Package browser drives headless Chrome sessions over the DevTools protocol.
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// SelectorKind tells how a Selector value is matched against the document.
type SelectorKind string

const (
	ByName  SelectorKind = "name"
	ByID    SelectorKind = "id"
	ByCSS   SelectorKind = "css"
	ByXPath SelectorKind = "xpath"
)

// Selector locates an element in the live document.
type Selector struct {
	Kind  SelectorKind
	Value string
}

// Name returns a selector matching elements by their name attribute.
func Name(value string) Selector {
	return Selector{Kind: ByName, Value: value}
}

// ParseSelectorKind converts a kind name, accepting an empty string as ByName.
func ParseSelectorKind(kind string) (SelectorKind, error) {
	switch SelectorKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", ByName:
		return ByName, nil
	case ByID:
		return ByID, nil
	case ByCSS:
		return ByCSS, nil
	case ByXPath:
		return ByXPath, nil
	default:
		return "", fmt.Errorf("unknown selector kind %q", kind)
	}
}

func (s Selector) String() string {
	kind := s.Kind
	if kind == "" {
		kind = ByName
	}
	return string(kind) + "=" + s.Value
}

// query translates the selector into a chromedp query and the matching
// query option.
func (s Selector) query() (string, chromedp.QueryOption, error) {
	if s.Value == "" {
		return "", nil, fmt.Errorf("empty %s selector", s.Kind)
	}
	switch s.Kind {
	case "", ByName:
		return `[name="` + cssQuote(s.Value) + `"]`, chromedp.ByQuery, nil
	case ByID:
		return `[id="` + cssQuote(s.Value) + `"]`, chromedp.ByQuery, nil
	case ByCSS:
		return s.Value, chromedp.ByQuery, nil
	case ByXPath:
		return s.Value, chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("unknown selector kind %q", s.Kind)
	}
}

func cssQuote(value string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
}

// Element is a node matched by Find.
type Element struct {
	Selector Selector
	NodeID   cdp.NodeID
	Node     *cdp.Node
}
