package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Style returns the inline value of a CSS property on the first element of
// sel, or "" when it is not set.
func Style(sel *goquery.Selection, property string) string {
	for _, decl := range declarations(sel.First()) {
		if strings.EqualFold(decl.Property, property) {
			return decl.Value
		}
	}
	return ""
}

// SetStyle sets an inline CSS property on every element of sel. An empty
// value removes the property.
func SetStyle(sel *goquery.Selection, property, value string) {
	sel.Each(func(_ int, s *goquery.Selection) {
		decls := declarations(s)
		found := false
		out := decls[:0]
		for _, decl := range decls {
			if !strings.EqualFold(decl.Property, property) {
				out = append(out, decl)
				continue
			}
			found = true
			if value != "" {
				decl.Value = value
				out = append(out, decl)
			}
		}
		if !found && value != "" {
			out = append(out, &css.Declaration{Property: property, Value: value})
		}
		writeDeclarations(s, out)
	})
}

// Hidden reports whether the first element of sel is hidden via inline
// display:none. An empty selection counts as hidden.
func Hidden(sel *goquery.Selection) bool {
	if sel.Length() == 0 {
		return true
	}
	return strings.EqualFold(Style(sel, "display"), "none")
}

func declarations(sel *goquery.Selection) []*css.Declaration {
	raw, ok := sel.Attr("style")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	decls, err := parser.ParseDeclarations(raw)
	if err != nil {
		return nil
	}
	return decls
}

func writeDeclarations(sel *goquery.Selection, decls []*css.Declaration) {
	if len(decls) == 0 {
		sel.RemoveAttr("style")
		return
	}
	parts := make([]string, 0, len(decls))
	for _, decl := range decls {
		part := decl.Property + ": " + decl.Value
		if decl.Important {
			part += " !important"
		}
		parts = append(parts, part)
	}
	sel.SetAttr("style", strings.Join(parts, "; "))
}
