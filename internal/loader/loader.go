// Package loader installs the default "loading" visual into a region.
package loader

import "github.com/PuerkitoBio/goquery"

// Markup is the three-bounce spinner placeholder.
const Markup = `<div class="loader humhub-ui-loader"><div class="sk-spinner sk-spinner-three-bounce"><div class="sk-bounce1"></div><div class="sk-bounce2"></div><div class="sk-bounce3"></div></div></div>`

// Placeholder installs a loading visual into a target region.
type Placeholder interface {
	Set(target *goquery.Selection)
}

// Spinner is the default Placeholder.
type Spinner struct{}

// Set replaces the target's children with the spinner.
func (Spinner) Set(target *goquery.Selection) {
	target.SetHtml(Markup)
}

// Present reports whether sel contains a loader.
func Present(sel *goquery.Selection) bool {
	return sel.Find(".loader").Length() > 0
}
