// Package sanitize provides HTML sanitization for editor-generated content.
// Uses bluemonday to strip dangerous HTML (script tags, event handlers,
// javascript: URLs) while preserving the formatting the admin panel's
// rich-text editor produces.
package sanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy for sanitizing editor HTML.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()

		// The editor uses classes for text alignment and block styling.
		policy.AllowAttrs("class").Globally()

		// Allow style on inline formatting elements (text color, highlights).
		policy.AllowAttrs("style").OnElements("span", "p", "div", "td", "th")

		// Allow table elements for report bodies with data tables.
		policy.AllowElements("table", "thead", "tbody", "tfoot", "tr", "td", "th", "colgroup", "col", "caption")
		policy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	})
	return policy
}

// HTML sanitizes editor-provided HTML content by stripping dangerous elements
// (script, iframe, event handlers, javascript: URLs) while preserving safe
// formatting tags.
//
// This MUST be called on all submitted HTML before storing it in the database.
// The sanitized output is safe for the public site to render via innerHTML.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	return getPolicy().Sanitize(input)
}
