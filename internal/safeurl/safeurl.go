// Package safeurl validates programme icon URLs before the poster resolver
// fetches them. XMLTV feeds are third-party input; an icon src of file:// or
// an empty host must resolve to "no thumbnail", never to a local read.
package safeurl

import "net/url"

// IsFetchableIcon returns true if u is a valid absolute http or https URL
// with a host. Anything else (file://, ftp://, relative paths, garbage) is
// rejected; the episode ships without a thumbnail.
func IsFetchableIcon(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
