package util

import (
	"net/url"
	"strings"
)

// trackingParams are dropped from posting links so the same notice reached
// through different campaigns keeps one SourceURL.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
}

// ResolveURL makes href absolute against base and canonicalizes it. Non-web
// links (javascript:, mailto:) resolve to "".
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if b, err := url.Parse(strings.TrimSpace(base)); err == nil {
		ref = b.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return canonicalURL(ref)
}

func canonicalURL(u *url.URL) string {
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}
	// Encode sorts by key
	u.RawQuery = q.Encode()
	return u.String()
}
