package must

import "net/url"

// ParseURL parses the URL and panics when it is invalid. For URLs that are
// known at compile time, mostly in tests.
func ParseURL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic("invalid URL: " + err.Error())
	}
	return u
}
