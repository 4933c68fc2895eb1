package driven

import "net/http"

// CookieCodec encodes the session ID into the session cookie.
// Encode and Clear must use the same name, path and security attributes,
// otherwise browsers ignore the clearing cookie.
type CookieCodec interface {
	// Encode returns the session cookie for sessionID
	Encode(sessionID string) (*http.Cookie, error)

	// Decode extracts the session ID from request cookies
	Decode(cookies []*http.Cookie) (string, bool)

	// Clear returns a cookie that expires the session cookie immediately
	Clear() *http.Cookie
}
