package websocket

import (
	"net/url"
	"strings"
)

// BuildWebSocketURL monta a URL do canal de voz com a sessão na query.
// http/https viram ws/wss.
func BuildWebSocketURL(baseURL, sessionID string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}

	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	if sessionID != "" {
		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
	}

	return u.String()
}
