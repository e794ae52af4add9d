package web

import (
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// The event feed is only for local tools, so browsers may connect only from
// pages served by a loopback origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: loopbackOrigin,
}

func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
