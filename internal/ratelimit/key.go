package ratelimit

import "strings"

// KeyForRoute builds a limiter key scoped to a route family and client.
func KeyForRoute(route, clientIP string) string {
	route = strings.TrimSpace(route)
	clientIP = strings.TrimSpace(clientIP)
	if route == "" || clientIP == "" {
		return ""
	}
	return route + ":" + clientIP
}
