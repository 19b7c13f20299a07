package middleware

import (
	"net/http"
	"strings"
)

// Hosts the analysis page loads map assets from.
const (
	LeafletCDN = "https://unpkg.com"
	TileHost   = "https://*.tile.openstreetmap.org https://tile.openstreetmap.org"
)

// SecurityHeaders adds a standard set of security-related headers to every response.
//
// The Content-Security-Policy keeps scripts and styles on our own origin plus the
// Leaflet CDN, and allows map tiles from the configured tile hosts. imgHosts, when set,
// is called on every request and extends img-src, e.g. with the host of a custom tile
// layer that can change while the server runs.
func SecurityHeaders(next http.Handler, imgHosts func() []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var extra []string
		if imgHosts != nil {
			extra = imgHosts()
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy(extra))
		next.ServeHTTP(w, r)
	})
}

func contentSecurityPolicy(extraImgHosts []string) string {
	imgSrc := append([]string{"'self'", "data:", TileHost, LeafletCDN}, extraImgHosts...)
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' " + LeafletCDN,
		"style-src 'self' " + LeafletCDN,
		"img-src " + strings.Join(imgSrc, " "),
		"form-action 'self'",
		"frame-ancestors 'none'",
	}, "; ")
}
