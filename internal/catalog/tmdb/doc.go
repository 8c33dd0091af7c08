// Package tmdb is the minimal HTTP client for The Movie Database API.
//
// It authenticates with a v4 read access token sent as a bearer header and
// exposes the three calls reelcache needs: multi-type search, a title detail
// fetch with credits and keywords appended in the same request, and a token
// check. Detail payloads are returned as raw JSON so callers can persist them
// verbatim. Every failure is a *TransportError that matches
// services.ErrTransport; the client never retries.
package tmdb
