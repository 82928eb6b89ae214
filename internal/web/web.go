// Package web embeds the host page served at /.
package web

import _ "embed"

// IndexHTML is the host page. It runs the Spotify Web Playback SDK,
// relays its callbacks over /ws and plays the atc relay from /offer.
//
//go:embed index.html
var IndexHTML []byte
