// Package signer computes per-request authentication signatures for the
// device query API. The signature binds the request path and a timestamp to
// the shared secret so the server can reject tampered or replayed requests.
package signer

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Sign computes the request signature over the delimiter-free concatenation
// of path, secret and the millisecond timestamp, rendered as lowercase hex.
//
// The digest is a fast general-purpose hash, not a cryptographic MAC; the
// API uses it for anti-tamper, not confidentiality. A retried request must
// call Sign again with a fresh timestamp since the timestamp is part of the
// signed material.
func Sign(path, secret string, timestampMillis int64) string {
	material := path + secret + strconv.FormatInt(timestampMillis, 10)
	return fmt.Sprintf("%016x", xxhash.Sum64String(material))
}
