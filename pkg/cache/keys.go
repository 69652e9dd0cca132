package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Key joins the non-empty parts with ':'.
func Key(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

// Digest returns the hex md5 of the parts, each terminated by a NUL byte
// so that ("ab", "c") and ("a", "bc") differ.
func Digest(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
