/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

var digestReplacer = strings.NewReplacer("-", "X", "_", "Y")

// CanonicalJSON encodes wire data with sorted keys, no HTML escaping and no
// trailing newline. Equal wire data always yields equal bytes.
func CanonicalJSON(wire any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wire); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DigestBytes hashes b into the alphanumeric digest used in ref versions.
func DigestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return digestReplacer.Replace(base64.RawURLEncoding.EncodeToString(sum[:]))
}

// Digest is the content address of wire data.
func Digest(wire any) (string, error) {
	b, err := CanonicalJSON(wire)
	if err != nil {
		return "", err
	}
	return DigestBytes(b), nil
}

// TableDigest derives a table's digest from the digests of its rows, in order.
func TableDigest(rowDigests []string) string {
	list := make([]any, len(rowDigests))
	for i, d := range rowDigests {
		list[i] = d
	}
	// A list of strings always encodes.
	d, _ := Digest(list)
	return d
}
