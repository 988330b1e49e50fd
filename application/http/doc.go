// Package http implements the HTTP/1.1 message syntax: start lines, field lines and versions.
// Field semantics live in [hunk/application/http/semantic].
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
