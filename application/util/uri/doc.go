// Package uri parses request targets as Uniform Resource Identifiers.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
//
// - https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
package uri
