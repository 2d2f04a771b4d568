//go:build !tinygo

// Package strconvx is a strconv facade: host builds delegate to the
// standard library, MCU builds carry a small allocation-aware subset so
// firmware binaries do not pull in the full strconv tables.
package strconvx

import "strconv"

func Itoa(i int) string                  { return strconv.Itoa(i) }
func Atoi(s string) (int, error)         { return strconv.Atoi(s) }
func FormatInt(i int64, base int) string { return strconv.FormatInt(i, base) }
func FormatUint(u uint64, base int) string {
	return strconv.FormatUint(u, base)
}
func ParseUint(s string, base, bitSize int) (uint64, error) {
	return strconv.ParseUint(s, base, bitSize)
}
