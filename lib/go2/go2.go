// Package go2 contains general utility helpers that should've been in Go. Maybe they'll be in Go 2.0.
package go2

func Pointer[T any](v T) *T {
	return &v
}
