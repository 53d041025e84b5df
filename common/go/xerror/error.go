// Package xerror contains helpers for code paths where an error means a
// programming mistake, such as parsing constant addresses in tests.
package xerror

// Unwrap returns t, panicking if e is not nil.
func Unwrap[T any](t T, e error) T {
	if e != nil {
		panic(e)
	}
	return t
}
