package helpers

import "fmt"

// FormatID builds a human-readable identifier from a series prefix and a
// counter value: the decimal value zero-padded to at least five digits,
// e.g. FormatID("EGL", 7) == "EGL00007". Values needing more digits keep
// their full width: FormatID("EGL", 123456) == "EGL123456".
func FormatID(prefix string, n int64) string {
	return fmt.Sprintf("%s%05d", prefix, n)
}
