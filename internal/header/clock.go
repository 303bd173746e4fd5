package header

import "strings"

// clockSuffixChars are the integer-literal suffix characters a clock
// frequency may carry in board metadata ("4000000L", "20000000UL").
const clockSuffixChars = "LUlu"

// StripClockSuffix removes trailing integer suffix characters from a clock
// frequency literal. Digits are never removed and the result is stable under
// repeated application.
func StripClockSuffix(clockHz string) string {
	return strings.TrimRight(clockHz, clockSuffixChars)
}
