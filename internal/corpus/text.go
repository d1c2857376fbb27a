package corpus

import (
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var digitWords = [10]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

// Transcript renders a digit in the configured case: "upper" (THREE),
// "lower" (three), or "digit" (3).
func Transcript(digit int, mode string) (string, error) {
	if digit < 0 || digit > 9 {
		return "", fmt.Errorf("digit %d out of range", digit)
	}
	switch mode {
	case "", "upper":
		return cases.Upper(language.English).String(digitWords[digit]), nil
	case "lower":
		return cases.Lower(language.English).String(digitWords[digit]), nil
	case "digit":
		return strconv.Itoa(digit), nil
	default:
		return "", fmt.Errorf("unknown transcript case %q", mode)
	}
}
