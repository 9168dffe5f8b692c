package internal

import (
	"regexp"
)

const (
	// A valid name part must start with a letter, digit or underscore.
	// It may contain any character after that except control characters
	// and the ':' and '-' separators used by the key grammar.
	pattern = `^[\pL\pN_][^\pC:-]*$`
	// It may not end with a whitespace character.
	antiPattern = `\pZ$`
)

var (
	re     *regexp.Regexp
	antiRe *regexp.Regexp
)

func init() {
	var err error
	re, err = regexp.Compile(pattern)
	if err != nil {
		panic(err)
	}
	antiRe, err = regexp.Compile(antiPattern)
	if err != nil {
		panic(err)
	}
}

// IsValidNamePart returns true if s can be used as a quantity name,
// dimension name or tag within the "name:dim-dim:tag" key grammar.
func IsValidNamePart(s string) bool {
	return re.MatchString(s) && !antiRe.MatchString(s)
}
