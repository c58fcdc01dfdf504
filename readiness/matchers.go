package readiness

import (
	"fmt"
	"regexp"
	"strings"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

// MatchesPattern is a matcher for strings that tests whether the value matches a regular
// expression. The pattern is not anchored unless it says so.
func MatchesPattern(pattern *regexp.Regexp) m.Matcher {
	return m.New(
		func(value interface{}) bool {
			return pattern.MatchString(value.(string))
		},
		func() string {
			return fmt.Sprintf("matches /%s/", pattern)
		},
		func(interface{}) string {
			return fmt.Sprintf("did not match /%s/", pattern)
		},
	).EnsureType("")
}

// NonEmptyString is a matcher for strings with at least one non-whitespace character.
func NonEmptyString() m.Matcher {
	return m.New(
		func(value interface{}) bool {
			return strings.TrimSpace(value.(string)) != ""
		},
		func() string {
			return "is not empty"
		},
		nil,
	).EnsureType("")
}

// notStarting accepts any health value except "starting", bare or quoted.
func notStarting() m.Matcher {
	return m.Not(m.AnyOf(m.Equal("starting"), m.Equal("'starting'")))
}
