package helpers

import "github.com/stretchr/testify/assert"

// AssertJSONEqual asserts that two JSON values are deeply equal, and, if they're not,
// prints a helpful diff.
func AssertJSONEqual(t assert.TestingT, expectedJSONString, actualJSONString string) bool {
	return assert.JSONEq(t, expectedJSONString, actualJSONString)
}
