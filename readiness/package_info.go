// Package readiness waits for the cluster under test to reach the state that a test expects.
//
// Everything here is a specialization of one protocol, Poll: read a value from a StateSource,
// test it with a matcher, and either stop or wait one interval and read again, until a fixed
// deadline. Transient failures of a probe never abort a poll; they are remembered in the Outcome
// and the poll keeps going. A Session carries what must persist between polls of one test run:
// the endpoint cache, the report timestamp log, probe metrics and the HTTP client.
package readiness
