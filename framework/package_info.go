// Package framework contains the low-level infrastructure of the cluster test harness that is not
// specific to any one cluster. The base package contains shared types such as Logger; other
// components are in the subpackages harness, helpers, matchers and pwtest.
//
// The general model is:
//
// 1. The cluster under test is a set of named services started by an external lifecycle manager
// (docker-compose or the Docker Engine). The harness never talks to the services' internals, only
// to their published endpoints and to commands run inside their containers.
//
// 2. Anything the harness observes about the cluster is eventually consistent, so every check is
// expressed as a bounded poll of some state source.
//
// 3. There is a general notion of a test scope which is similar to Go's testing.T, allowing pieces
// of test logic to be associated with a test identifier and to accumulate success/failure results.
//
// The domain-specific code that knows what is being tested (package clustertests) is responsible
// for choosing the state sources, the expected values and the order of the checks.
package framework
