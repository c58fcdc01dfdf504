// Package clustertests contains the checks that a running pupperware cluster must pass.
//
// The checks run in a fixed order inside one pwtest scope. Each one depends on the state that
// the earlier ones leave behind: the agent can only be run once the server reports healthy, and
// its report can only be found once PuppetDB is running.
//
// Tests in this package use other packages as follows:
//
// pwtest: the basic test scope framework
//
// readiness: the bounded waits and queries against the cluster
//
// lifecycle: the cluster abstraction that readiness drives
package clustertests
