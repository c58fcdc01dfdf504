package clustertests

import (
	"github.com/pupperware/cluster-harness/framework/helpers"
	"github.com/pupperware/cluster-harness/framework/pwtest"
	"github.com/pupperware/cluster-harness/readiness"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

func doBringUpTests(t *pwtest.T) {
	c := requireContext(t)
	helpers.AssertSucceeded(t, c.session.BringUp(c.ctx, t.DebugLogger()), "could not start the cluster")

	for _, service := range readiness.CoreServices {
		t.Run(service, func(t *pwtest.T) {
			t.RequireService(service)
			result := c.session.ServicePresent(c.ctx, service, t.DebugLogger())
			if !result.Succeeded() {
				t.Errorf("service %s not found: %s", service, helpers.FirstNonEmpty(result.Output, errorText(result.StartErr)))
			}
		})
	}
}

func doServerHealthTests(t *pwtest.T) {
	t.RequireService(readiness.ServicePuppet)
	c := requireContext(t)

	result := c.session.AwaitServerHealth(c.ctx, t.DebugLogger())
	helpers.RequireSucceeded(t, result.Container, "could not find the puppetserver container")
	helpers.AssertSucceeded(t, result.Health, "puppetserver did not finish starting")
	m.In(t).Assert(result.Status(), readiness.MatchesPattern(readiness.HealthyPattern))
}

func doPuppetDBTests(t *pwtest.T) {
	t.RequireService(readiness.ServicePuppetDB)
	c := requireContext(t)

	outcome := c.session.AwaitPuppetDB(c.ctx, t.DebugLogger())
	if !m.In(t).Assert(outcome.Result(), m.Equal(readiness.PuppetDBRunning)) {
		t.Errorf("%s", outcome.Err())
	}
}

func doPostgresTests(t *pwtest.T) {
	t.RequireService(readiness.ServicePostgres)
	c := requireContext(t)

	result := c.session.PostgresExtensions(c.ctx, t.DebugLogger())
	helpers.RequireSucceeded(t, result, "could not list postgres extensions")
	m.In(t).Assert(result.Output, m.AllOf(
		readiness.MatchesPattern(readiness.PgTrgmPattern),
		readiness.MatchesPattern(readiness.PgCryptoPattern),
	))
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
