package clustertests

import (
	"github.com/pupperware/cluster-harness/framework/helpers"
	"github.com/pupperware/cluster-harness/framework/pwtest"
	"github.com/pupperware/cluster-harness/readiness"
)

func doAgentTests(t *pwtest.T) {
	t.RequireService(readiness.ServicePuppet)
	c := requireContext(t)
	agent := c.config.AgentName
	t.Debug("agent name is %s", agent)

	var certname string
	resolveCertname := func(t *pwtest.T) string {
		if certname == "" {
			domain, result := c.session.Domain(c.ctx, t.DebugLogger())
			if !result.Succeeded() {
				t.Debug("could not determine server domain: %s", result.Err())
			}
			certname = readiness.Certname(agent, domain)
		}
		return certname
	}

	t.Run("run", func(t *pwtest.T) {
		result := c.session.RunAgent(c.ctx, c.config.AgentImage, agent, c.config.Network, t.DebugLogger())
		helpers.AssertSucceeded(t, result, "agent %s did not complete a run", agent)
	})

	t.Run("report", func(t *pwtest.T) {
		t.RequireService(readiness.ServicePuppetDB)
		name := resolveCertname(t)
		outcome := c.session.AwaitReport(c.ctx, name, t.DebugLogger())
		helpers.AssertSucceeded(t, outcome, "no report for %s was stored in puppetdb", name)
	})

	t.Run("clean certificate", func(t *pwtest.T) {
		name := resolveCertname(t)
		result := c.session.CleanCertificate(c.ctx, name, t.DebugLogger())
		helpers.AssertSucceeded(t, result, "could not clean the certificate of %s", name)
	})
}
