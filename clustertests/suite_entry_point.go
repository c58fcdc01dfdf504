package clustertests

import (
	"context"
	"fmt"
	"os"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/framework/pwtest"
	"github.com/pupperware/cluster-harness/readiness"
)

// RunSuite runs every cluster check in order and returns the results.
//
// services is the list of services the compose project declares; checks of services that are
// not in it are skipped. If it is empty, every service is assumed to exist.
func RunSuite(
	ctx context.Context,
	session *readiness.Session,
	config SuiteConfig,
	services framework.ServiceNames,
	filter pwtest.Filter,
	testLogger pwtest.TestLogger,
) pwtest.Results {
	if config.AgentImage == "" {
		config.AgentImage = DefaultAgentImage
	}
	if config.AgentName == "" {
		config.AgentName = NewAgentName()
	}

	fmt.Println("Running pupperware cluster checks")
	fmt.Println()
	if sdf, ok := filter.(pwtest.SelfDescribingFilter); ok {
		sdf.Describe(os.Stdout, readiness.CoreServices, services)
	}

	testConfig := pwtest.TestConfiguration{
		Filter:     filter,
		TestLogger: testLogger,
		Services:   services,
		Context: suiteContext{
			ctx:     ctx,
			session: session,
			config:  config,
		},
	}
	return pwtest.Run(testConfig, doAllClusterTests)
}

func doAllClusterTests(t *pwtest.T) {
	t.Run("cluster bring-up", doBringUpTests)
	t.Run("puppetserver health", doServerHealthTests)
	t.Run("puppetdb running", doPuppetDBTests)
	t.Run("postgres extensions", doPostgresTests)
	t.Run("agent", doAgentTests)
}
