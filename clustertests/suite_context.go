package clustertests

import (
	"context"
	"fmt"

	"github.com/pupperware/cluster-harness/framework/pwtest"
	"github.com/pupperware/cluster-harness/readiness"

	"github.com/google/uuid"
)

// DefaultAgentImage is the agent image run against the cluster when none is configured.
const DefaultAgentImage = "puppet/puppet-agent-alpine"

// SuiteConfig holds the settings of the agent check.
type SuiteConfig struct {
	// AgentImage is the image of the agent container.
	AgentImage string

	// AgentName is the container name and hostname of the agent. If empty, a unique name is
	// generated for each run so that certificates from earlier runs do not collide.
	AgentName string

	// Network is the docker network the agent joins.
	Network string
}

// NewAgentName returns a unique agent name.
func NewAgentName() string {
	return fmt.Sprintf("agent-%s", uuid.NewString())
}

type suiteContext struct {
	ctx     context.Context
	session *readiness.Session
	config  SuiteConfig
}

func requireContext(t *pwtest.T) suiteContext {
	if c, ok := t.Context().(suiteContext); ok {
		return c
	}
	panic("suiteContext was not included in the global test configuration!" +
		" This is a basic mistake in the initialization logic.")
}
