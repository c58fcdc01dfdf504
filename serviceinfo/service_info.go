// Package serviceinfo provides a data model for what the harness knows about the cluster under test.
package serviceinfo

import (
	"github.com/pupperware/cluster-harness/framework"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// ClusterInfo describes the compose project that a test run targets.
type ClusterInfo struct {
	// ProjectName is the compose project name, which prefixes container and network names.
	ProjectName string

	// ComposeFile is the path of the compose file that was loaded, if any.
	ComposeFile string

	// Services is the list of services declared by the compose file.
	Services framework.ServiceNames

	// Network is the network that workload containers are attached to.
	Network string

	// Backend is the name of the lifecycle implementation in use, such as "cli" or "docker".
	Backend string
}

// Empty returns a ClusterInfo with no properties.
func Empty() ClusterInfo {
	return ClusterInfo{}
}

// AsValue returns the properties as a JSON object.
func (c ClusterInfo) AsValue() ldvalue.Value {
	services := ldvalue.ArrayBuild()
	for _, s := range c.Services.Sorted() {
		services.Add(ldvalue.String(s))
	}
	return ldvalue.ObjectBuild().
		SetString("project", c.ProjectName).
		SetString("composeFile", c.ComposeFile).
		Set("services", services.Build()).
		SetString("network", c.Network).
		SetString("backend", c.Backend).
		Build()
}

// FullData returns the JSON representation of AsValue.
func (c ClusterInfo) FullData() []byte {
	return []byte(c.AsValue().JSONString())
}
