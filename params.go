package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pupperware/cluster-harness/clustertests"
	"github.com/pupperware/cluster-harness/framework/helpers"
	"github.com/pupperware/cluster-harness/framework/pwtest"
	"github.com/pupperware/cluster-harness/lifecycle"
)

const (
	backendCLI    = "cli"
	backendDocker = "docker"
)

type commandParams struct {
	configFile     string
	projectDir     string
	composeFile    string
	project        string
	composeCommand string
	backend        string
	agentImage     string
	agentName      string
	network        string
	filters        pwtest.RegexFilters
	skipFile       string
	recordFailures string
	debug          bool
	debugAll       bool
	jUnitFile      string
	metricsFile    string
	downAtEnd      bool
}

func (c *commandParams) flagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&c.configFile, "config", c.configFile, "YAML file with default values for these options")
	fs.StringVar(&c.projectDir, "project-dir", helpers.FirstNonEmpty(c.projectDir, "."), "directory of the compose project")
	fs.StringVar(&c.composeFile, "compose-file", c.composeFile, "compose file, relative to the project directory")
	fs.StringVar(&c.project, "project", c.project, "compose project name")
	fs.StringVar(&c.composeCommand, "compose-command",
		helpers.FirstNonEmpty(c.composeCommand, lifecycle.DefaultComposeCommand), `compose command, such as "docker compose"`)
	fs.StringVar(&c.backend, "backend", helpers.FirstNonEmpty(c.backend, backendCLI),
		`how to query containers: "cli" (compose and docker commands) or "docker" (Docker Engine API)`)
	fs.StringVar(&c.agentImage, "agent-image", helpers.FirstNonEmpty(c.agentImage, clustertests.DefaultAgentImage),
		"image of the agent run against the cluster")
	fs.StringVar(&c.agentName, "agent-name", c.agentName, "name and hostname of the agent container (default: unique per run)")
	fs.StringVar(&c.network, "network", c.network, "network for the agent container (default: the project's default network)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.StringVar(&c.skipFile, "skip-file", c.skipFile, "file listing tests to skip, one per line")
	fs.StringVar(&c.recordFailures, "record-failures", c.recordFailures, "write the IDs of failed tests to this file")
	fs.BoolVar(&c.debug, "debug", c.debug, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", c.debugAll, "enable debug logging for all tests")
	fs.StringVar(&c.jUnitFile, "junit", c.jUnitFile, "write JUnit XML output to the specified path")
	fs.StringVar(&c.metricsFile, "metrics-file", c.metricsFile, "write probe metrics in Prometheus text format to this path")
	fs.BoolVar(&c.downAtEnd, "down-at-end", c.downAtEnd, "stop the cluster and remove its volumes after the test run")
	return fs
}

// Read parses the command line. If -config names a file, its values become the defaults and
// the command line is parsed again on top of them.
func (c *commandParams) Read(args []string) bool {
	fs := c.flagSet()
	if err := fs.Parse(args[1:]); err != nil {
		return false
	}
	if c.configFile != "" {
		fromFile := commandParams{configFile: c.configFile}
		if err := loadConfigFile(c.configFile, &fromFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
		*c = fromFile
		fs = c.flagSet()
		if err := fs.Parse(args[1:]); err != nil {
			return false
		}
	}
	if c.backend != backendCLI && c.backend != backendDocker {
		fmt.Fprintf(os.Stderr, "-backend must be %q or %q\n", backendCLI, backendDocker)
		fs.Usage()
		return false
	}
	return true
}
