package main

import (
	"bufio"
	"context"
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/pupperware/cluster-harness/clustertests"
	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/framework/harness"
	"github.com/pupperware/cluster-harness/framework/helpers"
	"github.com/pupperware/cluster-harness/framework/pwtest"
	"github.com/pupperware/cluster-harness/lifecycle"
	"github.com/pupperware/cluster-harness/readiness"
	"github.com/pupperware/cluster-harness/serviceinfo"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	fmt.Printf("pupperware cluster-harness v%s\n", strings.TrimSpace(versionString))

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	results, err := run(ctx, params)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !results.OK() {
		os.Exit(1)
	}
}

func run(ctx context.Context, params commandParams) (*pwtest.Results, error) {
	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			return nil, err
		}
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	project, err := lifecycle.LoadProject(ctx, lifecycle.ProjectOptions{
		Dir:  params.projectDir,
		File: params.composeFile,
		Name: params.project,
	})
	if err != nil {
		return nil, err
	}

	runner := harness.ExecRunner{Dir: project.Dir, Logger: mainDebugLogger}
	compose, err := lifecycle.NewComposeCLI(runner, params.composeCommand, project.File, project.Name)
	if err != nil {
		return nil, err
	}

	var cluster lifecycle.Cluster = compose
	if params.backend == backendDocker {
		dockerClient, err := lifecycle.NewDockerClient()
		if err != nil {
			return nil, err
		}
		defer func() { _ = dockerClient.Close() }()
		cluster = lifecycle.NewDockerCluster(dockerClient, compose, project.Name, mainDebugLogger)
	}

	session := readiness.NewSession(cluster, readiness.SessionLogger(mainDebugLogger))
	network := helpers.FirstNonEmpty(params.network, project.DefaultNetwork())
	clusterInfo := serviceinfo.ClusterInfo{
		ProjectName: project.Name,
		ComposeFile: project.File,
		Services:    project.Services,
		Network:     network,
		Backend:     params.backend,
	}

	var testLogger pwtest.TestLogger
	consoleLogger := pwtest.ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	if params.jUnitFile == "" {
		testLogger = consoleLogger
	} else {
		testLogger = pwtest.MultiTestLogger{
			consoleLogger,
			pwtest.NewJUnitTestLogger(params.jUnitFile, clusterInfo, params.filters),
		}
	}

	results := clustertests.RunSuite(ctx, session, clustertests.SuiteConfig{
		AgentImage: params.agentImage,
		AgentName:  params.agentName,
		Network:    network,
	}, project.Services, params.filters, testLogger)

	fmt.Println()
	logErr := testLogger.EndLog(results)
	printTimestamps(session.Timestamps)

	if params.metricsFile != "" {
		if err := session.Metrics.WriteToTextfile(params.metricsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write metrics: %s\n", err)
		}
	}

	if params.downAtEnd {
		fmt.Println("Stopping cluster")
		if result := cluster.Down(context.WithoutCancel(ctx)); !result.Succeeded() {
			fmt.Fprintf(os.Stderr, "Failed to stop cluster: %s\n", result.Err())
		}
	}

	if logErr != nil {
		return nil, fmt.Errorf("error writing log: %v", logErr)
	}

	if params.recordFailures != "" {
		f, err := os.Create(params.recordFailures)
		if err != nil {
			return nil, fmt.Errorf("cannot create suppression file: %v", err)
		}
		for _, test := range results.Failures {
			fmt.Fprintln(f, test.TestID)
		}
		_ = f.Close()
	}

	return &results, nil
}

func printTimestamps(timestamps *readiness.TimestampLog) {
	if timestamps.Len() == 0 {
		return
	}
	fmt.Println("Report timestamps:")
	for _, ts := range timestamps.All() {
		fmt.Printf("  %s\n", ts)
	}
}

func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %v", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore blank lines
		if strings.TrimSpace(line) == "" {
			continue
		}
		escaped := regexp.QuoteMeta(line)
		if err := params.filters.MustNotMatch.Set(escaped); err != nil {
			return fmt.Errorf("cannot parse suppression: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %v", err)
	}
	return nil
}
