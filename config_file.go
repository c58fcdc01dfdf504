package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type configFile struct {
	ProjectDir     string   `yaml:"projectDir"`
	ComposeFile    string   `yaml:"composeFile"`
	Project        string   `yaml:"project"`
	ComposeCommand string   `yaml:"composeCommand"`
	Backend        string   `yaml:"backend"`
	AgentImage     string   `yaml:"agentImage"`
	AgentName      string   `yaml:"agentName"`
	Network        string   `yaml:"network"`
	Run            []string `yaml:"run"`
	Skip           []string `yaml:"skip"`
	SkipFile       string   `yaml:"skipFile"`
	RecordFailures string   `yaml:"recordFailures"`
	Debug          bool     `yaml:"debug"`
	DebugAll       bool     `yaml:"debugAll"`
	JUnit          string   `yaml:"junit"`
	MetricsFile    string   `yaml:"metricsFile"`
	DownAtEnd      bool     `yaml:"downAtEnd"`
}

func loadConfigFile(path string, params *commandParams) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read config file: %w", err)
	}
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	params.projectDir = cf.ProjectDir
	params.composeFile = cf.ComposeFile
	params.project = cf.Project
	params.composeCommand = cf.ComposeCommand
	params.backend = cf.Backend
	params.agentImage = cf.AgentImage
	params.agentName = cf.AgentName
	params.network = cf.Network
	params.skipFile = cf.SkipFile
	params.recordFailures = cf.RecordFailures
	params.debug = cf.Debug
	params.debugAll = cf.DebugAll
	params.jUnitFile = cf.JUnit
	params.metricsFile = cf.MetricsFile
	params.downAtEnd = cf.DownAtEnd
	for _, pattern := range cf.Run {
		if err := params.filters.MustMatch.Set(pattern); err != nil {
			return fmt.Errorf("invalid run pattern in config file: %w", err)
		}
	}
	for _, pattern := range cf.Skip {
		if err := params.filters.MustNotMatch.Set(pattern); err != nil {
			return fmt.Errorf("invalid skip pattern in config file: %w", err)
		}
	}
	return nil
}
