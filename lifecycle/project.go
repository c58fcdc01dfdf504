package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/framework/helpers"

	"github.com/compose-spec/compose-go/v2/loader"
	compose "github.com/compose-spec/compose-go/v2/types"
)

// DefaultComposeFiles are the file names looked up in the project directory, in order, when no
// compose file is configured.
var DefaultComposeFiles = []string{"compose.yaml", "compose.yml", "docker-compose.yml", "docker-compose.yaml"} //nolint:gochecknoglobals

// ProjectOptions locates a compose project.
type ProjectOptions struct {
	// Dir is the project directory; the current directory if empty.
	Dir string

	// File is the compose file, relative to Dir unless absolute. If empty, the first of
	// DefaultComposeFiles that exists is used.
	File string

	// Name overrides the project name. If empty, the name declared in the file is used, or else
	// the name of the project directory.
	Name string
}

// Project is what the harness needs to know about a compose project.
type Project struct {
	Name     string
	File     string
	Dir      string
	Services framework.ServiceNames
}

// DefaultNetwork is the network that compose creates for services that do not name one.
func (p *Project) DefaultNetwork() string {
	return p.Name + "_default"
}

// LoadProject reads and validates a compose project.
func LoadProject(ctx context.Context, opts ProjectOptions) (*Project, error) {
	dir, err := filepath.Abs(helpers.FirstNonEmpty(opts.Dir, "."))
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}
	file, err := composeFile(dir, opts.File)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	configDetails := compose.ConfigDetails{
		WorkingDir:  dir,
		ConfigFiles: []compose.ConfigFile{{Filename: file, Content: data}},
		Environment: compose.NewMapping(os.Environ()),
	}
	name := opts.Name
	explicit := name != ""
	if !explicit {
		name = loader.NormalizeProjectName(filepath.Base(dir))
	}
	project, err := loader.LoadWithContext(ctx, configDetails, func(o *loader.Options) {
		o.SetProjectName(name, explicit)
	})
	if err != nil {
		return nil, fmt.Errorf("parse compose file %s: %w", file, err)
	}
	if len(project.Services) == 0 {
		return nil, fmt.Errorf("compose file %s has no services", file)
	}

	services := make(framework.ServiceNames, 0, len(project.Services))
	for service := range project.Services {
		services = append(services, service)
	}
	return &Project{
		Name:     project.Name,
		File:     file,
		Dir:      dir,
		Services: services.Sorted(),
	}, nil
}

func composeFile(dir, file string) (string, error) {
	if file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		return file, nil
	}
	for _, candidate := range DefaultComposeFiles {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no compose file found in %s", dir)
}
