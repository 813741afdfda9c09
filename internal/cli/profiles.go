package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProfilePaths resolves every local file a profile owns.
type ProfilePaths struct {
	Store       string `yaml:"store"`
	ArchiveDir  string `yaml:"archive_dir"`
	LookupCache string `yaml:"lookup_cache"`
	Credentials string `yaml:"credentials"`
	StateFile   string `yaml:"state_file"`
}

// ProfilesFile is the on-disk profiles configuration: one embedded
// store per producer profile.
type ProfilesFile struct {
	Default  string                  `yaml:"default"`
	Profiles map[string]ProfilePaths `yaml:"profiles"`
}

// LoadProfiles reads the profiles file. A missing file yields a
// single implicit "default" profile rooted under ./data.
func LoadProfiles(path string) (*ProfilesFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ProfilesFile{
			Default:  "default",
			Profiles: map[string]ProfilePaths{"default": defaultPaths("default")},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profiles: read %s: %w", path, err)
	}

	var pf ProfilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("profiles: parse %s: %w", path, err)
	}
	if len(pf.Profiles) == 0 {
		return nil, fmt.Errorf("profiles: %s declares no profiles", path)
	}
	if pf.Default == "" {
		return nil, fmt.Errorf("profiles: %s has no default profile", path)
	}
	return &pf, nil
}

// Resolve returns the paths for the named profile (or the default
// when name is empty), filling unset paths with the conventional
// layout under ./data/<profile>.
func (pf *ProfilesFile) Resolve(name string) (ProfilePaths, error) {
	if name == "" {
		name = pf.Default
	}
	p, ok := pf.Profiles[name]
	if !ok {
		return ProfilePaths{}, fmt.Errorf("profiles: unknown profile %q", name)
	}
	def := defaultPaths(name)
	if p.Store == "" {
		p.Store = def.Store
	}
	if p.ArchiveDir == "" {
		p.ArchiveDir = def.ArchiveDir
	}
	if p.LookupCache == "" {
		p.LookupCache = def.LookupCache
	}
	if p.Credentials == "" {
		p.Credentials = def.Credentials
	}
	if p.StateFile == "" {
		p.StateFile = def.StateFile
	}
	return p, nil
}

func defaultPaths(name string) ProfilePaths {
	root := filepath.Join("data", name)
	return ProfilePaths{
		Store:       filepath.Join(root, "ledger.db"),
		ArchiveDir:  filepath.Join(root, "archives"),
		LookupCache: filepath.Join(root, "lookup_cache.json"),
		Credentials: filepath.Join(root, "credentials.json"),
		StateFile:   filepath.Join(root, "archive_state.json"),
	}
}
