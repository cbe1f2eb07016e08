package inventory

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// PolicyConfig is the operator-facing configuration for how versions are
// looked up and deduplicated: dataset aliases, alternate replicas, filter
// directories, and the uniqueness/last-snapshot policy knobs version lookup
// exposes. It is loaded from layered YAML files merged in order, with
// environment variable expansion and a TIMEWALK_-prefixed override for any
// key.
type PolicyConfig struct {
	Aliases                    map[string]string   `yaml:"aliases,omitempty" mapstructure:"aliases"`
	AlternateReplicas          map[string][]string `yaml:"alternate_replicas,omitempty" mapstructure:"alternate_replicas"`
	FilterDirs                 []string             `yaml:"filter_dirs,omitempty" mapstructure:"filter_dirs"`
	CommonSnapDir              string               `yaml:"common_snap_dir,omitempty" mapstructure:"common_snap_dir"`
	Uniqueness                 string               `yaml:"uniqueness,omitempty" mapstructure:"uniqueness"`
	LastSnapMode               string               `yaml:"last_snap_mode,omitempty" mapstructure:"last_snap_mode"`
	WorkerPoolSize             int                  `yaml:"worker_pool_size,omitempty" mapstructure:"worker_pool_size"`
	AutomountMinIntervalMillis int                  `yaml:"automount_min_interval_millis,omitempty" mapstructure:"automount_min_interval_millis"`
}

const envPrefix = "TIMEWALK"

func expandEnvWithDefaults(s string) string {
	name, defaultVal, hasDefault := strings.Cut(s, ":-")
	if hasDefault {
		if v := os.Getenv(name); v != "" {
			return v
		}

		return defaultVal
	}

	return os.Getenv(s)
}

// LoadPolicyConfig reads and merges one or more YAML config files into a
// PolicyConfig. Later paths override earlier ones for any key they set.
// ${VAR}, $VAR and ${VAR:-default} are expanded against the environment
// before parsing, and a key set in at least one of the files may
// additionally be overridden by a TIMEWALK_-prefixed environment variable
// (e.g. TIMEWALK_UNIQUENESS). Keys absent from every file are not read from
// the environment, and with no paths the defaults are returned unchanged.
func LoadPolicyConfig(paths ...string) (*PolicyConfig, error) {
	if len(paths) == 0 {
		return defaultPolicyConfig(), nil
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	expandedConfigs := make([]string, 0, len(paths))

	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}

		expanded := os.Expand(string(content), expandEnvWithDefaults)
		expandedConfigs = append(expandedConfigs, expanded)

		if i == 0 {
			if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
				return nil, fmt.Errorf("parsing config %q: %w", path, err)
			}
		} else if err := v.MergeConfig(strings.NewReader(expanded)); err != nil {
			return nil, fmt.Errorf("merging config %q: %w", path, err)
		}
	}

	cfg := defaultPolicyConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	restoreAliasKeyCasing(cfg, expandedConfigs)

	return cfg, nil
}

// rawAliasConfig is a minimal struct used to re-parse the alias and
// alternate-replica map keys with their original casing, since Viper
// lowercases all config map keys internally and dataset mount paths are
// case-sensitive on Linux.
type rawAliasConfig struct {
	Aliases           map[string]string   `yaml:"aliases"`
	AlternateReplicas map[string][]string `yaml:"alternate_replicas"`
}

// restoreAliasKeyCasing re-parses the raw (env-expanded) YAML documents to
// recover the original casing of Aliases/AlternateReplicas keys that Viper
// lowercased during Unmarshal. Later documents override earlier ones for
// any key they set, mirroring the merge order already applied by Viper.
func restoreAliasKeyCasing(cfg *PolicyConfig, expandedConfigs []string) {
	aliases := make(map[string]string, len(cfg.Aliases))
	alts := make(map[string][]string, len(cfg.AlternateReplicas))

	for _, raw := range expandedConfigs {
		var parsed rawAliasConfig
		if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil {
			continue
		}

		for k, v := range parsed.Aliases {
			aliases[k] = v
		}

		for k, v := range parsed.AlternateReplicas {
			alts[k] = v
		}
	}

	if len(aliases) > 0 {
		cfg.Aliases = aliases
	}

	if len(alts) > 0 {
		cfg.AlternateReplicas = alts
	}
}

func defaultPolicyConfig() *PolicyConfig {
	return &PolicyConfig{
		Uniqueness:                 "metadata",
		LastSnapMode:               "any",
		WorkerPoolSize:             0, // 0 means "use cpu.Counts(true)"
		AutomountMinIntervalMillis: 200,
	}
}

// FilterDirSet converts the configured filter directory names into a
// FilterDirs. Hidden snapshot directory names are not added here; the
// recursive enumerator checks those separately.
func (c *PolicyConfig) FilterDirSet() FilterDirs {
	return NewFilterDirs(c.FilterDirs)
}

// ApplyPolicy rebuilds inv with c's operator-configured overrides (aliases,
// alternate replicas, common snapshot directory name, filter directories)
// layered on top of the datasets Discover already found. Discover never
// knows about these operator overrides, so this is always the second step
// after Discover in a normal startup.
func ApplyPolicy(inv *Inventory, c *PolicyConfig) *Inventory {
	return New(inv.MapOfDatasets, c.Aliases, c.AlternateReplicas, c.CommonSnapDir, c.FilterDirSet())
}
