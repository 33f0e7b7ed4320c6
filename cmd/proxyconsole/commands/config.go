package commands

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/proxy-console/internal/app"
)

const (
	// envPrefix marks configuration variables: PROXYCONSOLE_BACKEND__BASE_URL → backend.base_url
	envPrefix = "PROXYCONSOLE_"
	// configPathEnv names the config file when --config is not given.
	configPathEnv = envPrefix + "CONFIG"
)

// nonConfigEnv share the prefix but carry secrets or the config path, not settings.
var nonConfigEnv = map[string]bool{
	configPathEnv:                      true,
	passwordEnv:                        true,
	app.DefaultConfigAuthEnvAccessKey:  true,
	app.DefaultConfigAuthEnvRefreshKey: true,
}

// topLevelConfigFlags are config flags without a section; all other config
// flags are nested with "--" (e.g. --backend--timeout).
var topLevelConfigFlags = map[string]bool{
	"log-level":  true,
	"log-format": true,
}

// configSource is one configuration layer. Later layers override earlier ones.
type configSource struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// configSources lists the layers in precedence order: file, environment, flags.
// Defaults are applied after unmarshaling.
func configSources(configPath string, cmd *cli.Command, environFunc func() []string) []configSource {
	var sources []configSource

	if configPath != "" {
		sources = append(sources, configSource{"config file", file.Provider(configPath), toml.Parser()})
	}

	sources = append(sources, configSource{"environment variables", env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environFunc,
	}), nil})

	if cmd != nil {
		sources = append(sources, configSource{"CLI flags", confmap.Provider(flagValues(cmd), "."), nil})
	}

	return sources
}

// loadConfig merges all sources into an app.Config, then applies defaults and validates.
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	k := koanf.New(".")

	for _, src := range configSources(configPath, cmd, environFunc) {
		if err := k.Load(src.provider, src.parser); err != nil {
			return nil, fmt.Errorf("loading %s: %w", src.name, err)
		}
	}

	cfg := &app.Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps a variable to its config key; an empty key drops the variable.
func envKey(name, value string) (string, any) {
	if nonConfigEnv[name] {
		return "", nil
	}
	key := strings.TrimPrefix(name, envPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", ".")), value
}

// flagKey maps a config flag name to its key; ok is false for command options
// such as --page or --watch.
func flagKey(name string) (key string, ok bool) {
	if !topLevelConfigFlags[name] && !strings.Contains(name, "--") {
		return "", false
	}
	key = strings.ReplaceAll(name, "--", ".")
	return strings.ReplaceAll(key, "-", "_"), true
}

// flagValues collects explicitly set config flags, parent command flags included.
// Unset flags are skipped so their defaults do not override file or environment.
func flagValues(cmd *cli.Command) map[string]any {
	values := make(map[string]any)
	for _, name := range cmd.FlagNames() {
		key, ok := flagKey(name)
		if !ok || !cmd.IsSet(name) {
			continue
		}
		if value := cmd.Value(name); value != nil {
			values[key] = value
		}
	}
	return values
}
