package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/vrischmann/envconfig"
	"gopkg.in/yaml.v3"
)

// NetsavParser implements the Parser interface for YAML configuration files.
type NetsavParser struct{}

// DefaultGlobalOptions returns baseline settings used before config overrides.
func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		LogLevel:  "INFO",
		LogTarget: "STDOUT",
		Server: ServerOptions{
			Address:   "0.0.0.0",
			LogClient: true,
			MaxConns:  64,
		},
		MetricsMode: MetricsModePerTarget,
	}
}

type fileConfig struct {
	Main struct {
		LogLevel  string `yaml:"log_level"`
		LogTarget string `yaml:"log_target"`
		IgnoreOwn bool   `yaml:"ignore_own"`
		User      string `yaml:"user"`
		Group     string `yaml:"group"`
		PIDFile   string `yaml:"pid_file"`
	} `yaml:"main"`
	Server struct {
		Address   string `yaml:"address"`
		Port      int    `yaml:"port"`
		LogClient *bool  `yaml:"log_client"`
		MaxConns  int    `yaml:"max_conns"`
	} `yaml:"server"`
	Metrics struct {
		Listen string `yaml:"listen"`
		Mode   string `yaml:"mode"`
	} `yaml:"metrics"`
	UI struct {
		Disable bool `yaml:"disable"`
	} `yaml:"ui"`
	Defaults targetFields `yaml:"defaults"`
	Targets  yaml.Node    `yaml:"targets"`
	Triggers yaml.Node    `yaml:"triggers"`
}

type targetFields struct {
	Address     *string `yaml:"address"`
	Port        *int    `yaml:"port"`
	Interval    *int    `yaml:"interval"`
	MinRetry    *int    `yaml:"min_retry"`
	MaxRetry    *int    `yaml:"max_retry"`
	TCPTimeout  *int    `yaml:"tcp_timeout"`
	QueryMethod *string `yaml:"query_method"`
	Reference   *bool   `yaml:"reference"`
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	LogLevel      string `envconfig:"NETSAV_LOG_LEVEL,optional"`
	LogTarget     string `envconfig:"NETSAV_LOG_TARGET,optional"`
	MetricsListen string `envconfig:"NETSAV_METRICS_LISTEN,optional"`
	ServerPort    int    `envconfig:"NETSAV_SERVER_PORT,optional"`
}

// LoadConfig parses a netsav YAML file with environment and CLI overrides applied.
func (p NetsavParser) LoadConfig(path string, overrides CLIOverrides) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return p.Parse(data, overrides)
}

// Parse decodes configuration content. Targets are returned unvalidated so the
// caller can drop invalid ones individually.
func (p NetsavParser) Parse(data []byte, overrides CLIOverrides) (*Config, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{Global: DefaultGlobalOptions()}
	if err := applyFile(&cfg.Global, &raw); err != nil {
		return nil, err
	}

	targets, err := parseTargets(&raw.Targets, raw.Defaults)
	if err != nil {
		return nil, err
	}
	cfg.Targets = targets

	triggers, err := parseTriggers(&raw.Triggers)
	if err != nil {
		return nil, err
	}
	cfg.Triggers = triggers

	if err := applyEnv(&cfg.Global); err != nil {
		return nil, err
	}
	applyCLIOverrides(&cfg.Global, overrides)
	return cfg, nil
}

func applyFile(global *GlobalOptions, raw *fileConfig) error {
	if raw.Main.LogLevel != "" {
		level := strings.ToUpper(raw.Main.LogLevel)
		if !isLogLevel(level) {
			return fmt.Errorf("invalid main.log_level: %q", raw.Main.LogLevel)
		}
		global.LogLevel = level
	}
	if raw.Main.LogTarget != "" {
		global.LogTarget = raw.Main.LogTarget
	}
	global.IgnoreOwn = raw.Main.IgnoreOwn
	global.User = raw.Main.User
	global.Group = raw.Main.Group
	global.PIDFile = raw.Main.PIDFile

	if raw.Server.Address != "" {
		global.Server.Address = raw.Server.Address
	}
	if raw.Server.Port < 0 || raw.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", raw.Server.Port)
	}
	global.Server.Port = raw.Server.Port
	if raw.Server.LogClient != nil {
		global.Server.LogClient = *raw.Server.LogClient
	}
	if raw.Server.MaxConns > 0 {
		global.Server.MaxConns = raw.Server.MaxConns
	}

	if raw.Metrics.Mode != "" {
		mode, err := ParseMetricsMode(raw.Metrics.Mode)
		if err != nil {
			return err
		}
		global.MetricsMode = mode
	}
	global.MetricsListen = normalizeListen(raw.Metrics.Listen)
	global.UIDisable = raw.UI.Disable
	return nil
}

func parseTargets(node *yaml.Node, defaults targetFields) ([]TargetConfig, error) {
	if isAbsent(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("targets must be a mapping of name to target (line %d)", node.Line)
	}

	targets := make([]TargetConfig, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if seen[name] {
			return nil, fmt.Errorf("duplicate target %q (line %d)", name, node.Content[i].Line)
		}
		seen[name] = true

		// a malformed target is kept so the supervisor can log and drop it alone
		var fields targetFields
		if err := node.Content[i+1].Decode(&fields); err != nil {
			targets = append(targets, TargetConfig{Name: name, decodeErr: err})
			continue
		}
		targets = append(targets, buildTarget(name, fields, defaults))
	}
	return targets, nil
}

// isAbsent reports whether a section is missing or left empty (`targets:`).
func isAbsent(node *yaml.Node) bool {
	return node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

func buildTarget(name string, fields, defaults targetFields) TargetConfig {
	target := TargetConfig{
		Name:        name,
		Interval:    DefaultInterval,
		MinRetry:    DefaultMinRetry,
		MaxRetry:    DefaultMaxRetry,
		TCPTimeout:  DefaultTCPTimeout,
		QueryMethod: DefaultQueryMethod,
	}
	for _, src := range []targetFields{defaults, fields} {
		if src.Address != nil {
			target.Address = *src.Address
		}
		if src.Port != nil {
			target.Port = *src.Port
		}
		if src.Interval != nil {
			target.Interval = *src.Interval
		}
		if src.MinRetry != nil {
			target.MinRetry = *src.MinRetry
		}
		if src.MaxRetry != nil {
			target.MaxRetry = *src.MaxRetry
		}
		if src.TCPTimeout != nil {
			target.TCPTimeout = *src.TCPTimeout
		}
		if src.QueryMethod != nil {
			target.QueryMethod = strings.ToUpper(*src.QueryMethod)
		}
		if src.Reference != nil {
			target.Reference = *src.Reference
		}
	}
	return target
}

func parseTriggers(node *yaml.Node) ([]TriggerConfig, error) {
	if isAbsent(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("triggers must be a mapping of plugin name to parameters (line %d)", node.Line)
	}

	triggers := make([]TriggerConfig, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := strings.ToLower(node.Content[i].Value)
		values := map[string]interface{}{}
		if err := node.Content[i+1].Decode(&values); err != nil {
			return nil, fmt.Errorf("trigger %q: %w", name, err)
		}
		params := make(map[string]string, len(values)+1)
		for key, val := range values {
			if val == nil {
				params[key] = ""
				continue
			}
			params[key] = fmt.Sprint(val)
		}
		params["name"] = name
		triggers = append(triggers, TriggerConfig{Name: name, Params: params})
	}
	return triggers, nil
}

func applyEnv(global *GlobalOptions) error {
	var env envOverrides
	if err := envconfig.Init(&env); err != nil {
		return fmt.Errorf("read environment overrides: %w", err)
	}
	if env.LogLevel != "" {
		level := strings.ToUpper(env.LogLevel)
		if !isLogLevel(level) {
			return fmt.Errorf("invalid NETSAV_LOG_LEVEL: %q", env.LogLevel)
		}
		global.LogLevel = level
	}
	if env.LogTarget != "" {
		global.LogTarget = env.LogTarget
	}
	if env.MetricsListen != "" {
		global.MetricsListen = normalizeListen(env.MetricsListen)
	}
	if env.ServerPort != 0 {
		global.Server.Port = env.ServerPort
	}
	return nil
}

func applyCLIOverrides(global *GlobalOptions, overrides CLIOverrides) {
	if overrides.LogLevel != nil {
		global.LogLevel = strings.ToUpper(*overrides.LogLevel)
	}
	if overrides.PIDFile != nil {
		global.PIDFile = *overrides.PIDFile
	}
	if overrides.ServerPort != nil {
		global.Server.Port = *overrides.ServerPort
	}
	if overrides.MetricsMode != nil {
		global.MetricsMode = *overrides.MetricsMode
	}
	if overrides.MetricsListen != nil {
		global.MetricsListen = normalizeListen(*overrides.MetricsListen)
	}
	if overrides.UIDisable != nil {
		global.UIDisable = *overrides.UIDisable
	}
}

// ParseMetricsMode validates a metrics mode string.
func ParseMetricsMode(value string) (MetricsMode, error) {
	switch MetricsMode(value) {
	case MetricsModePerTarget, MetricsModeAggregated, MetricsModeBoth:
		return MetricsMode(value), nil
	default:
		return "", fmt.Errorf("invalid metrics.mode: %q", value)
	}
}

func isLogLevel(level string) bool {
	switch level {
	case "ERROR", "WARN", "INFO", "DEBUG":
		return true
	}
	return false
}

func normalizeListen(value string) string {
	if isDigits(value) {
		return ":" + value
	}
	return value
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
