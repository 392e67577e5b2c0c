// internal/config/config.go
//
// This package loads the runner's YAML configuration: AWS credentials, the
// run-wide job defaults, the job list itself and the runner tuning knobs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/glue-runner/internal/dispatch"
	"github.com/kingrea/glue-runner/internal/execution/glue"
	"github.com/kingrea/glue-runner/internal/job"
	"github.com/kingrea/glue-runner/internal/monitor"
)

const (
	// DefaultPath is where the runner looks for its config when --config is not given.
	DefaultPath = "config/glue-config.yml"

	// DefaultStatusHost is the loopback interface the status server binds to.
	DefaultStatusHost = "127.0.0.1"
	// DefaultStatusPort is the status server's TCP port.
	DefaultStatusPort = 8766
)

// ErrNotFound is returned when the config file does not exist.
var ErrNotFound = errors.New("config: file not found")

// AWS holds the credentials handed to the Glue client. Empty keys fall back
// to the SDK's default credential chain.
type AWS struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"aws_access_key_id,omitempty"`
	SecretAccessKey string `yaml:"aws_secret_access_key,omitempty"`
	SessionToken    string `yaml:"aws_session_token,omitempty"`
	Profile         string `yaml:"profile,omitempty"`
}

// Runner tunes the dispatcher.
type Runner struct {
	MaxParallel     int  `yaml:"max_parallel"`
	CancelOnFailure bool `yaml:"cancel_on_failure"`
}

// Poll tunes the run monitor's pacing.
type Poll struct {
	Interval    Duration `yaml:"interval"`
	MaxInterval Duration `yaml:"max_interval"`
	Multiplier  float64  `yaml:"multiplier"`
	Jitter      float64  `yaml:"jitter"`
	MaxWait     Duration `yaml:"max_wait"`
}

// Status configures the read-only HTTP status server.
type Status struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Log configures the optional logbook file.
type Log struct {
	File string `yaml:"file"`
}

// File models glue-config.yml.
type File struct {
	AWS      AWS          `yaml:"aws"`
	Defaults job.Defaults `yaml:"defaults"`
	Jobs     Jobs         `yaml:"jobs"`
	Runner   Runner       `yaml:"runner"`
	Poll     Poll         `yaml:"poll"`
	Status   Status       `yaml:"status"`
	Log      Log          `yaml:"log"`
}

// Config is a loaded configuration file.
type Config struct {
	// Path is the file the configuration was read from.
	Path string
	File File
}

// Load reads, defaults, normalizes and validates the config at path.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes a config document. Relative paths inside it resolve against base.
func Parse(data []byte, base string) (*Config, error) {
	var parsed File
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	parsed.applyDefaults()
	parsed.normalize(base)
	if err := parsed.validate(); err != nil {
		return nil, err
	}
	return &Config{File: parsed}, nil
}

// Entries returns the configured jobs in file order.
func (c *Config) Entries() []job.Entry {
	out := make([]job.Entry, len(c.File.Jobs))
	copy(out, c.File.Jobs)
	return out
}

// Defaults returns the run-wide job defaults.
func (c *Config) Defaults() job.Defaults {
	return c.File.Defaults
}

// MonitorPolicy converts the poll section into monitor pacing.
func (c *Config) MonitorPolicy() monitor.Policy {
	p := c.File.Poll
	return monitor.Policy{
		Interval:    p.Interval.Std(),
		MaxInterval: p.MaxInterval.Std(),
		Multiplier:  p.Multiplier,
		Jitter:      p.Jitter,
		MaxWait:     p.MaxWait.Std(),
	}
}

// Credentials converts the aws section for the Glue client.
func (c *Config) Credentials() glue.Credentials {
	a := c.File.AWS
	return glue.Credentials{
		Region:          a.Region,
		Profile:         a.Profile,
		AccessKeyID:     a.AccessKeyID,
		SecretAccessKey: a.SecretAccessKey,
		SessionToken:    a.SessionToken,
	}
}

// ApplySet applies one key=value override to the run defaults. Keys are the
// defaults field names (priority, worker_type, number_of_workers, from_date,
// to_date); any other key that starts with "--" becomes a job argument.
func (c *Config) ApplySet(assignment string) error {
	key, value, ok := strings.Cut(assignment, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if !ok || key == "" {
		return fmt.Errorf("config: override %q must be key=value", assignment)
	}
	d := &c.File.Defaults
	switch key {
	case "priority", "number_of_workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: %s must be an integer: %w", key, err)
		}
		if key == "priority" {
			d.Priority = &n
		} else {
			if n <= 0 || n > job.MaxNumberOfWorkers {
				return fmt.Errorf("config: number_of_workers must be between 1 and %d", job.MaxNumberOfWorkers)
			}
			d.NumberOfWorkers = &n
		}
	case "worker_type":
		d.WorkerType = &value
	case "from_date":
		d.FromDate = &value
	case "to_date":
		d.ToDate = &value
	default:
		if !strings.HasPrefix(key, "--") {
			return fmt.Errorf("config: unknown override key %q", key)
		}
		if d.Arguments == nil {
			d.Arguments = map[string]string{}
		}
		d.Arguments[key] = value
	}
	return nil
}

func (f *File) applyDefaults() {
	if f.Status.Host == "" {
		f.Status.Host = DefaultStatusHost
	}
	if f.Status.Port == 0 {
		f.Status.Port = DefaultStatusPort
	}
	if f.Poll.Interval == 0 {
		f.Poll.Interval = Duration(monitor.DefaultInterval)
	}
	if f.Poll.Multiplier == 0 {
		f.Poll.Multiplier = 1
	}
}

func (f *File) normalize(base string) {
	f.AWS.Region = strings.TrimSpace(f.AWS.Region)
	f.AWS.Profile = strings.TrimSpace(f.AWS.Profile)
	f.Status.Host = strings.TrimSpace(f.Status.Host)
	f.Log.File = resolvePath(base, f.Log.File)
	for i := range f.Jobs {
		f.Jobs[i] = f.Jobs[i].Normalize()
	}
}

func (f *File) validate() error {
	if err := dispatch.Validate(f.Jobs); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	if err := validateOverrides("defaults", f.Defaults); err != nil {
		return err
	}
	for _, entry := range f.Jobs {
		if err := validateOverrides("jobs."+entry.Name, entry.Overrides); err != nil {
			return err
		}
	}
	if f.Runner.MaxParallel < 0 {
		return fmt.Errorf("runner.max_parallel must be >= 0")
	}
	if f.Poll.Interval < 0 || f.Poll.MaxInterval < 0 || f.Poll.MaxWait < 0 {
		return fmt.Errorf("poll durations must not be negative")
	}
	if f.Poll.Multiplier < 1 {
		return fmt.Errorf("poll.multiplier must be >= 1")
	}
	if f.Poll.Jitter < 0 || f.Poll.Jitter > 1 {
		return fmt.Errorf("poll.jitter must be between 0 and 1")
	}
	if f.Status.Port < 0 || f.Status.Port > 65535 {
		return fmt.Errorf("status.port must be between 0 and 65535")
	}
	return nil
}

func validateOverrides(scope string, o job.Overrides) error {
	if o.NumberOfWorkers != nil && (*o.NumberOfWorkers <= 0 || *o.NumberOfWorkers > job.MaxNumberOfWorkers) {
		return fmt.Errorf("%s.number_of_workers must be between 1 and %d", scope, job.MaxNumberOfWorkers)
	}
	if o.WorkerType != nil && strings.TrimSpace(*o.WorkerType) == "" {
		return fmt.Errorf("%s.worker_type must not be empty", scope)
	}
	for key := range o.Arguments {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%s.arguments has an empty key", scope)
		}
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

// Jobs is the ordered jobs mapping. It decodes from a YAML mapping so the
// file order of the keys survives.
type Jobs []job.Entry

// UnmarshalYAML keeps key order and rejects duplicate job names.
func (j *Jobs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*j = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: jobs must be a mapping of job name to settings", node.Line)
	}
	seen := make(map[string]int, len(node.Content)/2)
	entries := make(Jobs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		name := strings.TrimSpace(keyNode.Value)
		if line, ok := seen[name]; ok {
			return fmt.Errorf("line %d: %w: %q (first defined on line %d)", keyNode.Line, dispatch.ErrDuplicateJob, name, line)
		}
		seen[name] = keyNode.Line
		var overrides job.Overrides
		if !(valueNode.Kind == yaml.ScalarNode && valueNode.Tag == "!!null") {
			if err := valueNode.Decode(&overrides); err != nil {
				return fmt.Errorf("jobs.%s: %w", name, err)
			}
		}
		entries = append(entries, job.Entry{Name: name, Overrides: overrides})
	}
	*j = entries
	return nil
}

// Duration decodes Go duration strings ("30s", "2m") or plain seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML accepts "1m30s" or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	value := strings.TrimSpace(node.Value)
	if value == "" {
		*d = 0
		return nil
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		*d = Duration(seconds * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, value)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go notation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
