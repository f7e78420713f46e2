package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-core-fx/config"
)

const (
	envConfigPath  = "CONFIG_PATH"
	envGitLabURL   = "GITLAB_URL"
	envGitLabToken = "GITLAB_TOKEN"

	defaultInstanceName = "default"
)

// Source tells New where to read configuration from. It is filled from
// command line flags.
type Source struct {
	Path        string
	Instance    string
	MetricsFile string
}

type gitlabInstance struct {
	URL                string        `koanf:"url"`
	Token              string        `koanf:"token"`
	Auth               string        `koanf:"auth"`
	Timeout            time.Duration `koanf:"timeout"`
	RetryMax           *int          `koanf:"retry_max"`
	CAFile             string        `koanf:"ca_file"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify"`
}

type gitlabConfig struct {
	DefaultInstance  string                    `koanf:"default_instance"`
	Instances        map[string]gitlabInstance `koanf:"instances"`
	ForkTimeout      time.Duration             `koanf:"fork_timeout"`
	ForkPollInterval time.Duration             `koanf:"fork_poll_interval"`
	CommitsPageSize  int                       `koanf:"commits_page_size"`
	CommitsMaxPages  int                       `koanf:"commits_max_pages"`
}

type gitSSHAuthConfig struct {
	PrivateKeyFile string `koanf:"private_key_file"`
	Passphrase     string `koanf:"passphrase"`
}

type gitHTTPSAuthConfig struct {
	Username string `koanf:"username"`
}

type gitAuthConfig struct {
	SSH   gitSSHAuthConfig   `koanf:"ssh"`
	HTTPS gitHTTPSAuthConfig `koanf:"https"`
}

type gitConfig struct {
	Protocol string        `koanf:"protocol"`
	Timeout  time.Duration `koanf:"timeout"`
	Auth     gitAuthConfig `koanf:"auth"`
}

type reportConfig struct {
	MetricsFile string `koanf:"metrics_file"`
}

type Config struct {
	GitLab gitlabConfig `koanf:"gitlab"`
	Git    gitConfig    `koanf:"git"`
	Report reportConfig `koanf:"report"`

	// Instance is the GitLab instance selected for this run.
	Instance     gitlabInstance `koanf:"-"`
	InstanceName string         `koanf:"-"`
}

func Default() Config {
	//nolint:exhaustruct,mnd //default values
	return Config{
		GitLab: gitlabConfig{
			Instances:        map[string]gitlabInstance{},
			ForkTimeout:      5 * time.Minute,
			ForkPollInterval: 2 * time.Second,
			CommitsPageSize:  100,
			CommitsMaxPages:  50,
		},

		Git: gitConfig{
			Protocol: "https",
			Timeout:  5 * time.Minute,
		},
	}
}

func defaultInstance() gitlabInstance {
	//nolint:exhaustruct,mnd //default values
	return gitlabInstance{
		URL:     "https://gitlab.com",
		Auth:    "private_token",
		Timeout: 30 * time.Second,
	}
}

func New(src Source) (Config, error) {
	cfg := Default()

	options := []config.Option{}
	yamlPath := src.Path
	if yamlPath == "" {
		yamlPath = os.Getenv(envConfigPath)
	}
	if yamlPath != "" {
		options = append(options, config.WithLocalYAML(yamlPath))
	}

	if err := config.Load(&cfg, options...); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if err := cfg.selectInstance(src.Instance); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(envGitLabURL); v != "" {
		cfg.Instance.URL = v
	}
	if v := os.Getenv(envGitLabToken); v != "" {
		cfg.Instance.Token = v
	}

	if src.MetricsFile != "" {
		cfg.Report.MetricsFile = src.MetricsFile
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.GitLab.ForkTimeout <= 0:
		return fmt.Errorf("%w: gitlab.fork_timeout must be positive, got %s", ErrInvalidConfig, c.GitLab.ForkTimeout)
	case c.GitLab.ForkPollInterval <= 0:
		return fmt.Errorf("%w: gitlab.fork_poll_interval must be positive, got %s", ErrInvalidConfig, c.GitLab.ForkPollInterval)
	case c.GitLab.CommitsPageSize <= 0:
		return fmt.Errorf("%w: gitlab.commits_page_size must be positive, got %d", ErrInvalidConfig, c.GitLab.CommitsPageSize)
	}

	return nil
}

// selectInstance resolves the instance by explicit name, then the configured
// default, then the only configured instance, then gitlab.com.
func (c *Config) selectInstance(name string) error {
	if name == "" {
		name = c.GitLab.DefaultInstance
	}
	if name == "" && len(c.GitLab.Instances) == 1 {
		for only := range c.GitLab.Instances {
			name = only
		}
	}

	base := defaultInstance()
	if name == "" {
		c.Instance = base
		c.InstanceName = defaultInstanceName
		return nil
	}

	instance, ok := c.GitLab.Instances[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInstance, name)
	}

	if instance.URL == "" {
		instance.URL = base.URL
	}
	if instance.Auth == "" {
		instance.Auth = base.Auth
	}
	if instance.Timeout == 0 {
		instance.Timeout = base.Timeout
	}

	c.Instance = instance
	c.InstanceName = name

	return nil
}
