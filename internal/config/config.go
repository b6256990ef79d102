package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models stagehub.yml.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
	Documents struct {
		Dir string `yaml:"dir"`
	} `yaml:"documents"`
	Webhooks []Webhook `yaml:"webhooks"`
	Seed     Seed      `yaml:"seed"`
}

type Webhook struct {
	URL    string   `yaml:"url"`
	Events []string `yaml:"events"`
}

// Seed describes the reference catalog loaded at startup: departments,
// their domains, and the initial people directory.
type Seed struct {
	Departments []SeedDepartment `yaml:"departments"`
	People      []SeedPerson     `yaml:"people"`
}

type SeedDepartment struct {
	Name    string   `yaml:"name"`
	Domains []string `yaml:"domains"`
}

type SeedPerson struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

var validRoles = map[string]bool{
	"admin":            true,
	"direction_member": true,
	"department_head":  true,
	"supervisor":       true,
	"intern":           true,
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8750"
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		c.Auth.TokenTTLMinutes = 60
	}
	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	seen := map[string]bool{}
	for _, dept := range c.Seed.Departments {
		if dept.Name == "" {
			return fmt.Errorf("config.seed.departments contains empty name")
		}
		if seen[dept.Name] {
			return fmt.Errorf("duplicate department %s", dept.Name)
		}
		seen[dept.Name] = true
		for _, dom := range dept.Domains {
			if dom == "" {
				return fmt.Errorf("department %s has empty domain name", dept.Name)
			}
		}
	}
	for _, p := range c.Seed.People {
		if p.Name == "" {
			return fmt.Errorf("config.seed.people contains empty name")
		}
		if !validRoles[p.Role] {
			return fmt.Errorf("person %s has unknown role %q", p.Name, p.Role)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "stagehub.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate one with shub init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	cfg, _ := FromYAML([]byte(defaultTemplate))
	return cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8750

auth:
  jwt_secret: ""
  token_ttl_minutes: 60

documents:
  dir: ""

seed:
  departments:
    - name: Information Systems
      domains: [Software Engineering, Data Engineering, Networks]
    - name: Finance
      domains: [Accounting, Audit]
  people:
    - name: Root Admin
      role: admin
`
