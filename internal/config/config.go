// Package config loads the server configuration from an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultAddr = "127.0.0.1:8000"

// Environment variables read by Load.
const (
	EnvAPIURL     = "N8N_API_URL"
	EnvAPIKey     = "N8N_API_KEY"
	EnvBaseURL    = "N8N_BASE_URL"
	EnvProjectID  = "N8N_PROJECT_ID"
	EnvWorkflowID = "N8N_WORKFLOW_ID"
	EnvFlowIDs    = "N8N_FLOW_IDS"
	EnvWebhooks   = "N8N_WEBHOOKS"
	EnvAddr       = "FLOWADMIN_ADDR"
	EnvTimezone   = "FLOWADMIN_TZ"
)

type Config struct {
	Addr     string `yaml:"addr" validate:"required,hostname_port"`
	Timezone string `yaml:"timezone" validate:"omitempty,timezone"`
	N8N      N8N    `yaml:"n8n"`

	// Mock serves flows from a local state file instead of n8n.
	Mock      bool   `yaml:"mock"`
	MockState string `yaml:"mock_state"`
}

type N8N struct {
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,http_url"`
	ProjectID string `yaml:"project_id"`
	// WorkflowID is a single flow, used when FlowIDs is empty.
	WorkflowID string            `yaml:"workflow_id"`
	FlowIDs    []string          `yaml:"flow_ids" validate:"dive,required"`
	Webhooks   map[string]string `yaml:"webhooks" validate:"dive,keys,required,endkeys,required,url"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateSource, Config{})
	return v
}

// validateSource requires n8n credentials unless flows come from the mock.
func validateSource(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Mock {
		return
	}
	if strings.TrimSpace(c.N8N.APIURL) == "" {
		sl.ReportError(c.N8N.APIURL, "n8n.api_url", "APIURL", "required", "")
	} else if err := sl.Validator().Var(c.N8N.APIURL, "http_url"); err != nil {
		sl.ReportError(c.N8N.APIURL, "n8n.api_url", "APIURL", "http_url", "")
	}
	if strings.TrimSpace(c.N8N.APIKey) == "" {
		sl.ReportError(c.N8N.APIKey, "n8n.api_key", "APIKey", "required", "")
	}
	if len(c.N8N.FlowIDs) == 0 {
		sl.ReportError(c.N8N.FlowIDs, "n8n.flow_ids", "FlowIDs", "required", "")
	}
}

// Default is the configuration before any file or environment is applied.
func Default() Config {
	return Config{Addr: DefaultAddr}
}

// Load reads .env (if present), then the YAML file at path (skipped when
// path is empty), then environment overrides. It does not validate.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.Addr, EnvAddr)
	set(&cfg.Timezone, EnvTimezone)
	set(&cfg.N8N.APIURL, EnvAPIURL)
	set(&cfg.N8N.APIKey, EnvAPIKey)
	set(&cfg.N8N.BaseURL, EnvBaseURL)
	set(&cfg.N8N.ProjectID, EnvProjectID)
	set(&cfg.N8N.WorkflowID, EnvWorkflowID)

	if v := strings.TrimSpace(os.Getenv(EnvFlowIDs)); v != "" {
		cfg.N8N.FlowIDs = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebhooks)); v != "" {
		var hooks map[string]string
		if err := json.Unmarshal([]byte(v), &hooks); err != nil {
			return fmt.Errorf("%s must be a JSON object of workflow id to url: %w", EnvWebhooks, err)
		}
		cfg.N8N.Webhooks = hooks
	}
	return nil
}

func (c *Config) normalize() {
	c.N8N.APIURL = strings.TrimRight(c.N8N.APIURL, "/")
	c.N8N.BaseURL = strings.TrimRight(c.N8N.BaseURL, "/")
	ids := make([]string, 0, len(c.N8N.FlowIDs))
	for _, id := range c.N8N.FlowIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 && strings.TrimSpace(c.N8N.WorkflowID) != "" {
		ids = []string{strings.TrimSpace(c.N8N.WorkflowID)}
	}
	c.N8N.FlowIDs = ids
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return ns + " is required"
	case "url", "http_url":
		return ns + " must be a URL"
	case "hostname_port":
		return ns + " must be host:port"
	case "timezone":
		return ns + " is not a known time zone"
	}
	return fmt.Sprintf("%s failed %s", ns, fe.Tag())
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
