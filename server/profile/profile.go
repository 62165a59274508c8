// Package profile holds the runtime configuration resolved at startup from
// flags, environment variables and an optional .env file.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the startup configuration of the assistant. Invalid values are
// fatal at startup; after Validate passes, configuration errors can no
// longer surface mid-turn.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the HTTP server.
	Addr string
	// Port is the binding port for the HTTP server.
	Port int
	// Data is the directory for local state (sqlite file, vector store).
	Data string
	// Driver is the conversation store backend: sqlite, mysql or postgres.
	// Empty keeps history in process memory only.
	Driver string
	// DSN is the database connection string for the chosen driver.
	DSN string

	// LLMProvider selects the model backend: openai, googleai or ollama.
	LLMProvider string
	// LLMModel is the model identifier passed to the provider.
	LLMModel string
	// LLMAPIKey authenticates against the provider. Optional for ollama.
	LLMAPIKey string
	// LLMBaseURL points openai-compatible providers at a custom endpoint.
	LLMBaseURL string

	// EmbeddingModel is the embedding model for the vector store.
	EmbeddingModel string
	// EmbeddingBaseURL is the openai-compatible embeddings endpoint.
	EmbeddingBaseURL string
	// EmbeddingAPIKey authenticates embedding calls. Falls back to LLMAPIKey.
	EmbeddingAPIKey string

	// ToolTransport is how retrieval tools are reached: "local" runs them
	// in-process, "mcp" spawns the hybrid-search server over stdio.
	ToolTransport string
	// MCPCommand is the command used to spawn the tool server in mcp mode.
	MCPCommand string

	// MaxRewrites caps query reformulations per turn.
	MaxRewrites int
	// AnswerMaxChars bounds cleaned answers.
	AnswerMaxChars int
	// RewriteMaxChars bounds cleaned rewrites.
	RewriteMaxChars int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

var validDrivers = []string{"", "sqlite", "mysql", "postgres"}
var validProviders = []string{"openai", "googleai", "ollama"}
var validTransports = []string{"local", "mcp"}

// Validate checks the profile and fills derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if !slices.Contains(validDrivers, p.Driver) {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Driver != "" && p.Driver != "sqlite" && p.DSN == "" {
		return errors.Errorf("dsn is required for driver %q", p.Driver)
	}
	if !slices.Contains(validProviders, p.LLMProvider) {
		return errors.Errorf("unsupported llm provider %q", p.LLMProvider)
	}
	if !slices.Contains(validTransports, p.ToolTransport) {
		return errors.Errorf("unsupported tool transport %q", p.ToolTransport)
	}
	if p.ToolTransport == "mcp" && p.MCPCommand == "" {
		return errors.New("mcp tool transport requires a server command")
	}
	if p.MaxRewrites < 0 {
		return errors.Errorf("max rewrites must be >= 0, got %d", p.MaxRewrites)
	}
	if p.AnswerMaxChars <= 0 || p.RewriteMaxChars <= 0 {
		return errors.New("character budgets must be positive")
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(p.Data, "prodassist_"+p.Mode+".db")
	}
	if p.EmbeddingAPIKey == "" {
		p.EmbeddingAPIKey = p.LLMAPIKey
	}
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	dataDir = strings.TrimRight(dataDir, "/")
	if dataDir == "" {
		dataDir = "."
	}
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve data dir %s", dataDir)
	}
	if err := os.MkdirAll(absDir, 0750); err != nil {
		return "", errors.Wrapf(err, "unable to create data dir %s", absDir)
	}
	return absDir, nil
}

// FromViper materializes a profile from the bound viper instance and
// validates it.
func FromViper(v *viper.Viper) (*Profile, error) {
	p := &Profile{
		Mode:             v.GetString("mode"),
		Addr:             v.GetString("addr"),
		Port:             v.GetInt("port"),
		Data:             v.GetString("data"),
		Driver:           v.GetString("driver"),
		DSN:              v.GetString("dsn"),
		LLMProvider:      v.GetString("llm.provider"),
		LLMModel:         v.GetString("llm.model"),
		LLMAPIKey:        v.GetString("llm.api-key"),
		LLMBaseURL:       v.GetString("llm.base-url"),
		EmbeddingModel:   v.GetString("embedding.model"),
		EmbeddingBaseURL: v.GetString("embedding.base-url"),
		EmbeddingAPIKey:  v.GetString("embedding.api-key"),
		ToolTransport:    v.GetString("tools.transport"),
		MCPCommand:       v.GetString("tools.mcp-command"),
		MaxRewrites:      v.GetInt("workflow.max-rewrites"),
		AnswerMaxChars:   v.GetInt("workflow.answer-max-chars"),
		RewriteMaxChars:  v.GetInt("workflow.rewrite-max-chars"),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// SetDefaults installs the default values FromViper reads back.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8230)
	v.SetDefault("data", "")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("dsn", "")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base-url", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.base-url", "")
	v.SetDefault("tools.transport", "local")
	v.SetDefault("tools.mcp-command", "")
	v.SetDefault("workflow.max-rewrites", 2)
	v.SetDefault("workflow.answer-max-chars", 250)
	v.SetDefault("workflow.rewrite-max-chars", 200)
}

func (p *Profile) String() string {
	return fmt.Sprintf("mode=%s addr=%s port=%d driver=%s provider=%s transport=%s",
		p.Mode, p.Addr, p.Port, p.Driver, p.LLMProvider, p.ToolTransport)
}
