package config

import (
	"os"
	"path/filepath"

	"github.com/m4xw311/ask/errors"
	"gopkg.in/yaml.v3"
)

// Client families understood by the llm package. A provider entry selects
// one of these for its wire schema; "openai" covers every OpenAI-compatible
// host (OpenAI, Mistral, local inference servers, ...).
const (
	ClientOpenAI    = "openai"
	ClientGemini    = "gemini"
	ClientAnthropic = "anthropic"
	ClientBedrock   = "bedrock"
)

// Provider describes one configured remote chat-completion service. The API
// key itself is never stored here, only the name of the environment variable
// holding it.
type Provider struct {
	Name           string `yaml:"-"`
	Client         string `yaml:"client"`
	Model          string `yaml:"model"`
	Host           string `yaml:"host"`
	Endpoint       string `yaml:"endpoint"`
	APIKeyVariable string `yaml:"api_key_variable"`
}

// ResolveAPIKey reads the secret from the environment variable named by the
// provider entry. Bedrock providers authenticate through the AWS credential
// chain instead and may leave the variable name empty.
func (p *Provider) ResolveAPIKey() (string, error) {
	if p.Client == ClientBedrock {
		return "", nil
	}
	if p.APIKeyVariable == "" {
		return "", errors.Mark(errors.KindConfig,
			errors.New("provider '%s' has no api_key_variable configured", p.Name))
	}
	key := os.Getenv(p.APIKeyVariable)
	if key == "" {
		return "", errors.Mark(errors.KindConfig,
			errors.New("missing API key: set the %s environment variable and try again", p.APIKeyVariable))
	}
	return key, nil
}

// BaseURL builds the full chat endpoint URL for OpenAI-compatible hosts.
func (p *Provider) BaseURL() string {
	return "https://" + p.Host + p.Endpoint
}

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type Config struct {
	Provider     string              `yaml:"provider"`
	Providers    map[string]Provider `yaml:"providers"`
	MaxTokens    int                 `yaml:"max_tokens"`
	Temperature  float64             `yaml:"temperature"`
	VisionDetail string              `yaml:"vision_detail"`

	// Session persistence. TranscriptName prefixes every session file so
	// clear-all can find them; SessionDir defaults to the OS temp dir.
	TranscriptName string `yaml:"transcript_name"`
	SessionDir     string `yaml:"session_dir"`

	Editor                      string `yaml:"editor"`
	ClipboardCommandXorg        string `yaml:"clipboard_command_xorg"`
	ClipboardCommandWayland     string `yaml:"clipboard_command_wayland"`
	ClipboardCommandUnsupported string `yaml:"clipboard_command_unsupported"`

	SystemPrompt string `yaml:"system_prompt"`

	// Agent mode tunables. MaxIterations of 0 keeps the loop unbounded,
	// which is the default behavior: the loop runs until the model stops
	// requesting tools or the process is killed.
	MaxIterations      int `yaml:"max_iterations"`
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`

	AllowedCommands  []string         `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
	MCPServers       []MCPServer      `yaml:"mcp_servers"`
}

const defaultSystemPrompt = "You are ChatConcise, a very advanced LLM designed for experienced users. " +
	"As ChatConcise you oblige to adhere to the following directives UNLESS overridden by the user:\n" +
	"Be concise, proactive, helpful and efficient. Do not say anything more than what needed, " +
	"but also, DON'T BE LAZY. If the user is asking for software, provide ONLY the code."

// Default returns the built-in configuration, used when no config file
// exists or one fails to parse.
func Default() *Config {
	return &Config{
		Provider: "oai",
		Providers: map[string]Provider{
			"oai": {
				Client:         ClientOpenAI,
				Model:          "gpt-4o-mini",
				Host:           "api.openai.com",
				Endpoint:       "/v1",
				APIKeyVariable: "OPENAI_API_KEY",
			},
			"gemini": {
				Client:         ClientGemini,
				Model:          "gemini-1.5-flash-latest",
				Host:           "generativelanguage.googleapis.com",
				APIKeyVariable: "GEMINI_API_KEY",
			},
			"anthropic": {
				Client:         ClientAnthropic,
				Model:          "claude-sonnet-4-20250514",
				Host:           "api.anthropic.com",
				APIKeyVariable: "ANTHROPIC_API_KEY",
			},
		},
		MaxTokens:                   2048,
		Temperature:                 0.6,
		VisionDetail:                "high",
		TranscriptName:              "ask_transcript-",
		Editor:                      "more",
		ClipboardCommandXorg:        "xclip -selection clipboard -t image/png -o",
		ClipboardCommandWayland:     "wl-paste",
		ClipboardCommandUnsupported: "UNSUPPORTED",
		SystemPrompt:                defaultSystemPrompt,
		ToolTimeoutSeconds:          30,
	}
}

// Load reads configuration from the user's config directory and the current
// working directory, with the latter taking precedence. Missing files are
// not an error; the built-in defaults apply.
func Load() (*Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".config", "ask", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Mark(errors.KindConfig, errors.Wrapf(err, "error loading user config"))
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Mark(errors.KindConfig, errors.Wrapf(err, "could not get working directory"))
	}
	projectConfigPath := filepath.Join(wd, ".ask", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Mark(errors.KindConfig, errors.Wrapf(err, "error loading project config"))
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, so project-level
	// config replaces user-level values field by field.
	return yaml.Unmarshal(data, cfg)
}

// ActiveProvider resolves the provider selected by the config, or by the
// override name when non-empty.
func (c *Config) ActiveProvider(override string) (*Provider, error) {
	name := c.Provider
	if override != "" {
		name = override
	}
	p, ok := c.Providers[name]
	if !ok {
		return nil, errors.Mark(errors.KindConfig, errors.New("invalid provider: %s", name))
	}
	p.Name = name
	if p.Client == "" {
		p.Client = ClientOpenAI
	}
	return &p, nil
}
