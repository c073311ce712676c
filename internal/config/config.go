package config

import (
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MCP client transport types.
const (
	ClientTypeSSE            = "sse"
	ClientTypeStreamableHTTP = "streamable_http"
	ClientTypeStdio          = "stdio"
)

// Config holds the application configuration
type Config struct {
	LLM        LLMConfig         `mapstructure:"llm"`
	Server     ServerConfig      `mapstructure:"server"`
	History    HistoryConfig     `mapstructure:"history"`
	Log        LogConfig         `mapstructure:"log"`
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider          string  `mapstructure:"provider"`
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	SystemPrompt      string  `mapstructure:"system_prompt"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
}

// ServerConfig holds the optional HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// HistoryConfig holds the conversation history configuration
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MCPServerConfig describes one MCP server the agent should connect to.
// Stdio servers are spawned as child processes; sse and streamable_http
// servers are reached over the network.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    string            `mapstructure:"type"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// Load loads the configuration from config.yaml, or from the file named by
// the CONFIG_PATH environment variable when set.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := restoreServerMaps(viper.ConfigFileUsed(), &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// restoreServerMaps re-reads the env and headers maps of every mcp_servers
// entry from the raw YAML. Viper lowercases map keys during unmarshal, which
// destroys environment variable names like GMAIL_CREDENTIALS_FILE.
func restoreServerMaps(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc struct {
		MCPServers []struct {
			Env     map[string]string `yaml:"env"`
			Headers map[string]string `yaml:"headers"`
		} `yaml:"mcp_servers"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for i := range cfg.MCPServers {
		if i >= len(doc.MCPServers) {
			break
		}
		cfg.MCPServers[i].Env = doc.MCPServers[i].Env
		cfg.MCPServers[i].Headers = doc.MCPServers[i].Headers
	}
	return nil
}
