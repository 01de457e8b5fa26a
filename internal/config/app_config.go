package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/temirov/docsmith/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds configuration defaults that flags may override.
type ApplicationConfiguration struct {
	Generation GenerationConfiguration `mapstructure:"generation"`
	Provider   ProviderConfiguration   `mapstructure:"provider"`
	Paths      PathConfiguration       `mapstructure:"paths"`
}

// GenerationConfiguration controls the model request and what happens to the result.
type GenerationConfiguration struct {
	Type           string `mapstructure:"type"`
	Model          string `mapstructure:"model"`
	Output         string `mapstructure:"output"`
	Tokens         *bool  `mapstructure:"tokens"`
	TokenizerModel string `mapstructure:"tokenizer_model"`
	Clipboard      *bool  `mapstructure:"clipboard"`
	Progress       string `mapstructure:"progress"`
}

// ProviderConfiguration selects and configures the inference backend.
type ProviderConfiguration struct {
	Kind              string        `mapstructure:"kind"`
	Binary            string        `mapstructure:"binary"`
	Host              string        `mapstructure:"host"`
	EstimatedDuration time.Duration `mapstructure:"estimated_duration"`
}

// PathConfiguration configures inclusion and exclusion rules for traversal.
type PathConfiguration struct {
	Exclude       []string `mapstructure:"exclude"`
	Extensions    []string `mapstructure:"extensions"`
	AllFiles      *bool    `mapstructure:"all_files"`
	Strict        *bool    `mapstructure:"strict"`
	MaxFileBytes  *int64   `mapstructure:"max_file_bytes"`
	UseGitignore  *bool    `mapstructure:"use_gitignore"`
	UseIgnoreFile *bool    `mapstructure:"use_ignore"`
	IncludeGit    *bool    `mapstructure:"include_git"`
}

// LoadApplicationConfiguration loads configuration from the global file and then the local one,
// with local values taking precedence.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Paths.Exclude = utils.DeduplicatePatterns(merged.Paths.Exclude)
	merged.Paths.Extensions = utils.DeduplicatePatterns(merged.Paths.Extensions)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

// loadConfigurationFromPath decodes one YAML file. A missing file is an error only when required.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Generation = result.Generation.merge(override.Generation)
	result.Provider = result.Provider.merge(override.Provider)
	result.Paths = result.Paths.merge(override.Paths)
	return result
}

func (config GenerationConfiguration) merge(override GenerationConfiguration) GenerationConfiguration {
	result := config
	if override.Type != "" {
		result.Type = override.Type
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.Output != "" {
		result.Output = override.Output
	}
	if override.Tokens != nil {
		result.Tokens = cloneBool(override.Tokens)
	}
	if override.TokenizerModel != "" {
		result.TokenizerModel = override.TokenizerModel
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	if override.Progress != "" {
		result.Progress = override.Progress
	}
	return result
}

func (config ProviderConfiguration) merge(override ProviderConfiguration) ProviderConfiguration {
	result := config
	if override.Kind != "" {
		result.Kind = override.Kind
	}
	if override.Binary != "" {
		result.Binary = override.Binary
	}
	if override.Host != "" {
		result.Host = override.Host
	}
	if override.EstimatedDuration > 0 {
		result.EstimatedDuration = override.EstimatedDuration
	}
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if len(override.Exclude) > 0 {
		result.Exclude = utils.DeduplicatePatterns(override.Exclude)
	}
	if len(override.Extensions) > 0 {
		result.Extensions = utils.DeduplicatePatterns(override.Extensions)
	}
	if override.AllFiles != nil {
		result.AllFiles = cloneBool(override.AllFiles)
	}
	if override.Strict != nil {
		result.Strict = cloneBool(override.Strict)
	}
	if override.MaxFileBytes != nil {
		limit := *override.MaxFileBytes
		result.MaxFileBytes = &limit
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = cloneBool(override.UseIgnoreFile)
	}
	if override.IncludeGit != nil {
		result.IncludeGit = cloneBool(override.IncludeGit)
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
