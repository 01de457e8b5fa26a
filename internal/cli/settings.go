package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/temirov/docsmith/internal/collector"
	"github.com/temirov/docsmith/internal/config"
	"github.com/temirov/docsmith/internal/inference"
	"github.com/temirov/docsmith/internal/progress"
	"github.com/temirov/docsmith/internal/prompt"
	"github.com/temirov/docsmith/internal/tokenizer"
	"github.com/temirov/docsmith/internal/utils"
)

// providerSettings selects and configures the inference backend.
type providerSettings struct {
	kind              inference.Kind
	binary            string
	host              string
	progressMode      progress.Mode
	estimatedDuration time.Duration
}

// generationSettings is the result of layering explicit flags over configuration over defaults.
type generationSettings struct {
	documentType   prompt.DocumentType
	collector      collector.Options
	model          string
	output         string
	provider       providerSettings
	tokens         bool
	tokenizerModel string
	copy           bool
}

func resolveSettings(
	command *cobra.Command,
	root string,
	configuration config.ApplicationConfiguration,
	documents documentFlags,
	paths pathFlags,
	generation generationFlags,
) (generationSettings, error) {
	documentType, documentTypeError := resolveDocumentType(documents, configuration.Generation.Type)
	if documentTypeError != nil {
		return generationSettings{}, documentTypeError
	}

	providerKind, kindError := inference.ParseKind(stringSetting(command, providerFlagName, generation.provider, configuration.Provider.Kind, string(inference.KindCommand)))
	if kindError != nil {
		return generationSettings{}, kindError
	}
	progressMode, modeError := progress.ParseMode(stringSetting(command, progressFlagName, generation.progress, configuration.Generation.Progress, string(progress.ModeAuto)))
	if modeError != nil {
		return generationSettings{}, modeError
	}

	generationConfiguration := configuration.Generation
	settings := generationSettings{
		documentType:   documentType,
		collector:      resolveCollectorOptions(command, root, configuration.Paths, paths),
		model:          stringSetting(command, modelFlagName, generation.model, generationConfiguration.Model, inference.DefaultModel),
		output:         stringSetting(command, outputFlagName, generation.output, generationConfiguration.Output, utils.DefaultOutputFileName),
		tokens:         boolSetting(command, tokensFlagName, generation.tokens, generationConfiguration.Tokens, false),
		tokenizerModel: stringSetting(command, tokenizerModelFlagName, generation.tokenizerModel, generationConfiguration.TokenizerModel, tokenizer.DefaultModel),
		copy:           boolSetting(command, copyFlagName, generation.copy, generationConfiguration.Clipboard, false),
		provider: providerSettings{
			kind:              providerKind,
			binary:            stringSetting(command, binaryFlagName, generation.binary, configuration.Provider.Binary, inference.DefaultBinary),
			host:              stringSetting(command, hostFlagName, generation.host, configuration.Provider.Host, ""),
			progressMode:      progressMode,
			estimatedDuration: configuration.Provider.EstimatedDuration,
		},
	}
	return settings, nil
}

// resolveDocumentType prefers the flag that was given and falls back to the configured type.
func resolveDocumentType(documents documentFlags, configured string) (prompt.DocumentType, error) {
	switch {
	case documents.readme:
		return prompt.DocumentTypeReadme, nil
	case documents.blog:
		return prompt.DocumentTypeBlog, nil
	case documents.writeup:
		return prompt.DocumentTypeWriteup, nil
	case configured != "":
		documentType, parseError := prompt.ParseDocumentType(configured)
		if parseError != nil {
			return "", fmt.Errorf(errorDocumentTypeFormat, parseError)
		}
		return documentType, nil
	default:
		return "", errors.New(errorDocumentTypeRequired)
	}
}

func resolveCollectorOptions(command *cobra.Command, root string, configured config.PathConfiguration, paths pathFlags) collector.Options {
	extensions := configured.Extensions
	if command.Flags().Changed(extensionFlagName) {
		extensions = utils.DeduplicatePatterns(paths.extensions)
	}
	maxFileBytes := collector.DefaultMaxFileBytes
	if configured.MaxFileBytes != nil {
		maxFileBytes = *configured.MaxFileBytes
	}
	exclusionPatterns := append(append([]string{}, configured.Exclude...), paths.exclusionPatterns...)

	return collector.Options{
		Root:              root,
		Extensions:        extensions,
		AllFiles:          boolSetting(command, allFilesFlagName, paths.allFiles, configured.AllFiles, false),
		Strict:            boolSetting(command, strictFlagName, paths.strict, configured.Strict, false),
		MaxFileBytes:      maxFileBytes,
		ExclusionPatterns: utils.DeduplicatePatterns(exclusionPatterns),
		UseGitignore:      negatedBoolSetting(command, noGitignoreFlagName, paths.disableGitignore, configured.UseGitignore, true),
		UseIgnoreFile:     negatedBoolSetting(command, noIgnoreFlagName, paths.disableIgnoreFile, configured.UseIgnoreFile, true),
		IncludeGit:        boolSetting(command, includeGitFlagName, paths.includeGit, configured.IncludeGit, false),
	}
}
