// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/docsmith/internal/config"
	"github.com/temirov/docsmith/internal/inference"
	"github.com/temirov/docsmith/internal/pipeline"
	"github.com/temirov/docsmith/internal/progress"
	"github.com/temirov/docsmith/internal/services/clipboard"
	"github.com/temirov/docsmith/internal/tokenizer"
	"github.com/temirov/docsmith/internal/utils"
)

const (
	readmeFlagName         = "readme"
	blogFlagName           = "blog"
	writeupFlagName        = "writeup"
	modelFlagName          = "model"
	outputFlagName         = "output"
	outputFlagShorthand    = "o"
	providerFlagName       = "provider"
	binaryFlagName         = "binary"
	hostFlagName           = "host"
	allFilesFlagName       = "all-files"
	extensionFlagName      = "ext"
	exclusionFlagName      = "e"
	noGitignoreFlagName    = "no-gitignore"
	noIgnoreFlagName       = "no-ignore"
	includeGitFlagName     = "git"
	strictFlagName         = "strict"
	tokensFlagName         = "tokens"
	tokenizerModelFlagName = "tokenizer-model"
	copyFlagName           = "copy"
	progressFlagName       = "progress"
	configFlagName         = "config"
	verboseFlagName        = "verbose"
	versionFlagName        = "version"
	globalFlagName         = "global"
	forceFlagName          = "force"

	readmeFlagDescription         = "generate a README"
	blogFlagDescription           = "generate a blog post"
	writeupFlagDescription        = "generate a scholarly write-up"
	modelFlagDescription          = "model the runtime should load"
	outputFlagDescription         = "file that receives the generated document"
	providerFlagDescription       = "how to reach the runtime: command or api"
	binaryFlagDescription         = "runtime executable used by the command provider"
	hostFlagDescription           = "runtime address used by the api provider"
	allFilesFlagDescription       = "collect every text file regardless of extension"
	extensionFlagDescription      = "collect files with this extension (.go) or exact name (Makefile); repeatable"
	exclusionFlagDescription      = "exclude path pattern (repeatable)"
	noGitignoreFlagDescription    = "do not use .gitignore"
	noIgnoreFlagDescription       = "do not use .ignore"
	includeGitFlagDescription     = "include git directory"
	strictFlagDescription         = "fail on files that are not valid text instead of skipping them"
	tokensFlagDescription         = "log the prompt size in tokens"
	tokenizerModelFlagDescription = "tokenizer model used for token counting"
	copyFlagDescription           = "copy the generated document to the clipboard"
	progressFlagDescription       = "progress indicator: auto, always or never"
	configFlagDescription         = "configuration file to use instead of ./" + utils.ConfigFileName
	verboseFlagDescription        = "log every visited file"
	versionFlagDescription        = "display application version"
	globalFlagDescription         = "write the global configuration under ~/" + utils.GlobalConfigDirectoryName
	forceFlagDescription          = "overwrite an existing configuration file"

	rootUse              = utils.ApplicationName + " [path]"
	rootShortDescription = "generate project documentation with a local model"
	rootLongDescription  = `docsmith collects the text files of a project, asks a locally running model to
write a README, a blog post or a scholarly write-up about it, and saves the answer to a file.
Reasoning blocks emitted by the model are removed before the file is written.`
	rootUsageExample = `  # Write a README for the current directory into output.md
  docsmith --readme

  # Write a blog post about ./service with a different model
  docsmith ./service --blog --model llama3 -o post.md

  # Use the HTTP API instead of the command line runtime
  docsmith --writeup --provider api --host http://127.0.0.1:11434`

	promptUse              = "prompt [path]"
	promptShortDescription = "print the prompt without calling the model"
	promptLongDescription  = `Collect files and print the exact prompt docsmith would send.
Use it to inspect what the model will see, or pipe it into another tool.`
	promptUsageExample = `  # Inspect the README prompt for ./cmd
  docsmith prompt ./cmd --readme --tokens`

	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write a configuration file with every setting at its default value.
The file goes to ./` + utils.ConfigFileName + ` unless --global is set.`

	defaultPath = "."

	versionTemplate                 = "docsmith version: %s\n"
	outputWrittenTemplate           = "%s written to %s\n"
	configurationWrittenTemplate    = "configuration written to %s\n"
	errorDocumentTypeRequired       = "one of --readme, --blog or --writeup is required"
	errorLoadConfigurationFormat    = "load configuration: %w"
	errorDocumentTypeFormat         = "document type from configuration: %w"
	errorTokenizerFormat            = "initialize tokenizer: %w"
	infoPromptTokens                = "prompt size"
	debugEffectiveSettings          = "effective settings"
	interruptedMessage              = "interrupted"
	providerConstructionErrorFormat = "configure %s provider: %w"
)

// Execute runs the docsmith application with the process arguments.
func Execute(logger *zap.Logger, level zap.AtomicLevel) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApplication(logger, level)
	rootCommand := app.newRootCommand()
	rootCommand.SetArgs(normalizeBooleanArguments(rootCommand, os.Args[1:]))
	executionError := rootCommand.ExecuteContext(ctx)
	if errors.Is(executionError, context.Canceled) {
		return errors.New(interruptedMessage)
	}
	return executionError
}

// application carries the collaborators commands need. Tests replace the factories.
type application struct {
	logger      *zap.Logger
	level       zap.AtomicLevel
	stdout      io.Writer
	stderr      io.Writer
	newProvider func(settings providerSettings, trackerFactory inference.TrackerFactory) (inference.Provider, error)
	newCopier   func() clipboard.Copier
}

func newApplication(logger *zap.Logger, level zap.AtomicLevel) *application {
	return &application{
		logger:      logger,
		level:       level,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		newProvider: buildProvider,
		newCopier:   func() clipboard.Copier { return clipboard.NewService() },
	}
}

type documentFlags struct {
	readme  bool
	blog    bool
	writeup bool
}

type pathFlags struct {
	allFiles          bool
	extensions        []string
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
	includeGit        bool
	strict            bool
}

type generationFlags struct {
	model          string
	output         string
	provider       string
	binary         string
	host           string
	progress       string
	tokens         bool
	tokenizerModel string
	copy           bool
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func (app *application) newRootCommand() *cobra.Command {
	var global globalFlags
	var documents documentFlags
	var paths pathFlags
	var generation generationFlags
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if global.verbose {
				app.level.SetLevel(zap.DebugLevel)
			}
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(app.stdout, versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			return app.runGenerate(command, rootPath(arguments), global, documents, paths, generation)
		},
	}
	rootCommand.SetOut(app.stdout)
	rootCommand.SetErr(app.stderr)

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&global.configPath, configFlagName, "", configFlagDescription)
	addBooleanFlag(persistentFlags, &global.verbose, verboseFlagName, verboseFlagDescription)

	addDocumentFlags(rootCommand, &documents)
	addPathFlags(rootCommand, &paths)
	flagSet := rootCommand.Flags()
	addBooleanFlag(flagSet, &showVersion, versionFlagName, versionFlagDescription)
	flagSet.StringVar(&generation.model, modelFlagName, inference.DefaultModel, modelFlagDescription)
	flagSet.StringVarP(&generation.output, outputFlagName, outputFlagShorthand, utils.DefaultOutputFileName, outputFlagDescription)
	flagSet.StringVar(&generation.provider, providerFlagName, string(inference.KindCommand), providerFlagDescription)
	flagSet.StringVar(&generation.binary, binaryFlagName, inference.DefaultBinary, binaryFlagDescription)
	flagSet.StringVar(&generation.host, hostFlagName, "", hostFlagDescription)
	flagSet.StringVar(&generation.progress, progressFlagName, string(progress.ModeAuto), progressFlagDescription)
	addBooleanFlag(flagSet, &generation.tokens, tokensFlagName, tokensFlagDescription)
	flagSet.StringVar(&generation.tokenizerModel, tokenizerModelFlagName, tokenizer.DefaultModel, tokenizerModelFlagDescription)
	addBooleanFlag(flagSet, &generation.copy, copyFlagName, copyFlagDescription)

	rootCommand.AddCommand(
		app.newPromptCommand(&global),
		app.newInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func (app *application) newPromptCommand(global *globalFlags) *cobra.Command {
	var documents documentFlags
	var paths pathFlags
	var generation generationFlags

	promptCommand := &cobra.Command{
		Use:     promptUse,
		Short:   promptShortDescription,
		Long:    promptLongDescription,
		Example: promptUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return app.runPrompt(command, rootPath(arguments), *global, documents, paths, generation)
		},
	}
	addDocumentFlags(promptCommand, &documents)
	addPathFlags(promptCommand, &paths)
	addBooleanFlag(promptCommand.Flags(), &generation.tokens, tokensFlagName, tokensFlagDescription)
	promptCommand.Flags().StringVar(&generation.tokenizerModel, tokenizerModelFlagName, tokenizer.DefaultModel, tokenizerModelFlagDescription)
	return promptCommand
}

func (app *application) newInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(app.stdout, configurationWrittenTemplate, writtenPath)
			return nil
		},
	}
	addBooleanFlag(initCommand.Flags(), &global, globalFlagName, globalFlagDescription)
	addBooleanFlag(initCommand.Flags(), &force, forceFlagName, forceFlagDescription)
	return initCommand
}

func addDocumentFlags(command *cobra.Command, documents *documentFlags) {
	addBooleanFlag(command.Flags(), &documents.readme, readmeFlagName, readmeFlagDescription)
	addBooleanFlag(command.Flags(), &documents.blog, blogFlagName, blogFlagDescription)
	addBooleanFlag(command.Flags(), &documents.writeup, writeupFlagName, writeupFlagDescription)
	command.MarkFlagsMutuallyExclusive(readmeFlagName, blogFlagName, writeupFlagName)
}

// addPathFlags registers traversal flags on the command.
func addPathFlags(command *cobra.Command, paths *pathFlags) {
	flagSet := command.Flags()
	addBooleanFlag(flagSet, &paths.allFiles, allFilesFlagName, allFilesFlagDescription)
	flagSet.StringArrayVar(&paths.extensions, extensionFlagName, nil, extensionFlagDescription)
	flagSet.StringArrayVarP(&paths.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	addBooleanFlag(flagSet, &paths.disableGitignore, noGitignoreFlagName, noGitignoreFlagDescription)
	addBooleanFlag(flagSet, &paths.disableIgnoreFile, noIgnoreFlagName, noIgnoreFlagDescription)
	addBooleanFlag(flagSet, &paths.includeGit, includeGitFlagName, includeGitFlagDescription)
	addBooleanFlag(flagSet, &paths.strict, strictFlagName, strictFlagDescription)
}

func (app *application) runGenerate(
	command *cobra.Command,
	root string,
	global globalFlags,
	documents documentFlags,
	paths pathFlags,
	generation generationFlags,
) error {
	configuration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: global.configPath})
	if loadError != nil {
		return fmt.Errorf(errorLoadConfigurationFormat, loadError)
	}
	settings, settingsError := resolveSettings(command, root, configuration, documents, paths, generation)
	if settingsError != nil {
		return settingsError
	}
	app.logger.Debug(debugEffectiveSettings,
		zap.String("root", settings.collector.Root),
		zap.String("type", settings.documentType.String()),
		zap.String("model", settings.model),
		zap.String("provider", string(settings.provider.kind)),
		zap.String("output", settings.output))

	provider, providerError := app.newProvider(settings.provider, app.trackerFactory(settings.provider))
	if providerError != nil {
		return fmt.Errorf(providerConstructionErrorFormat, settings.provider.kind, providerError)
	}

	options := pipeline.Options{
		Collector:    settings.collector,
		DocumentType: settings.documentType,
		Model:        settings.model,
		OutputPath:   settings.output,
		Provider:     provider,
		Logger:       app.logger,
	}
	if settings.tokens {
		counter, _, counterError := tokenizer.NewCounter(tokenizer.Config{Model: settings.tokenizerModel})
		if counterError != nil {
			return fmt.Errorf(errorTokenizerFormat, counterError)
		}
		options.TokenCounter = counter
	}
	if settings.copy {
		options.Copier = app.newCopier()
	}

	result, runError := pipeline.Run(command.Context(), options)
	if runError != nil {
		return runError
	}
	fmt.Fprintf(app.stdout, outputWrittenTemplate, settings.documentType, result.OutputPath)
	return nil
}

func (app *application) runPrompt(
	command *cobra.Command,
	root string,
	global globalFlags,
	documents documentFlags,
	paths pathFlags,
	generation generationFlags,
) error {
	configuration, loadError := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: global.configPath})
	if loadError != nil {
		return fmt.Errorf(errorLoadConfigurationFormat, loadError)
	}
	settings, settingsError := resolveSettings(command, root, configuration, documents, paths, generation)
	if settingsError != nil {
		return settingsError
	}

	renderedPrompt, _, previewError := pipeline.Preview(command.Context(), pipeline.Options{
		Collector:    settings.collector,
		DocumentType: settings.documentType,
		OutputPath:   settings.output,
		Logger:       app.logger,
	})
	if previewError != nil {
		return previewError
	}
	if settings.tokens {
		counter, _, counterError := tokenizer.NewCounter(tokenizer.Config{Model: settings.tokenizerModel})
		if counterError != nil {
			return fmt.Errorf(errorTokenizerFormat, counterError)
		}
		tokens, countError := counter.CountString(renderedPrompt)
		if countError != nil {
			return countError
		}
		app.logger.Info(infoPromptTokens, zap.Int("tokens", tokens), zap.String("tokenizer", counter.Name()))
	}
	_, writeError := io.WriteString(app.stdout, renderedPrompt)
	return writeError
}

// trackerFactory adapts the progress indicator to the provider tracker contract.
func (app *application) trackerFactory(settings providerSettings) inference.TrackerFactory {
	return func(label string) inference.Tracker {
		return progress.New(app.stderr, progress.Options{
			Label:             label,
			Mode:              settings.progressMode,
			EstimatedDuration: settings.estimatedDuration,
		})
	}
}

func buildProvider(settings providerSettings, trackerFactory inference.TrackerFactory) (inference.Provider, error) {
	switch settings.kind {
	case inference.KindAPI:
		return inference.NewAPIProvider(settings.host, nil, trackerFactory)
	default:
		return inference.NewCommandProvider(settings.binary, trackerFactory), nil
	}
}

func rootPath(arguments []string) string {
	if len(arguments) == 0 {
		return defaultPath
	}
	return filepath.Clean(arguments[0])
}
