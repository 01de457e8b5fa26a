package utils

const (
	// ApplicationName is the binary and configuration namespace.
	ApplicationName = "docsmith"
	// ConfigFileName is the local configuration file looked up in the working directory.
	ConfigFileName = "docsmith.yaml"
	// GlobalConfigFileName is the configuration file stored under GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home that holds global configuration.
	GlobalConfigDirectoryName = ".docsmith"
	// DefaultOutputFileName is the fixed file written in the working directory.
	DefaultOutputFileName = "output.md"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes the final error reported on exit.
	ApplicationExecutionFailedMessage = "docsmith failed"
)
