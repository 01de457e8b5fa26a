package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName        = "bool"
	booleanFlagTrueLiteral     = "true"
	booleanFlagAcceptedValues  = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueFmt = "invalid boolean value %q for --%s; accepted values: %s"
)

var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// joinableBooleanLiterals are the values normalizeBooleanArguments attaches to a preceding flag.
// Short forms stay positional so `--readme n` still names a directory called n.
var joinableBooleanLiterals = map[string]struct{}{
	"true":  {},
	"false": {},
	"yes":   {},
	"no":    {},
	"on":    {},
	"off":   {},
}

// booleanFlag is a pflag.Value accepting yes/no style literals in addition to true/false.
type booleanFlag struct {
	target *bool
	name   string
}

func (flag *booleanFlag) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	parsed, known := booleanFlagLiterals[normalized]
	if !known {
		return fmt.Errorf(booleanFlagInvalidValueFmt, input, flag.name, booleanFlagAcceptedValues)
	}
	*flag.target = parsed
	return nil
}

func (flag *booleanFlag) String() string {
	if flag == nil || flag.target == nil {
		return "false"
	}
	return strconv.FormatBool(*flag.target)
}

func (flag *booleanFlag) Type() string {
	return booleanFlagTypeName
}

// addBooleanFlag registers a boolean flag that may be given bare (`--copy`), with `=value`, or
// followed by a separate literal (`--copy no`) once arguments pass through normalizeBooleanArguments.
func addBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, usage string) {
	*target = false
	flagSet.Var(&booleanFlag{target: target, name: name}, name, usage)
	if registered := flagSet.Lookup(name); registered != nil {
		registered.DefValue = "false"
		registered.NoOptDefVal = booleanFlagTrueLiteral
	}
}

// normalizeBooleanArguments joins `--flag literal` pairs into `--flag=literal` for every boolean flag
// known to command or its subcommands. Arguments after `--` are left alone.
func normalizeBooleanArguments(command *cobra.Command, arguments []string) []string {
	booleanNames := map[string]struct{}{}
	collectBooleanFlagNames(command, booleanNames)
	if len(booleanNames) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == "--" {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		flagName, isLongFlag := strings.CutPrefix(argument, "--")
		if isLongFlag && !strings.Contains(flagName, "=") && index+1 < len(arguments) {
			if _, isBoolean := booleanNames[flagName]; isBoolean {
				next := arguments[index+1]
				if _, isLiteral := joinableBooleanLiterals[strings.ToLower(strings.TrimSpace(next))]; isLiteral {
					normalized = append(normalized, "--"+flagName+"="+next)
					index++
					continue
				}
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func collectBooleanFlagNames(command *cobra.Command, names map[string]struct{}) {
	visit := func(flagSet *pflag.FlagSet) {
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if flag.Value.Type() == booleanFlagTypeName {
				names[flag.Name] = struct{}{}
			}
		})
	}
	visit(command.PersistentFlags())
	visit(command.Flags())
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, names)
	}
}

// boolSetting resolves a boolean from an explicitly set flag, then configuration, then fallback.
func boolSetting(command *cobra.Command, flagName string, flagValue bool, configured *bool, fallback bool) bool {
	if command.Flags().Changed(flagName) {
		return flagValue
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

// negatedBoolSetting resolves options exposed as `--no-x` flags against a positive configuration value.
func negatedBoolSetting(command *cobra.Command, flagName string, disabled bool, configured *bool, fallback bool) bool {
	if command.Flags().Changed(flagName) {
		return !disabled
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

// stringSetting resolves a string from an explicitly set flag, then configuration, then fallback.
func stringSetting(command *cobra.Command, flagName string, flagValue string, configured string, fallback string) string {
	if command.Flags().Changed(flagName) {
		return flagValue
	}
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return fallback
}
