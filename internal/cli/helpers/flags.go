package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddFormatFlag registers --format/-o restricted to supported. The value is
// checked before the command runs.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat OutputFormat, supported []OutputFormat) {
	names := formatNames(supported)

	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat),
		fmt.Sprintf("Output format (%s)", strings.Join(names, ", ")))

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	prev := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		if err := ValidateFormat(*formatVar, supported); err != nil {
			return err
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

// ValidateFormat reports an error unless format is one of supported.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if OutputFormat(format) == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(formatNames(supported), ", "))
}

func formatNames(formats []OutputFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// AddFlags registers the shared flags on a flag set.
func (o *GlobalOptions) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.ConfigPath, "config", "", "Config file (default: ~/.cygdb/config.yaml)")
	flags.StringVar(&o.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.BoolVar(&o.LogPretty, "log-pretty", false, "Human-readable log output")
}
