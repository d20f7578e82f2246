package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Component flags
	Path      string   `flag:"path" desc:"Content path of the rendered instance" default:""`
	Props     []string `flag:"prop" desc:"Instance property name=value (repeatable)" default:""`
	PropsFile string   `flag:"props-file,f" desc:"Instance properties file (JSON)" default:""`

	// Output flags
	OutputFormat string `flag:"output,o" desc:"Output format (json|yaml)" default:"json"`
}

// AddStandardFlags adds standard flags to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "component":
			addComponentFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addComponentFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVar(&flags.Path, "path", "", "Content path of the rendered instance")
	cmd.Flags().StringArrayVar(&flags.Props, "prop", nil, "Instance property name=value (repeatable)")
	cmd.Flags().StringVarP(&flags.PropsFile, "props-file", "f", "", "Instance properties file (JSON, or @file for --prop)")
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", FormatJSON, "Output format (json|yaml)")
}

// ParseProps builds the instance properties. The props file is read first
// and --prop values override it.
func (f *StandardFlags) ParseProps() (map[string]any, error) {
	props := make(map[string]any)

	if f.PropsFile != "" {
		filename := strings.TrimPrefix(f.PropsFile, "@")
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read props file %s: %w", filename, err)
		}

		if err := json.Unmarshal(data, &props); err != nil {
			return nil, fmt.Errorf("invalid JSON in props file %s: %w", filename, err)
		}
		if props == nil {
			props = make(map[string]any)
		}
	}

	for _, prop := range f.Props {
		name, value, ok := strings.Cut(prop, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid property %q, expected name=value", prop)
		}
		props[strings.TrimSpace(name)] = value
	}

	return props, nil
}

// ValidateFlags validates flag combinations and values
func (f *StandardFlags) ValidateFlags() error {
	if f.OutputFormat != "" {
		if err := f.ValidateOutput(); err != nil {
			return err
		}
	}
	return ValidateFileExists(strings.TrimPrefix(f.PropsFile, "@"))
}

// ValidateOutput checks the output format
func (f *StandardFlags) ValidateOutput() error {
	validFormats := []string{FormatJSON, FormatYAML}
	for _, format := range validFormats {
		if f.OutputFormat == format {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		f.OutputFormat, strings.Join(validFormats, ", "))
}

// writeOutput encodes v to w in the given format
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return encoder.Close()
	default:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	// Store original value setter
	originalSet := flag.Value.Set

	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: originalSet,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}

// Port validation helper
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// File existence validation helper
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil // Empty is valid for optional files
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}
