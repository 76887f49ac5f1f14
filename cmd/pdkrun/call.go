package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/pdk/host"
)

var callCmd = &cobra.Command{
	Use:   "call <manifest> <function>",
	Short: "Call an exported plugin function",
	Long: `Load the plugin described by a manifest and call one function.

Input can be provided via:
  - Inline flag: pdkrun call upper.yaml upper -i hello
  - File flag:   pdkrun call upper.yaml upper --input-file in.json
  - Stdin:       echo hello | pdkrun call upper.yaml upper --input-file -

The manifest is rendered as a template first; {{ .env.NAME }} expands to
the environment variable NAME or to a --set NAME=value override.`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringP("input", "i", "", "Input passed to the function")
	callCmd.Flags().String("input-file", "", "Read input from a file (- for stdin)")
	callCmd.Flags().StringSlice("set", nil, "Template value NAME=value (repeatable)")
	callCmd.Flags().Uint32("memory-pages", 0, "Linear memory limit in 64KiB pages (0: runtime default)")
	callCmd.Flags().Bool("lenient", false, "Render missing template values as <no value> instead of failing")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	manifestPath, function := args[0], args[1]

	logger, err := newLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	values, err := templateValues(cmd)
	if err != nil {
		return err
	}
	input, err := readInput(cmd)
	if err != nil {
		return err
	}

	lenient, _ := cmd.Flags().GetBool("lenient")
	m, err := host.NewLoader(host.WithStrictTemplates(!lenient)).LoadManifestFile(manifestPath, values)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pages, _ := cmd.Flags().GetUint32("memory-pages")
	rt, err := host.NewRuntime(ctx, host.WithLogger(logger), host.WithMemoryLimitPages(pages))
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	p, err := rt.LoadManifest(ctx, m)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close(ctx) }()

	out, err := p.Call(ctx, function, input)
	if err != nil {
		var callErr *host.CallError
		if errors.As(err, &callErr) {
			return fmt.Errorf("%s (code %d)", callErr.Message, callErr.Code)
		}
		return err
	}

	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func templateValues(cmd *cobra.Command) (map[string]string, error) {
	values := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}

	sets, _ := cmd.Flags().GetStringSlice("set")
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q (expected NAME=value)", kv)
		}
		values[k] = v
	}
	return values, nil
}

func readInput(cmd *cobra.Command) ([]byte, error) {
	inline, _ := cmd.Flags().GetString("input")
	file, _ := cmd.Flags().GetString("input-file")

	switch {
	case inline != "" && file != "":
		return nil, errors.New("use either --input or --input-file, not both")
	case inline != "":
		return []byte(inline), nil
	case file == "-":
		return io.ReadAll(cmd.InOrStdin())
	case file != "":
		return os.ReadFile(file)
	default:
		return nil, nil
	}
}
