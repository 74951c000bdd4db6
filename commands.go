package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ivrflow/diagram"
	"ivrflow/export"
	"ivrflow/internal/config"
	"ivrflow/surface"
)

// Scenarios are loaded onto a surface of this client size; exports
// frame the drawing extent, so it only matters for the view box.
const (
	sceneWidth  = 1600
	sceneHeight = 1200
)

func loadScenario(path string, meta *diagram.Metadata, cfg *config.Config, logger *slog.Logger) (*diagram.Diagram, *surface.Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.Options()
	opts.Logger = logger.With("file", path)
	s := surface.NewMemory(sceneWidth, sceneHeight)
	d, err := diagram.DeserializeBytes(s, meta, data, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, s, nil
}

// expandGlobs resolves each pattern with ** support. A pattern without
// glob characters is passed through so a missing file is reported as
// such.
func expandGlobs(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pattern, err)
		}
		if len(matches) == 0 && !strings.ContainsAny(pattern, "*?[{") {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func renderCmd(flags *rootFlags) *cobra.Command {
	var (
		format string
		outDir string
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "render <glob>...",
		Short: "Render scenarios to SVG, PNG or text",
		Long: `Render scenarios to SVG, PNG or text. Patterns support ** and are
rendered concurrently; each output is named after its scenario.

Examples:
  ivrflow render main.xml                      # main.svg next to main.xml
  ivrflow render 'flows/**/*.xml' -f png -o out`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, meta, logger, err := flags.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			files, err := expandGlobs(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no scenarios match")
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}

			registry := diagram.NewRegistry()
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				errs []error
			)
			for _, path := range files {
				wg.Add(1)
				go func(path string) {
					defer wg.Done()
					target, err := renderOne(registry, path, meta, cfg, logger, f, scale, outDir)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
						return
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", path, target)
				}(path)
			}
			wg.Wait()
			logger.Debug("render finished", "files", len(files), "failed", len(errs), "open", registry.Len())
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "Output format: svg, png or txt")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Output directory (default: next to each scenario)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "PNG scale factor")
	return cmd
}

func renderOne(registry *diagram.Registry, path string, meta *diagram.Metadata, cfg *config.Config, logger *slog.Logger, f export.Format, scale float64, outDir string) (string, error) {
	d, s, err := loadScenario(path, meta, cfg, logger)
	if err != nil {
		return "", err
	}
	id := registry.Register(d)
	defer registry.Unregister(id)

	var buf bytes.Buffer
	if f == export.FormatPNG {
		err = export.PNG(&buf, s, scale)
	} else {
		err = export.Write(&buf, s, f)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	target := strings.TrimSuffix(path, filepath.Ext(path)) + "." + string(f)
	if outDir != "" {
		target = filepath.Join(outDir, filepath.Base(target))
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return target, nil
}

func fmtCmd(flags *rootFlags) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <scenario.xml>",
		Short: "Rewrite a scenario in canonical form",
		Long: `Load a scenario and serialize it again: blocks in id order with
their choices, memos last. Prints to stdout unless -w is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, meta, logger, err := flags.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return formatScenario(cmd.OutOrStdout(), args[0], meta, cfg, logger, write)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the file")
	return cmd
}

func formatScenario(w io.Writer, path string, meta *diagram.Metadata, cfg *config.Config, logger *slog.Logger, write bool) error {
	d, _, err := loadScenario(path, meta, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()
	data, err := diagram.Serialize(d)
	if err != nil {
		return err
	}
	if !write {
		_, err = w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func infoCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <scenario.xml>...",
		Short: "Summarize scenarios",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, meta, logger, err := flags.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			var errs []error
			for _, path := range args {
				if err := printInfo(cmd.OutOrStdout(), path, meta, cfg, logger); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.RedString("✗"), err)
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func printInfo(w io.Writer, path string, meta *diagram.Metadata, cfg *config.Config, logger *slog.Logger) error {
	d, _, err := loadScenario(path, meta, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	var sb strings.Builder
	sb.WriteString(color.CyanString("%s\n", path))
	fmt.Fprintf(&sb, "  Blocks: %s\n", color.GreenString("%d", len(d.Blocks())))
	fmt.Fprintf(&sb, "  Links:  %s\n", color.GreenString("%d", len(d.Links())))
	fmt.Fprintf(&sb, "  Memos:  %s\n", color.GreenString("%d", len(d.Memos())))

	types := map[string]int{}
	for _, b := range d.Blocks() {
		types[b.MetaName()]++
	}
	for _, key := range meta.NodeKeys() {
		if n := types[key]; n > 0 {
			fmt.Fprintf(&sb, "    %-12s %d\n", key, n)
		}
	}

	for _, b := range d.Blocks() {
		if len(b.Links()) == 0 {
			fmt.Fprintf(&sb, "  %s block %s (%s) is not connected\n", color.YellowString("!"), diagram.FormatID(b.ID()), b.Caption())
		}
	}
	_, err = io.WriteString(w, sb.String())
	return err
}
