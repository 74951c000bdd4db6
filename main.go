package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ivrflow/diagram"
	"ivrflow/internal/config"
	"ivrflow/internal/tui"
)

var version = "0.3.0"

type rootFlags struct {
	meta       string
	configPath string
	verbose    bool
	lineType   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "ivrflow",
		Short: "Edit and render IVR scenario diagrams",
		Long: `ivrflow edits IVR call-flow scenarios as diagrams of blocks,
links and memos, and renders them to SVG, PNG or text.

Every command needs the node catalog (--meta), a YAML file describing
the available block types.

Examples:
  ivrflow edit main.xml --meta catalog.yaml
  ivrflow render 'flows/**/*.xml' --meta catalog.yaml -f png -o out
  ivrflow fmt main.xml -w --meta catalog.yaml
  ivrflow info main.xml --meta catalog.yaml`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.meta, "meta", "m", "catalog.yaml", "Node catalog (YAML)")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath(), "Settings file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.lineType, "line-type", "", "Link routing: L, B or O (overrides settings)")

	rootCmd.AddCommand(
		editCmd(flags),
		renderCmd(flags),
		fmtCmd(flags),
		infoCmd(flags),
	)
	return rootCmd
}

// setup loads the settings, the catalog and a logger writing to w.
func (f *rootFlags) setup(w io.Writer) (*config.Config, *diagram.Metadata, *slog.Logger, error) {
	cfg, err := config.LoadFile(f.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if f.verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	if f.lineType != "" {
		switch lt := diagram.LineType(f.lineType); lt {
		case diagram.LineStraight, diagram.LineBezier, diagram.LineOrthogonal:
			cfg.LineType = lt
		default:
			return nil, nil, nil, fmt.Errorf("--line-type: want L, B or O, got %q", f.lineType)
		}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))

	file, err := os.Open(f.meta)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("catalog: %w", err)
	}
	defer file.Close()
	meta, err := diagram.LoadMetadata(file)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, meta, logger, nil
}

func editCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <scenario.xml>",
		Short: "Open a scenario in the terminal editor",
		Long: `Open a scenario in the terminal editor. The file is created on
first save when it does not exist yet.

The terminal belongs to the editor, so logs go to the file named by
IVRFLOW_LOG and are dropped otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logOut := io.Discard
			if path := os.Getenv("IVRFLOW_LOG"); path != "" {
				file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("log file: %w", err)
				}
				defer file.Close()
				logOut = file
			}
			cfg, meta, logger, err := flags.setup(logOut)
			if err != nil {
				return err
			}

			m, err := tui.Open(meta, args[0], cfg, logger)
			if err != nil {
				return err
			}
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("editor: %w", err)
			}
			return nil
		},
	}
}
