// Package config reads the ~/.ivrflowrc settings file.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ivrflow/diagram"
)

const FileName = ".ivrflowrc"

type Config struct {
	SaveDirectory string
	Confirmations bool

	LineType          diagram.LineType
	MoveUnit          float64
	BackgroundPattern bool
	RoundedCorners    bool

	MemoBorderColor         string
	MemoBorderColorSelected string
	MemoBackgroundColor     string
	MemoFontSize            float64

	LogLevel slog.Level
}

func Default() *Config {
	return &Config{
		Confirmations:     true,
		LineType:          diagram.LineOrthogonal,
		MoveUnit:          diagram.DefaultMoveUnit,
		BackgroundPattern: true,
		LogLevel:          slog.LevelInfo,
	}
}

// DefaultPath is ~/.ivrflowrc, or empty when there is no home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, FileName)
}

// LoadFile reads path on top of the defaults. A missing file is not an
// error.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer file.Close()
	return Load(file)
}

// Load parses "key = value" lines. Blank lines and lines starting with
// '#' are skipped; unknown keys are ignored.
func Load(r io.Reader) (*Config, error) {
	config := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := config.set(strings.ToLower(key), value); err != nil {
			return nil, fmt.Errorf("config: line %d: %s: %w", lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return config, nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "savedirectory", "save_directory", "savedir":
		c.SaveDirectory = expandPath(value)
	case "confirmations", "confirm":
		c.Confirmations = strings.ToLower(value) == "true"
	case "line_type", "linetype":
		switch lt := diagram.LineType(strings.ToUpper(value)); lt {
		case diagram.LineStraight, diagram.LineBezier, diagram.LineOrthogonal:
			c.LineType = lt
		default:
			return fmt.Errorf("want L, B or O, got %q", value)
		}
	case "move_unit", "moveunit", "grid":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		c.MoveUnit = v
	case "background_pattern", "grid_pattern":
		c.BackgroundPattern = strings.ToLower(value) == "true"
	case "rounded_corners":
		c.RoundedCorners = strings.ToLower(value) == "true"
	case "memo_border_color":
		c.MemoBorderColor = value
	case "memo_border_color_selected":
		c.MemoBorderColorSelected = value
	case "memo_background_color":
		c.MemoBackgroundColor = value
	case "memo_font_size":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		c.MemoFontSize = v
	case "log_level":
		return c.LogLevel.UnmarshalText([]byte(value))
	}
	return nil
}

func expandPath(value string) string {
	if strings.HasPrefix(value, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	if !filepath.IsAbs(value) {
		if absPath, err := filepath.Abs(value); err == nil {
			value = absPath
		}
	}
	return value
}

// Options maps the settings onto engine options. Listeners, the memo
// removal predicate and the logger are left to the host.
func (c *Config) Options() diagram.Options {
	return diagram.Options{
		UseBackgroundPattern:    c.BackgroundPattern,
		LineType:                c.LineType,
		MoveUnit:                c.MoveUnit,
		RoundedCorners:          c.RoundedCorners,
		MemoBorderColor:         c.MemoBorderColor,
		MemoBorderColorSelected: c.MemoBorderColorSelected,
		MemoBackgroundColor:     c.MemoBackgroundColor,
		MemoFontSize:            c.MemoFontSize,
	}
}

// SavePath resolves filename against the save directory, creating it if
// needed.
func (c *Config) SavePath(filename string) (string, error) {
	if c.SaveDirectory == "" || filepath.IsAbs(filename) {
		return filename, nil
	}
	if err := os.MkdirAll(c.SaveDirectory, 0o755); err != nil {
		return "", fmt.Errorf("config: save directory: %w", err)
	}
	return filepath.Join(c.SaveDirectory, filename), nil
}
