package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/scriptorium/internal/app"
	"github.com/kittclouds/scriptorium/internal/config"
	"github.com/kittclouds/scriptorium/pkg/transcription"
)

// --- Global Command Variables ---
var (
	configPath string
	dbPath     string
	atFlag     string

	rootCmd = &cobra.Command{
		Use:           "scriptorium",
		Short:         "Versioned manuscript transcriptions",
		Long:          "scriptorium stores page transcriptions with full edit history and resolves them into reading-order text.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "scriptorium.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file, overriding database.dsn")
	rootCmd.PersistentFlags().StringVar(&atFlag, "at", "", "Instant to read or write at (RFC3339, default now)")

	rootCmd.AddCommand(initCmd, infoCmd, exportCmd, importCmd, searchCmd)
	rootCmd.AddCommand(docCmd, pageCmd, notesCmd)
	rootCmd.AddCommand(reconcileCmd, columnCmd, streamCmd, textCmd, witnessCmd, chunksCmd, versionsCmd)
}

// loadConfig reads the config file and applies the --db override.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.Database.DSN = dbPath
	}
	return cfg, nil
}

// openApp wires an App for one command. Log lines go to stderr.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, cmd.ErrOrStderr())
}

// withApp runs fn against a freshly opened App and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// instant is the --at flag, or now when unset. No layer below this one
// reads the clock.
func instant() (time.Time, error) {
	if atFlag == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, atFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: %w", atFlag, err)
	}
	return t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// parseLocation reads "pageSeq[:column[:elementSeq[:itemSeq]]]". Missing
// trailing parts are zero, except that element and item default to -1 so a
// bound given as a page or column starts before its first item.
func parseLocation(s string) (transcription.Location, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 4 {
		return transcription.Location{}, fmt.Errorf("invalid location %q", s)
	}
	vals := [4]int{0, 0, -1, -1}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return transcription.Location{}, fmt.Errorf("invalid location %q: %w", s, err)
		}
		vals[i] = n
	}
	return transcription.Location{PageSeq: vals[0], ColumnNumber: vals[1], ElementSeq: vals[2], ItemSeq: vals[3]}, nil
}

// rangeFlags are the --from and --to bounds of a stream read.
type rangeFlags struct {
	from, to string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.from, "from", "0", "Exclusive lower bound pageSeq[:col[:elem[:item]]]")
	cmd.Flags().StringVar(&r.to, "to", "", "Exclusive upper bound pageSeq[:col[:elem[:item]]] (default after the last page)")
}

func (r *rangeFlags) bounds() (transcription.Location, transcription.Location, error) {
	from, err := parseLocation(r.from)
	if err != nil {
		return from, from, err
	}
	if r.to == "" {
		return from, transcription.Location{PageSeq: 1 << 30}, nil
	}
	to, err := parseLocation(r.to)
	return from, to, err
}
