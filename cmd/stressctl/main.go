// stressctl is an operator CLI for the stress-admin backend. It previews
// plan mutations and checks engine installs without going through the API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parm-bits/stress-admin-backend/internal/config"
	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/jmx"
)

var version = "1.0.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stressctl",
		Short: "Operator tooling for the stress-admin backend",
	}
	cmd.AddCommand(
		mutateCmd(),
		engineCmd(),
		versionCmd(),
	)
	return cmd
}

// mutateCmd rewrites a plan document the same way a run would, so operators
// can inspect the result before starting anything.
func mutateCmd() *cobra.Command {
	var (
		planPath    string
		threadGroup string
		server      string
		dataFile    string
		dataDir     string
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "mutate",
		Short: "Preview a plan with run configuration applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(planPath)
			if err != nil {
				return fmt.Errorf("read plan: %w", err)
			}

			mutated := jmx.NewMutator(dataDir).Mutate(string(doc), jmx.Config{
				ThreadGroupJSON: threadGroup,
				ServerJSON:      server,
				DataFilePath:    dataFile,
			})

			if outPath == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), mutated)
				return err
			}
			return os.WriteFile(outPath, []byte(mutated), 0o644)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "plan document to mutate")
	cmd.Flags().StringVar(&threadGroup, "thread-group", "", "thread group settings as JSON")
	cmd.Flags().StringVar(&server, "server", "", "server settings as JSON")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "data file the plan's readers should point at")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory data file references are rewritten into")
	cmd.Flags().StringVar(&outPath, "out", "", "write the mutated plan here instead of stdout")
	cmd.MarkFlagRequired("plan")

	return cmd
}

func engineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Inspect the load engine install",
	}
	cmd.AddCommand(engineCheckCmd())
	return cmd
}

func engineCheckCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve the engine executable the server would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			engineCfg := config.EngineConfig{}
			if cfg, err := config.LoadConfig(cfgPath); err == nil {
				engineCfg = cfg.Engine
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("load config: %w", err)
			}

			path, err := engine.ResolveEngine(engineCfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "config/config.yml", "server configuration file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stressctl %s\n", version)
		},
	}
}
