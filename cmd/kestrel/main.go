package main

import (
	"fmt"
	"os"

	"github.com/kestrel-engine/kestrel/internal/config"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	config  string
	profile string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "kestrel",
		Short:         "Parallel ECS runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.config, "config", "c", "", "config file (default $KESTREL_CONFIG or config/kestrel.toml)")
	root.PersistentFlags().StringVar(&f.profile, "profile", "", "write a cpu or mem profile to the working directory")

	root.AddCommand(newRunCmd(f), newGraphCmd(f))
	return root
}

func newRunCmd(f *flags) *cobra.Command {
	var frames uint64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the scene and scripts and run the frame loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f.config)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frames") {
				cfg.Frame.Frames = frames
			}
			stop, err := startProfile(f.profile)
			if err != nil {
				return err
			}
			defer stop()
			return run(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().Uint64Var(&frames, "frames", 0, "stop after this many frames (overrides frame.frames)")
	return cmd
}

func newGraphCmd(f *flags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the task graph built from the configured systems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f.config)
			if err != nil {
				return err
			}
			return graph(cmd.OutOrStdout(), cfg, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the nodes as JSON")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = "config/kestrel.toml"
		if p := os.Getenv("KESTREL_CONFIG"); p != "" {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func startProfile(mode string) (func(), error) {
	var p interface{ Stop() }
	switch mode {
	case "":
		return func() {}, nil
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		p = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return nil, fmt.Errorf("unknown profile mode %q (want cpu or mem)", mode)
	}
	return p.Stop, nil
}
