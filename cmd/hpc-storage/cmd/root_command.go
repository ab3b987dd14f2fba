package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/plgrid/hpc-storage/pkg/bursar"
	"github.com/plgrid/hpc-storage/pkg/config"
	"github.com/plgrid/hpc-storage/pkg/exporter"
	"github.com/plgrid/hpc-storage/pkg/metadata"
	"github.com/plgrid/hpc-storage/pkg/provision"
	"github.com/plgrid/hpc-storage/pkg/quota/lustre"
	"github.com/plgrid/hpc-storage/pkg/reconciler"
	"github.com/plgrid/hpc-storage/pkg/reporter"
	"github.com/plgrid/hpc-storage/pkg/system"
)

const version = "0.1"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "hpc-storage",
	Short:   "Grant-driven project storage manager",
	Long:    `hpc-storage keeps project directories and their Lustre block quotas in line with the storage allocations of active grants in the bursar registry.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		flag.Parse()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single reconcile pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildComponents()
		if err != nil {
			return err
		}
		report, err := deps.runner.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		// Skipped groups are routine; failed ones should page someone.
		if report.Failed() {
			return fmt.Errorf("%d group(s) failed to reconcile", report.Count(metadata.OutcomeFailed))
		}
		return nil
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Reconcile on an interval and serve metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildComponents()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			klog.Info("Starting reconcile runner...")
			deps.runner.Run(ctx)
			return nil
		})

		g.Go(func() error {
			return exporter.StartMetricsServer(ctx, deps.cfg.MetricsAddr,
				exporter.NewQuotaCollector(deps.cfg.Filesystem, deps.store),
				exporter.NewFilesystemCollector(deps.cfg.Filesystem),
			)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			klog.ErrorS(err, "hpc-storage daemon exited with error")
			return err
		}
		klog.Info("hpc-storage daemon stopped gracefully")
		return nil
	},
}

type components struct {
	cfg    *config.Config
	store  *metadata.Store
	runner *reporter.Runner
}

func buildComponents() (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// Both validated by config.Load.
	minGB, _ := cfg.MinQuotaGB()
	interval, _ := cfg.IntervalDuration()

	tokens := &bursar.MungeTokenSource{
		MungePath: cfg.MungePath,
		User:      cfg.User,
		Service:   cfg.Service,
	}
	client, err := bursar.NewClient(cfg.BursarURL, cfg.Service, cfg.BursarCertPath, tokens)
	if err != nil {
		return nil, err
	}

	quotas := lustre.NewLFSCLI(cfg.LFSPath)
	engine := reconciler.New(reconciler.Config{
		BasePath:   cfg.BasePath,
		Filesystem: cfg.Filesystem,
		MinQuotaGB: minGB,
		Rules:      cfg.Rules(),
	}, system.OSGroups{}, quotas, provision.NewManager(quotas))

	store := metadata.NewStore()
	runner := reporter.NewRunner(client, engine, store, interval)
	return &components{cfg: cfg, store: store, runner: runner}, nil
}

// Execute is the entry point called from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	_ = flag.Set("logtostderr", "true")
	rootCmd.AddCommand(runCmd, daemonCmd)
}
