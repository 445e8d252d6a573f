package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/akaushal/resinet/internal/factories"
	"github.com/akaushal/resinet/internal/models"
	"github.com/akaushal/resinet/internal/output"
	"github.com/akaushal/resinet/internal/simulator"
	"github.com/lucsky/cuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "resinet",
	Short: "Simulates disruption and recovery of interdependent infrastructure networks",
	Long: `resinet simulates how a disruption spreads through coupled power, water
and transport networks, schedules crew-based repairs under a chosen recovery
strategy, and scores the outcome with equivalent-outage-hour resilience
metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := run(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func run(ctx context.Context, cfg *models.Config) error {
	net, deps, err := factories.NewNetworkFactory(factories.DefaultNetworkOptions(cfg.Seed)).Build()
	if err != nil {
		return fmt.Errorf("building network: %w", err)
	}
	if cfg.NetworkName != "" {
		net.Name = cfg.NetworkName
	}
	log.Printf("Built network %q with %d components", net.Name, net.Len())

	if cfg.DependencyFile != "" {
		if err := models.LoadDependenciesFile(cfg.DependencyFile, net, deps); err != nil {
			return err
		}
	}

	if cfg.DisruptionFile == "" {
		return fmt.Errorf("no disruption_file configured")
	}
	rows, err := models.LoadDisruptionsFile(cfg.DisruptionFile)
	if err != nil {
		return err
	}
	disruptions, overrides, err := models.BuildEventTable(net, rows)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d disruption events from %s", disruptions.Len(), cfg.DisruptionFile)

	sim := simulator.NewSimulator(cfg, net, deps)
	sched := simulator.NewRecoveryScheduler(cfg, net, sim.Transport, overrides)

	order, err := repairOrder(ctx, cfg, sim, sched, disruptions)
	if err != nil {
		return err
	}
	log.Printf("Repair order (%s): %v", cfg.Strategy, order)

	schedule, crews, err := sched.Schedule(ctx, disruptions, order)
	if err != nil {
		return fmt.Errorf("scheduling repairs: %w", err)
	}

	runID := cuid.New()
	startedAt := time.Now()
	records, err := sim.Run(ctx, simulator.RunRequest{Table: schedule, RunID: runID})
	if err != nil {
		return fmt.Errorf("simulation run %s: %w", runID, err)
	}
	for infra, crew := range crews {
		log.Printf("Crew %s repaired %d components: %v", infra, len(crew.Repaired), crew.Repaired)
	}

	summary := simulator.Summarize(records, cfg.MetricWeights())
	for _, infra := range models.Infras {
		log.Printf("%s: ECS outage %.2f h, PCS outage %.2f h",
			infra, summary.ECSOutage[infra], summary.PCSOutage[infra])
	}
	log.Printf("Weighted EOH: %.2f h", summary.WeightedEOH)

	return export(ctx, cfg, net, schedule, records, summary, runID, startedAt)
}

func repairOrder(ctx context.Context, cfg *models.Config, sim *simulator.Simulator, sched *simulator.RecoveryScheduler, disruptions *models.EventTable) ([]string, error) {
	if cfg.Strategy != "mpc" {
		strategy, err := simulator.NewStrategy(cfg.Strategy, cfg, sim.Transport)
		if err != nil {
			return nil, err
		}
		return strategy.Order(ctx, sim.Network, disruptedIDs(disruptions))
	}

	fallback, err := simulator.NewStrategy(cfg.Optimizer.Fallback, cfg, sim.Transport)
	if err != nil {
		return nil, fmt.Errorf("mpc fallback: %w", err)
	}
	opt := simulator.NewMPCOptimizer(sim, sched, cfg.Optimizer, fallback, cfg.MetricWeights())
	opt.ShowProgress = true
	return opt.Optimize(ctx, disruptions)
}

func disruptedIDs(disruptions *models.EventTable) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range disruptions.Sorted() {
		if e.Kind == models.EventDisrupt && !seen[e.ComponentID] {
			seen[e.ComponentID] = true
			out = append(out, e.ComponentID)
		}
	}
	return out
}

func export(ctx context.Context, cfg *models.Config, net *models.Network, schedule *models.EventTable, records *models.RunRecords, summary *simulator.ResilienceSummary, runID string, startedAt time.Time) error {
	dest, err := simulator.DetermineOutputDestination(cfg)
	if err != nil {
		return err
	}
	defer dest.Close()

	exporter := simulator.NewExporter(dest)
	if err := exporter.PublishEvents(runID, schedule); err != nil {
		return fmt.Errorf("publishing events: %w", err)
	}
	if err := exporter.PublishServiceLevels(records); err != nil {
		return fmt.Errorf("publishing service levels: %w", err)
	}
	if err := exporter.PublishSummary(summary, time.Now().Unix()); err != nil {
		return fmt.Errorf("publishing summary: %w", err)
	}

	if !cfg.PostgresEnabled {
		return nil
	}
	pg, err := output.NewPostgresOutput(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.CreateTables(ctx); err != nil {
		return err
	}
	if err := pg.InsertRun(ctx, runID, net.Name, cfg.Strategy, startedAt); err != nil {
		return err
	}
	if err := pg.CopyServiceLevels(ctx, records); err != nil {
		return err
	}
	for _, infra := range models.Infras {
		if err := pg.InsertSummary(ctx, runID, infra, summary.ECSOutage[infra], summary.PCSOutage[infra], summary.WeightedEOH); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is examples/config.json)")

	rootCmd.Flags().Int64("seed", 42, "Random seed for the synthetic network")
	rootCmd.Flags().String("network-name", "", "Override the generated network name")
	rootCmd.Flags().String("disruption-file", "", "Disruption scenario CSV")
	rootCmd.Flags().String("dependency-file", "", "Extra cross-network coupling CSV")
	rootCmd.Flags().String("strategy", "mpc", "Repair strategy: maxflow, centrality, zone, crewdistance or mpc")
	rootCmd.Flags().String("pipe-close-policy", "repair", "When to close a damaged pipe: repair or sensor")
	rootCmd.Flags().String("line-close-policy", "sensor", "When to trip a damaged line: repair or sensor")
	rootCmd.Flags().Bool("kafka-enabled", false, "Enable Kafka output")
	rootCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.Flags().String("output-path", "", "Output directory for result files")
	rootCmd.Flags().String("output-format", "csv", "Output format: csv, json or parquet")
	rootCmd.Flags().Bool("postgres-enabled", false, "Persist results to Postgres")

	viper.BindPFlags(rootCmd.Flags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("examples")
		viper.SetConfigType("json")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
