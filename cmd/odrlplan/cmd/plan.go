package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/odrlplan/odrlplan/internal/adapter/outbound/celfn"
	"github.com/odrlplan/odrlplan/internal/adapter/outbound/history"
	"github.com/odrlplan/odrlplan/internal/adapter/outbound/planaudit"
	"github.com/odrlplan/odrlplan/internal/adapter/outbound/policydoc"
	"github.com/odrlplan/odrlplan/internal/adapter/outbound/regfile"
	"github.com/odrlplan/odrlplan/internal/adapter/outbound/render"
	"github.com/odrlplan/odrlplan/internal/config"
	"github.com/odrlplan/odrlplan/internal/domain/odrl"
	"github.com/odrlplan/odrlplan/internal/domain/planner"
	"github.com/odrlplan/odrlplan/internal/metrics"
	"github.com/odrlplan/odrlplan/internal/service"
	"github.com/odrlplan/odrlplan/internal/telemetry"
)

var (
	policyPath   string
	outputFormat string
	diagnostics  bool
	watch        bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build an evaluation plan for a policy document",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&policyPath, "policy", "", "path to the ODRL policy YAML document")
	planCmd.Flags().StringVar(&outputFormat, "format", "json", "output format: json or yaml")
	planCmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "print flattened filtering reasons instead of the full plan")
	planCmd.Flags().BoolVar(&watch, "watch", false, "re-plan whenever the policy document changes")
	_ = planCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("plan: load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	svc, cleanup, err := buildPlanService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := planOnce(cmd, svc); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return watchAndRePlan(cmd, svc, logger)
}

func planOnce(cmd *cobra.Command, svc *service.PlanService) error {
	raw, err := os.ReadFile(policyPath)
	if err != nil {
		return fmt.Errorf("plan: read policy: %w", err)
	}
	policy, err := policydoc.Load(policyPath)
	if err != nil {
		return fmt.Errorf("plan: parse policy: %w", err)
	}

	run, err := svc.PlanCached(context.Background(), raw, policy)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	if diagnostics {
		for _, line := range render.Diagnostics(run.Plan) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	}

	switch outputFormat {
	case "yaml":
		return render.WriteYAML(cmd.OutOrStdout(), run.Plan)
	default:
		return render.WriteJSON(cmd.OutOrStdout(), run.Plan)
	}
}

func watchAndRePlan(cmd *cobra.Command, svc *service.PlanService, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("plan: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(policyPath); err != nil {
		return fmt.Errorf("plan: watch %s: %w", policyPath, err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := planOnce(cmd, svc); err != nil {
				logger.Error("re-plan failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

func buildPlanService(cfg *config.PlannerConfig, logger *slog.Logger) (*service.PlanService, func(), error) {
	validator, err := celfn.NewRuleValidator(cfg.RuleValidator.InScopeExpr, cfg.RuleValidator.BoundedExpr)
	if err != nil {
		return nil, nil, fmt.Errorf("build: rule validator: %w", err)
	}

	builder := planner.NewBuilder(odrl.Scope(cfg.Scope)).WithRuleValidator(validator)

	doc, err := regfile.Load(cfg.Registrations)
	if err != nil {
		return nil, nil, fmt.Errorf("build: load registrations: %w", err)
	}
	if err := regfile.Apply(builder, doc); err != nil {
		return nil, nil, fmt.Errorf("build: apply registrations: %w", err)
	}

	p, err := builder.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}

	opts := []service.Option{service.WithLogger(logger)}
	var closers []func()

	reg := prometheus.NewRegistry()
	opts = append(opts, service.WithMetrics(metrics.New(reg)))

	if cfg.Cache.Enabled {
		opts = append(opts, service.WithCache(service.NewPlanCache(cfg.Cache.MaxSize)))
	}

	if cfg.Audit.Enabled {
		sink, err := planaudit.NewFileSink(cfg.Audit.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("build: audit sink: %w", err)
		}
		opts = append(opts, service.WithAuditSink(sink))
		closers = append(closers, func() { sink.Close() })
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("build: history store: %w", err)
		}
		opts = append(opts, service.WithHistorySink(service.HistoryStore{Store: store}))
		closers = append(closers, func() { store.Close() })
	}

	tp, err := telemetry.NewTracerProvider(os.Stderr, "odrlplan")
	if err == nil {
		opts = append(opts, service.WithTracer(telemetry.Tracer(tp)))
		closers = append(closers, func() { _ = telemetry.Shutdown(context.Background(), tp) })
	}

	svc := service.NewPlanService(p, odrl.Scope(cfg.Scope), opts...)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return svc, cleanup, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
