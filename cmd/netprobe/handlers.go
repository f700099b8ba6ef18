// handlers.go contains the implementations behind each cobra command.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/haasonsaas/netprobe/internal/agent"
	"github.com/haasonsaas/netprobe/internal/config"
	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/observability"
	"github.com/haasonsaas/netprobe/internal/server"
	"github.com/haasonsaas/netprobe/internal/sessions"
	"github.com/haasonsaas/netprobe/internal/startup"
	"github.com/haasonsaas/netprobe/internal/tools"
	"github.com/haasonsaas/netprobe/internal/tools/connectivity"
	"github.com/haasonsaas/netprobe/internal/tools/dnscheck"
	"github.com/haasonsaas/netprobe/internal/tools/ixpcheck"
	"github.com/haasonsaas/netprobe/internal/tools/macvendor"
	"github.com/haasonsaas/netprobe/internal/tools/mailcheck"
	"github.com/haasonsaas/netprobe/internal/tools/netinfo"
	"github.com/haasonsaas/netprobe/internal/tools/ntpcheck"
	"github.com/haasonsaas/netprobe/internal/tools/pentest"
	"github.com/haasonsaas/netprobe/internal/tools/webcheck"
	"github.com/haasonsaas/netprobe/internal/tools/whoischeck"
)

// engine bundles the shared runtime every command builds first.
type engine struct {
	cfg      *config.Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	promReg  *prometheus.Registry
	registry *tools.Registry
}

// buildEngine loads configuration, wires logging and metrics, applies
// timeout overrides, and registers every tool package.
func buildEngine(configPath, mode string, debug bool, extra ...tools.Option) (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := observability.ParseLevel(cfg.Logging.Level)
	if debug {
		level = observability.ParseLevel("debug")
	}
	logger := observability.NewLogger(observability.Options{
		Level:  level,
		Format: cfg.Logging.Format,
	})

	for name, secs := range cfg.Timeouts {
		envelope.SetTimeout(name, secs)
	}

	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)

	opts := append([]tools.Option{
		tools.WithMode(mode),
		tools.WithLogger(logger.Component("registry")),
		tools.WithMetrics(metrics),
	}, extra...)
	registry := tools.NewRegistry(opts...)
	registerAll(registry)

	return &engine{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		promReg:  promReg,
		registry: registry,
	}, nil
}

// registerAll wires every probe package into the registry. pentest
// registers itself only when a scanner binary is present.
func registerAll(r *tools.Registry) {
	netinfo.Register(r)
	connectivity.Register(r)
	dnscheck.Register(r)
	webcheck.Register(r)
	mailcheck.Register(r)
	ntpcheck.Register(r)
	ixpcheck.Register(r)
	whoischeck.Register(r)
	macvendor.Register(r)
	pentest.Register(r)
}

// =============================================================================
// interactive
// =============================================================================

type interactiveOptions struct {
	configPath   string
	model        string
	showThinking bool
	debug        bool
	skipStartup  bool
}

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	toolColor      = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
)

func runInteractive(ctx context.Context, opts interactiveOptions) error {
	eng, err := buildEngine(opts.configPath, "interactive", opts.debug)
	if err != nil {
		return err
	}
	if opts.model != "" {
		eng.cfg.LLM.Model = opts.model
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal; use run-tool or server for scripted access")
	}

	if !opts.skipStartup {
		report := startup.NewChecker(eng.cfg, eng.registry, eng.logger.Component("startup")).Run(ctx)
		printReport(report)
		if report.Status == "failed" {
			return fmt.Errorf("startup checks failed")
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := sessions.NewManager(
		sessions.WithCapacity(eng.cfg.Sessions.Capacity),
		sessions.WithIdleTimeout(eng.cfg.Sessions.IdleTimeout),
		sessions.WithLogger(eng.logger.Component("sessions")),
		sessions.WithMetrics(eng.metrics),
	)
	manager.StartSweeper(ctx, eng.cfg.Sessions.SweepEvery)

	client := agent.NewOllamaClient(eng.cfg.LLM.Host, eng.cfg.LLM.Model)
	orch := agent.New(eng.registry, client, eng.logger.Component("agent"))
	sess := manager.GetOrCreate("")

	fmt.Printf("netprobe %s - model %s. Type /help for commands, /quit to exit.\n",
		version, client.Model())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := handleSlashCommand(ctx, eng, line); quit {
				return nil
			}
			continue
		}

		resp := manager.ProcessMessage(ctx, sess, orch, line, opts.showThinking, eng.cfg.LLM.TurnTimeout)
		if opts.showThinking && resp.Thinking != "" {
			toolColor.Printf("[thinking] %s\n", resp.Thinking)
		}
		if len(resp.ToolsUsed) > 0 {
			toolColor.Printf("[tools: %s]\n", strings.Join(resp.ToolsUsed, ", "))
		}
		assistantColor.Println(resp.Content)
	}
}

// handleSlashCommand runs one /-command and reports whether to quit.
func handleSlashCommand(ctx context.Context, eng *engine, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println("/help           show this help")
		fmt.Println("/tools          list available tools")
		fmt.Println("/run NAME JSON  invoke a tool directly")
		fmt.Println("/quit           exit")
	case "/tools":
		for _, meta := range eng.registry.List() {
			desc := meta.Description
			if nl := strings.IndexByte(desc, '\n'); nl >= 0 {
				desc = desc[:nl]
			}
			fmt.Printf("  %-32s %s\n", meta.Name, desc)
		}
	case "/run":
		if len(fields) < 2 {
			errorColor.Println("usage: /run NAME {\"arg\": ...}")
			return false
		}
		args := map[string]any{}
		if rest := strings.TrimSpace(strings.TrimPrefix(line, "/run "+fields[1])); rest != "" {
			if err := json.Unmarshal([]byte(rest), &args); err != nil {
				errorColor.Printf("bad args: %v\n", err)
				return false
			}
		}
		res := eng.registry.Execute(ctx, fields[1], args)
		printEnvelope(res)
	default:
		errorColor.Printf("unknown command %s (try /help)\n", fields[0])
	}
	return false
}

// =============================================================================
// run-tool
// =============================================================================

func runTool(ctx context.Context, configPath, name, argsJSON string) error {
	eng, err := buildEngine(configPath, "cli", false)
	if err != nil {
		return err
	}

	if name == "" {
		for _, meta := range eng.registry.List() {
			desc := meta.Description
			if nl := strings.IndexByte(desc, '\n'); nl >= 0 {
				desc = desc[:nl]
			}
			fmt.Printf("%-32s %s\n", meta.Name, desc)
		}
		return nil
	}

	args := map[string]any{}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return fmt.Errorf("parse --args: %w", err)
	}

	res := eng.registry.Execute(ctx, name, args)
	printEnvelope(res)
	if !res.Success {
		return fmt.Errorf("%s failed: %s", name, res.ErrorMessage)
	}
	return nil
}

func printEnvelope(res *envelope.Result) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		errorColor.Printf("marshal result: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// =============================================================================
// selftest
// =============================================================================

func runSelftest(ctx context.Context, configPath string) error {
	eng, err := buildEngine(configPath, "cli", false)
	if err != nil {
		return err
	}

	report := startup.NewChecker(eng.cfg, eng.registry, eng.logger.Component("startup")).Run(ctx)
	printReport(report)

	// Schema validation: server construction compiles every exported
	// input schema.
	if _, err := server.New(eng.registry); err != nil {
		errorColor.Printf("schema validation: %v\n", err)
		return fmt.Errorf("selftest failed")
	}
	fmt.Printf("schemas: %d tools validated\n", len(eng.registry.Names()))

	families, err := eng.promReg.Gather()
	if err == nil {
		for _, fam := range families {
			fmt.Printf("metric %s: %d series\n", fam.GetName(), len(fam.GetMetric()))
		}
	}

	if report.Status == "failed" {
		return fmt.Errorf("selftest failed")
	}
	return nil
}

func printReport(report *startup.Report) {
	for _, p := range report.Phases {
		mark := color.GreenString("ok")
		if !p.OK {
			mark = color.RedString("fail")
			if !p.Fatal {
				mark = color.YellowString("warn")
			}
		}
		fmt.Printf("[%s] %s\n", mark, p.Name)
		for _, d := range p.Details {
			fmt.Printf("      %s\n", d)
		}
	}
	fmt.Printf("status: %s\n", report.Status)
}

// =============================================================================
// server
// =============================================================================

func runServer(ctx context.Context, configPath string) error {
	eng, err := buildEngine(configPath, "conversational", false,
		tools.WithForcedSilent(),
		tools.WithSanitizer(server.Sanitize),
	)
	if err != nil {
		return err
	}

	var opts []server.ServerOption
	opts = append(opts,
		server.WithServerLogger(eng.logger.Component("server")),
		server.WithServerMetrics(eng.metrics),
	)
	if eng.cfg.Server.AuthEnabled {
		opts = append(opts, server.WithAuth(eng.cfg.Server.APIKey))
	}

	srv, err := server.New(eng.registry, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.logger.Info("protocol server listening on stdio",
		"tools", len(eng.registry.Names()),
		"auth", eng.cfg.Server.AuthEnabled)

	start := time.Now()
	err = srv.Serve(ctx, os.Stdin, os.Stdout)
	eng.logger.Info("protocol server stopped", "uptime", time.Since(start).String())
	if err == context.Canceled {
		return nil
	}
	return err
}
