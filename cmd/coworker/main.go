// Coworker simulation entry point.
//
// Usage:
//
//	coworker repl                        # interactive session against a persona
//	coworker repl --config coworker.yaml # with a config file
//	coworker personas                    # list available personas
//	coworker sessions                    # list stored sessions
//	coworker version                     # show version information
//
// The repl command wires the full pipeline (store, retrieval, NPC, Director)
// with an offline canned generation gateway, so it runs without any LLM
// provider credentials. Swap the gateway for a real provider adapter to go
// beyond canned replies.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/edtronaut/coworker"
	"github.com/edtronaut/coworker/config"
	"github.com/edtronaut/coworker/internal/telemetry"
	"github.com/edtronaut/coworker/orchestrator"
	"github.com/edtronaut/coworker/persona"
	"github.com/edtronaut/coworker/store"
	"github.com/edtronaut/coworker/types"
)

// Build-time metadata, injected via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "repl":
		runREPL(os.Args[2:])
	case "personas":
		runPersonas(os.Args[2:])
	case "sessions":
		runSessions(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(args []string, name string) *config.Config {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func buildRegistry(cfg *config.Config, logger *zap.Logger) *persona.Registry {
	var (
		registry *persona.Registry
		err      error
	)
	if cfg.PersonaFile != "" {
		registry, err = persona.NewRegistryFromFile(cfg.PersonaFile, logger)
	} else {
		registry, err = persona.NewBuiltinRegistry(logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build persona registry: %v\n", err)
		os.Exit(1)
	}
	return registry
}

func runREPL(args []string) {
	cfg := loadConfig(args, "repl")

	logger, err := cfg.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting coworker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(ctx)
	}()

	st, err := store.New(cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open conversation store", zap.Error(err))
	}
	defer st.Close()

	registry := buildRegistry(cfg, logger)

	orch, err := coworker.New(newCannedGateway(),
		coworker.WithConfig(cfg),
		coworker.WithStore(st),
		coworker.WithRegistry(registry),
		coworker.WithLogger(logger),
		coworker.WithMetrics(cfg.MetricsNamespace, prometheus.DefaultRegisterer),
	)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	personaID := "gucci_chro"
	sessionID := uuid.NewString()

	fmt.Printf("coworker %s. Talking to %q, session %s.\n", Version, personaID, sessionID)
	fmt.Println(`Commands: /persona <id>, /reset, /sessions, /quit.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := replCommand(orch, registry, line, &personaID, &sessionID); quit {
				break
			}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		result, err := orch.Advance(ctx, sessionID, personaID, line)
		cancel()
		if err != nil {
			fmt.Printf("error [%s]: %v\n", types.GetErrorCode(err), err)
			continue
		}

		label := string(result.Turn.Speaker)
		if result.Turn.Speaker == types.SpeakerNPC {
			label = result.Turn.NPCID
		}
		fmt.Printf("[%s] %s\n", label, result.Turn.Content)
		if result.Hint != nil {
			fmt.Printf("  hint (%s): %s\n", result.Hint.Severity, result.Hint.Content)
		}
		if len(result.SafetyFlags) > 0 {
			fmt.Printf("  flags: %s\n", strings.Join(result.SafetyFlags, ", "))
		}
	}
}

func replCommand(orch *orchestrator.Orchestrator, registry *persona.Registry, line string, personaID, sessionID *string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/persona":
		if len(fields) < 2 {
			for _, d := range registry.Descriptors() {
				fmt.Printf("  %s: %s (%s)\n", d.ID, d.DisplayName, d.Role)
			}
			return false
		}
		if _, err := registry.Resolve(fields[1]); err != nil {
			fmt.Printf("unknown persona %q\n", fields[1])
			return false
		}
		*personaID = fields[1]
		*sessionID = uuid.NewString()
		fmt.Printf("switched to %q, new session %s\n", *personaID, *sessionID)
	case "/reset":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		deleted, err := orch.Reset(ctx, *sessionID)
		cancel()
		if err != nil {
			fmt.Printf("reset failed: %v\n", err)
		} else if deleted {
			fmt.Println("session reset")
		} else {
			fmt.Println("nothing to reset")
		}
	case "/sessions":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		summaries, err := orch.Sessions(ctx)
		cancel()
		if err != nil {
			fmt.Printf("listing failed: %v\n", err)
			return false
		}
		for _, s := range summaries {
			fmt.Printf("  %s persona=%s status=%s turns=%d\n",
				s.SessionID, s.PersonaID, s.Status, s.TurnCount)
		}
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return false
}

func runPersonas(args []string) {
	cfg := loadConfig(args, "personas")
	registry := buildRegistry(cfg, zap.NewNop())
	for _, d := range registry.Descriptors() {
		fmt.Printf("%s\t%s\t%s, %s\n", d.ID, d.DisplayName, d.Role, d.Company)
	}
}

func runSessions(args []string) {
	cfg := loadConfig(args, "sessions")
	st, err := store.New(cfg.Store, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open conversation store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	summaries, err := st.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list sessions: %v\n", err)
		os.Exit(1)
	}
	for _, s := range summaries {
		fmt.Printf("%s\t%s\t%s\t%d turns\t%s\n",
			s.SessionID, s.PersonaID, s.Status, s.TurnCount,
			s.UpdatedAt.Format(time.RFC3339))
	}
}

func printVersion() {
	fmt.Printf("coworker %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`coworker - workplace conversation simulator

Usage:
  coworker <command> [options]

Commands:
  repl      Start an interactive session
  personas  List available personas
  sessions  List stored sessions
  version   Show version information
  help      Show this help message

Options:
  --config <path>   Path to configuration file (YAML)`)
}
