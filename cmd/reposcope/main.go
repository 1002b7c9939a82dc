// Package main is the entry point for the reposcope CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/vinayprograms/agentkit/credentials"
	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/policy"
	"github.com/vinayprograms/agentkit/telemetry"
	"github.com/vinayprograms/agentkit/tools"

	"github.com/vinayprograms/reposcope/internal/config"
	"github.com/vinayprograms/reposcope/internal/picker"
	"github.com/vinayprograms/reposcope/internal/recon"
	"github.com/vinayprograms/reposcope/internal/repomap"
	"github.com/vinayprograms/reposcope/internal/rerrors"
	"github.com/vinayprograms/reposcope/internal/resolver"
	"github.com/vinayprograms/reposcope/internal/session"
	"github.com/vinayprograms/reposcope/internal/supervisor"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// globalCreds holds loaded credentials (file > env fallback happens in GetAPIKey)
var globalCreds *credentials.Credentials

func init() {
	if creds, _, err := credentials.Load(); err == nil && creds != nil {
		globalCreds = creds
	}
	_ = godotenv.Load()
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("reposcope"),
		kong.Description("Delegate exploration of an external repository to a sandboxed session."),
		kongVars(),
	)
	if err := kctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(rerrors.ExitCode(err))
	}
}

// loadConfig reads the config file, falling back to reposcope.toml in
// the working directory and then to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.LoadFile("reposcope.toml")
	if os.IsNotExist(err) {
		return config.Default(), nil
	}
	return cfg, err
}

// newMapClient builds the exec-backed mapping tool client from config.
func newMapClient(cfg *config.Config) *repomap.ExecClient {
	opts := []repomap.Option{}
	if cfg.Repomap.Binary != "" {
		opts = append(opts, repomap.WithBinary(cfg.Repomap.Binary))
	}
	if d, err := time.ParseDuration(cfg.Repomap.Timeout); err == nil && d > 0 {
		opts = append(opts, repomap.WithTimeout(d))
	}
	return repomap.NewExecClient(opts...)
}

// newProvider creates the LLM provider from config and credentials.
func newProvider(cfg *config.Config) (llm.Provider, error) {
	providerName := cfg.LLM.Provider
	if providerName == "" {
		providerName = llm.InferProviderFromModel(cfg.LLM.Model)
	}
	if providerName == "" && cfg.LLM.Model == "" {
		return nil, rerrors.WithRemediation(rerrors.EUsage,
			"LLM model not configured",
			"set [llm] model in reposcope.toml")
	}

	apiKey := cfg.GetAPIKey()
	if apiKey == "" && globalCreds != nil {
		apiKey = globalCreds.GetAPIKey(providerName)
	}

	return llm.NewProvider(llm.ProviderConfig{
		Provider:    providerName,
		Model:       cfg.LLM.Model,
		APIKey:      apiKey,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		RetryConfig: parseRetryConfig(cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff),
	})
}

// newTelemetry creates the telemetry exporter from config.
func newTelemetry(cfg *config.Config) telemetry.Exporter {
	if cfg.Telemetry.Enabled {
		if telem, err := telemetry.NewExporter(cfg.Telemetry.Protocol, cfg.Telemetry.Endpoint); err == nil {
			return telem
		}
	}
	return telemetry.NewNoopExporter()
}

// Run executes the reconnaissance command.
func (c *RunCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return rerrors.Wrap(rerrors.EUsage, "cannot load config", err)
	}
	if c.MaxTurns > 0 {
		cfg.Recon.MaxTurns = c.MaxTurns
	}
	if c.MaxToolCalls > 0 {
		cfg.Recon.MaxToolCalls = c.MaxToolCalls
	}

	telem := newTelemetry(cfg)
	defer telem.Close()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	var ui resolver.UI
	if !c.NoInput {
		ui = picker.New()
	}

	var onStatus func(supervisor.Details)
	if !c.Quiet && !c.JSON {
		onStatus = renderStatus
	}

	runner := recon.NewRunner(recon.RunnerConfig{
		Resolver: resolver.New(newMapClient(cfg), ui),
		NewSession: func(repo *resolver.ResolvedRepo, systemPrompt string, gate session.ToolGate) session.Session {
			pol := policy.New()
			pol.Workspace = repo.ClonePath
			return session.NewLLMSession(session.LLMSessionConfig{
				Provider:     provider,
				Registry:     tools.NewRegistry(pol),
				SystemPrompt: systemPrompt,
				Gate:         gate,
			})
		},
		Config:   cfg,
		OnStatus: onStatus,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, runErr := runner.Run(ctx, recon.Input{Task: c.Task, Repo: c.Repo, Cwd: c.Cwd})

	if c.JSON {
		return emitJSON(out, runErr)
	}
	fmt.Print(renderResult(out, runErr))
	return runErr
}

// Run executes the resolve-only command.
func (c *ResolveCmd) Run() error {
	if c.Task == "" && c.Repo == "" {
		return rerrors.New(rerrors.EUsage, "give a task or a --repo hint")
	}

	cfg, err := loadConfig(c.Config)
	if err != nil {
		return rerrors.Wrap(rerrors.EUsage, "cannot load config", err)
	}

	var ui resolver.UI
	if !c.NoInput {
		ui = picker.New()
	}

	hint := c.Repo
	if hint != "" {
		hint = resolver.NormalizeRepoArg(hint)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolved, err := resolver.New(newMapClient(cfg), ui).Resolve(ctx, c.Task, hint)
	if err != nil {
		return err
	}

	if c.JSON {
		data, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Print(renderResolved(resolved))
	return nil
}

// Run prints version information.
func (c *VersionCmd) Run() error {
	fmt.Printf("reposcope %s (commit %s, built %s)\n", version, commit, buildTime)
	return nil
}

// jsonResult is the machine-readable run outcome.
type jsonResult struct {
	RunID     string                 `json:"run_id"`
	FinalText string                 `json:"final_text,omitempty"`
	Repo      *resolver.ResolvedRepo `json:"repo,omitempty"`
	Details   supervisor.Details     `json:"details"`
	Error     string                 `json:"error,omitempty"`
	Remedy    string                 `json:"remediation,omitempty"`
}

func emitJSON(out recon.Output, runErr error) error {
	res := jsonResult{
		RunID:     out.RunID,
		FinalText: out.FinalText,
		Repo:      out.Repo,
		Details:   out.Details,
	}
	if runErr != nil {
		res.Error = runErr.Error()
		res.Remedy = rerrors.GetRemediation(runErr)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return runErr
}

func parseRetryConfig(maxRetries int, backoffStr string) llm.RetryConfig {
	cfg := llm.RetryConfig{
		MaxRetries: maxRetries,
	}
	if backoffStr != "" {
		if d, err := time.ParseDuration(backoffStr); err == nil {
			cfg.MaxBackoff = d
		}
	}
	return cfg
}
