package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	chromem "github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prodassist/prodassist/plugin/llm"
	mcpplugin "github.com/prodassist/prodassist/plugin/mcp"
	"github.com/prodassist/prodassist/plugin/tools"
	"github.com/prodassist/prodassist/plugin/vectorstore"
	"github.com/prodassist/prodassist/server"
	apiv1 "github.com/prodassist/prodassist/server/router/api/v1"
	"github.com/prodassist/prodassist/server/profile"
	"github.com/prodassist/prodassist/store"
	"github.com/prodassist/prodassist/store/db"
	"github.com/prodassist/prodassist/workflow"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "prodassist",
	Short: "Agentic product assistant server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd.Context())
	},
}

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Serve the hybrid-search tools over MCP stdio",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMCPServer()
	},
}

func init() {
	// .env values become plain env vars before viper reads them.
	_ = godotenv.Load()

	viper.SetEnvPrefix("prodassist")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	profile.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	flags.String("addr", "", "binding address for the server")
	flags.Int("port", 8230, "binding port for the server")
	flags.String("data", "", "directory for local state")
	flags.String("driver", "sqlite", "conversation store driver: sqlite, mysql or postgres")
	flags.String("dsn", "", "database connection string")
	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(mcpServerCmd)
}

func runServer(ctx context.Context) error {
	prof, err := profile.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	setupLogger(prof)
	slog.Info("starting assistant", "version", version, "profile", prof.String())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vs, err := vectorstore.New(prof.Data, embeddingFunc(prof))
	if err != nil {
		return err
	}

	driver, err := storeDriver(prof)
	if err != nil {
		return err
	}
	st := store.New(driver)
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	oracle, err := llm.New(ctx, llm.Config{
		Provider: prof.LLMProvider,
		Model:    prof.LLMModel,
		APIKey:   prof.LLMAPIKey,
		BaseURL:  prof.LLMBaseURL,
	})
	if err != nil {
		return err
	}

	invoker, closeTools, err := toolInvoker(ctx, prof, vs)
	if err != nil {
		return err
	}
	defer closeTools()

	cfg := workflow.DefaultConfig()
	cfg.MaxRewrites = prof.MaxRewrites
	cfg.AnswerMaxChars = prof.AnswerMaxChars
	cfg.RewriteMaxChars = prof.RewriteMaxChars

	wf, err := workflow.New(cfg, oracle, invoker,
		workflow.WithCheckpointer(store.NewCheckpointer(st)),
		workflow.WithRecorder(store.NewInteractionStore(vs)),
	)
	if err != nil {
		return err
	}

	srv := server.NewServer(prof, apiv1.NewAPIV1Service(wf, st))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		srv.Shutdown(context.Background())
		return nil
	case err := <-errCh:
		return err
	}
}

func runMCPServer() error {
	prof, err := profile.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	setupLogger(prof)

	vs, err := vectorstore.New(prof.Data, embeddingFunc(prof))
	if err != nil {
		return err
	}
	web, err := tools.NewWebSearchTool()
	if err != nil {
		return err
	}
	return mcpplugin.ServeStdio(mcpplugin.NewServer(tools.NewProductInfoTool(vs), web, version))
}

// toolInvoker returns the retrieval/search boundary in either in-process or
// MCP form, plus a cleanup func.
func toolInvoker(ctx context.Context, prof *profile.Profile, vs *vectorstore.Store) (workflow.ToolInvoker, func(), error) {
	if prof.ToolTransport == "mcp" {
		parts := strings.Fields(prof.MCPCommand)
		cl, err := mcpplugin.NewStdioClient(ctx, parts[0], parts[1:]...)
		if err != nil {
			return nil, nil, err
		}
		return cl, func() { _ = cl.Close() }, nil
	}
	web, err := tools.NewWebSearchTool()
	if err != nil {
		return nil, nil, err
	}
	return tools.NewInvoker(tools.NewProductInfoTool(vs), web), func() {}, nil
}

func embeddingFunc(prof *profile.Profile) chromem.EmbeddingFunc {
	baseURL := prof.EmbeddingBaseURL
	if baseURL == "" {
		baseURL = chromem.BaseURLOpenAI
	}
	return chromem.NewEmbeddingFuncOpenAICompat(baseURL, prof.EmbeddingAPIKey, prof.EmbeddingModel, nil)
}

func storeDriver(prof *profile.Profile) (store.Driver, error) {
	if prof.Driver == "" {
		slog.Warn("no database driver configured, conversation history is in-memory only")
		return store.NewMemoryDriver(), nil
	}
	return db.NewDriver(prof.Driver, prof.DSN)
}

func setupLogger(prof *profile.Profile) {
	level := slog.LevelInfo
	if prof.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
