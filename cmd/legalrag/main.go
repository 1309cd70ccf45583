package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"legalrag/internal/config"
	"legalrag/internal/logging"
	"legalrag/internal/server"
	"legalrag/internal/service"
	"legalrag/internal/tui"
)

type app struct {
	cfgPath string
	verbose bool

	cfg    *config.AppConfig
	logger *slog.Logger
	parts  *components
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "legalrag",
		Short: "Ask grounded questions about legal PDF documents",
		Long: `legalrag extracts text from a legal PDF, indexes it in a vector store and
answers questions using only the retrieved passages, citing source and page.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.parts != nil {
				return a.parts.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/legalrag/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.serveCmd(),
		a.ingestCmd(),
		a.askCmd(),
		a.clausesCmd(),
		a.summaryCmd(),
		a.clearCmd(),
		a.statsCmd(),
		a.chatCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	var err error
	if a.cfgPath == "" {
		a.cfg, _, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level := a.cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.logger, err = logging.New(os.Stderr, level, a.cfg.Log.Format)
	if err != nil {
		return err
	}
	a.parts, err = assemble(ctx, a.cfg, a.logger)
	return err
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := a.cfg.Server
			if addr != "" {
				sc.Addr = addr
			}
			srv := server.New(a.parts.agent, server.Config{
				UploadDir:      sc.UploadDir,
				MaxUploadBytes: int64(sc.MaxUploadMB) << 20,
				CORS:           sc.CORS,
			}, a.logger)
			httpSrv := &http.Server{
				Addr:         sc.Addr,
				Handler:      srv.Handler(),
				IdleTimeout:  time.Minute,
				ReadTimeout:  config.Seconds(sc.ReadTimeoutSecs),
				WriteTimeout: config.Seconds(sc.WriteTimeoutSecs),
			}
			return serve(cmd.Context(), httpSrv, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("Legal Document Analyzer API listening", slog.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.pdf>",
		Short: "Extract, chunk and index a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.parts.agent.ProcessDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %s: %d pages, %d words, %d chunks (chunk size %d)\n",
				info.Filename, info.PageCount, info.WordCount, info.ChunkCount, info.ChunkSize)
			return nil
		},
	}
}

func (a *app) askCmd() *cobra.Command {
	var (
		topK   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ans, err := a.parts.agent.AskQuestion(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, ans)
			}
			fmt.Fprint(cmd.OutOrStdout(), service.FormatAnswer(ans))
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of passages to retrieve (default agent.default_top_k)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer as JSON")
	return cmd
}

func (a *app) clausesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "clauses",
		Short: "Extract key clauses (payment, termination, liability, ...)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clauses, err := a.parts.agent.ExtractKeyClauses(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, clauses)
			}
			fmt.Fprint(cmd.OutOrStdout(), service.FormatClauses(clauses))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output clauses as JSON")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarise the indexed document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ans, err := a.parts.agent.DocumentSummary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ans.Answer)
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every passage from the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.parts.agent.ClearDatabase(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database cleared successfully!")
			return nil
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vector store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.parts.agent.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [file.pdf]",
		Short: "Interactive question answering in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := "Using the existing collection."
			if len(args) == 1 {
				info, err := a.parts.agent.ProcessDocument(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				summary = fmt.Sprintf("%s: %d pages, %d chunks", filepath.Base(info.Filename), info.PageCount, info.ChunkCount)
			}
			m := tui.New(a.parts.agent, summary, a.cfg.Agent.DefaultTopK, 0)
			_, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
