package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chat-llm/internal/config"
	"chat-llm/internal/domain"
	"chat-llm/internal/llm"
	"chat-llm/internal/render"
	"chat-llm/internal/repository"
	"chat-llm/internal/service"
)

const cliUserID = "cli"

var (
	userLabel      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	assistantLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	errorLabel     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimText        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type options struct {
	model   string
	baseURL string
	style   string
	width   int
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "cli_chat",
		Short: "chat with the configured model from the terminal",
		Long: `Interactive terminal chat that streams the model's answer as it arrives.

Commands inside the chat:
  /new   start a new chat (only after sending a message)
  /exit  quit`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.model, "model", "", "model name (default from LLM_MODEL)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "completions base URL (default from LLM_BASE_URL)")
	cmd.Flags().StringVar(&opts.style, "style", "monokai", "chroma style for code blocks")
	cmd.Flags().IntVar(&opts.width, "width", 100, "max width of rendered code blocks")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stdout")
	return cmd
}

func run(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if opts.model != "" {
		cfg.LLMModel = opts.model
	}
	if opts.baseURL != "" {
		cfg.LLMBaseURL = opts.baseURL
	}

	logger := zap.NewNop()
	if opts.verbose {
		logger = zap.NewExample()
	}
	defer logger.Sync()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger,
		llm.WithSampling(cfg.LLMTemperature, cfg.LLMMaxTokens),
	)
	chatSvc := service.NewChatService(logger, repository.NewMemorySessionRepository(), llmClient, cfg.DefaultSessionTitle)
	renderer := render.NewTerminalRenderer(opts.style, opts.width)

	session, err := chatSvc.CreateSession(ctx, cliUserID)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, dimText.Render(fmt.Sprintf("model %s · /new for a new chat · /exit to quit", cfg.LLMModel)))
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, userLabel.Render("you › "))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/new":
			next, err := chatSvc.CreateSession(ctx, cliUserID)
			if errors.Is(err, service.ErrCurrentSessionEmpty) {
				fmt.Fprintln(out, errorLabel.Render("send a message in the current chat first"))
				continue
			}
			if err != nil {
				return err
			}
			session = next
			fmt.Fprintln(out, dimText.Render("new chat started"))
			continue
		}

		if err := sendAndPrint(ctx, chatSvc, renderer, session.ID, line, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(out, errorLabel.Render("error: ")+err.Error())
			var cfgErr *llm.ConfigurationError
			if errors.As(err, &cfgErr) {
				return err
			}
		}
	}
}

// sendAndPrint escribe los fragmentos a medida que llegan y al final vuelve a
// dibujar los bloques de codigo resaltados.
func sendAndPrint(ctx context.Context, chatSvc *service.ChatService, renderer *render.TerminalRenderer, sessionID, content string, out io.Writer) error {
	fmt.Fprint(out, assistantLabel.Render("assistant › "))
	reply, err := chatSvc.SendMessage(ctx, cliUserID, sessionID, content, service.SendCallbacks{
		OnDelta: func(fragment, _ string) {
			fmt.Fprint(out, fragment)
		},
	})
	fmt.Fprintln(out)
	if err != nil {
		return err
	}

	var code []domain.ContentSegment
	for _, seg := range service.Segment(reply.Content) {
		if seg.Kind == domain.SegmentCode {
			code = append(code, seg)
		}
	}
	if len(code) > 0 {
		fmt.Fprint(out, renderer.Render(code))
	}
	return nil
}
