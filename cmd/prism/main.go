package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/catalog"
	"github.com/mxl4r/Prism-LLM-frontend/internal/cli"
	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/conversation"
	"github.com/mxl4r/Prism-LLM-frontend/internal/gateway"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
	"github.com/mxl4r/Prism-LLM-frontend/internal/platform/logger"

	// Import providers to trigger init() registration
	_ "github.com/mxl4r/Prism-LLM-frontend/internal/llm/anthropic"
	_ "github.com/mxl4r/Prism-LLM-frontend/internal/llm/google"
	_ "github.com/mxl4r/Prism-LLM-frontend/internal/llm/openai"
)

const helpText = `Commands:
  /model <id>     switch model
  /models         list known models
  /attach <path>  attach an image to the next message
  /new            start a new conversation
  /quit           exit
Ctrl-C stops a reply that is still streaming.`

type repl struct {
	conv    *conversation.Conversation
	encoder *attachment.Encoder
	pending []llm.Attachment
	out     io.Writer
}

func main() {
	model := flag.String("model", "", "model to start with")
	noColor := flag.Bool("no-color", false, "disable ANSI colors")
	flag.Parse()

	if *noColor {
		cli.SetEnabled(false)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// keep the terminal for the conversation; only warnings are logged
	log, err := logger.New(logger.FromSettings("warn", "console"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	service := gateway.NewService(log, cfg.Router.RequestTimeout)
	defer func() { _ = service.Close() }()
	gateway.BootstrapProviders(service, cfg.Providers, log)

	start := llm.ModelID(*model)
	if start == "" {
		start = llm.ModelID(cfg.Router.DefaultModel)
	}
	if _, err := catalog.Resolve(start); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", cli.CrossMark(), err)
		os.Exit(1)
	}

	r := &repl{
		conv:    conversation.New(service, start, log),
		encoder: attachment.NewEncoder(cfg.Attachments.MaxBytes),
		out:     os.Stdout,
	}

	fmt.Fprintln(r.out, cli.Banner("Prism"))
	fmt.Fprintf(r.out, "%s model %s  (type /help for commands)\n\n", cli.Arrow(), cli.Style(string(start), cli.Cyan))

	if err := r.run(context.Background(), os.Stdin); err != nil {
		log.Error("terminal session ended", zap.Error(err))
		os.Exit(1)
	}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, cli.Style("you ", cli.Bold)+cli.Arrow()+" ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

// command handles a slash command and reports whether the session should end.
func (r *repl) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/models":
		for _, m := range catalog.Default() {
			marker := "  "
			if m.ID == r.conv.Model() {
				marker = cli.CheckMark() + " "
			}
			fmt.Fprintln(r.out, marker+m.String())
		}
	case "/model":
		m, err := catalog.Resolve(llm.ModelID(arg))
		if err != nil {
			r.fail(err)
			return false
		}
		r.conv.SetModel(m.ID)
		fmt.Fprintf(r.out, "%s switched to %s\n", cli.CheckMark(), cli.Style(string(m.ID), cli.Cyan))
	case "/attach":
		a, err := r.encoder.EncodeFile(ctx, arg)
		if err != nil {
			r.fail(err)
			return false
		}
		r.pending = append(r.pending, *a)
		fmt.Fprintf(r.out, "%s attached %s (%s)\n", cli.CheckMark(), arg, a.MIMEType)
	case "/new":
		if err := r.conv.Reset(); err != nil {
			r.fail(err)
			return false
		}
		r.pending = nil
		fmt.Fprintf(r.out, "%s new conversation\n", cli.CheckMark())
	default:
		r.fail(fmt.Errorf("unknown command %s", name))
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	attachments := r.pending
	r.pending = nil

	fmt.Fprint(r.out, cli.Style(string(r.conv.Model())+" ", cli.Purple)+cli.Arrow()+" ")

	printed := 0
	_, err := r.conv.Send(turnCtx, "", text, attachments, func(m conversation.Message) {
		if m.IsError {
			return
		}
		fmt.Fprint(r.out, m.Content[printed:])
		printed = len(m.Content)
	})
	fmt.Fprintln(r.out)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.out, cli.Style("(stopped)", cli.DimCode))
	default:
		r.fail(err)
	}
	fmt.Fprintln(r.out)
}

func (r *repl) fail(err error) {
	fmt.Fprintf(r.out, "%s %s\n", cli.CrossMark(), cli.Style(err.Error(), cli.Red))
}
