package main

// Run one generation against the configured provider:
//   go run ./cmd/reflect --type card-interpretation --data '{"cardName":"The Star"}'
//   go run ./cmd/reflect --type compatibility-report --file ./pair.json

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reflection-backend/internal/bootstrap"
	"reflection-backend/internal/llm"
	"reflection-backend/internal/reflection"
	"reflection-backend/internal/shared/config"
	"reflection-backend/internal/shared/telemetry"
)

type options struct {
	kind               string
	data               string
	file               string
	provider           string
	model              string
	structuredFallback bool
	meta               bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "reflect",
		Short:         "Send a single reflection request through the router",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.kind, "type", "t", "", "request type (see the kinds subcommand)")
	f.StringVarP(&opts.data, "data", "d", "", "inline JSON payload")
	f.StringVarP(&opts.file, "file", "f", "", "path to a JSON payload, - for stdin")
	f.StringVar(&opts.provider, "provider", "", "override LLM_PROVIDER")
	f.StringVar(&opts.model, "model", "", "override LLM_MODEL")
	f.BoolVar(&opts.structuredFallback, "structured-fallback", false, "allow a fallback for structured-reflection")
	f.BoolVar(&opts.meta, "meta", false, "print attempts and fallback reason to stderr")
	_ = cmd.MarkFlagRequired("type")
	cmd.MarkFlagsMutuallyExclusive("data", "file")

	cmd.AddCommand(&cobra.Command{
		Use:   "kinds",
		Short: "List supported request types",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, k := range reflection.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	})
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel)
	defer telemetry.Sync()
	if opts.provider != "" {
		cfg.LLMProvider = strings.ToLower(opts.provider)
	}
	if opts.model != "" {
		cfg.LLMModel = opts.model
	}

	data, err := readPayload(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}

	router := reflection.NewRouter(
		llm.NewLazy(bootstrap.ClientBuilder(cfg)),
		reflection.Options{
			Policy:                       cfg.RetryPolicy(),
			StructuredReflectionFallback: cfg.StructuredFallback || opts.structuredFallback,
		},
	)
	res, err := router.Route(cmd.Context(), opts.kind, data)
	if err != nil {
		return err
	}

	if opts.meta {
		fmt.Fprintf(cmd.ErrOrStderr(), "kind=%s attempts=%d fallback=%t reason=%s\n",
			res.Kind, res.Attempts, res.Fallback, res.FallbackReason)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Response)
}

func readPayload(stdin io.Reader, opts *options) (json.RawMessage, error) {
	var raw []byte
	switch {
	case opts.file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case opts.file != "":
		b, err := os.ReadFile(opts.file)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		raw = b
	case opts.data != "":
		raw = []byte(opts.data)
	default:
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}
