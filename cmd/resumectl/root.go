package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"resumegen-api/internal/bootstrap"
	"resumegen-api/internal/extract"
	"resumegen-api/internal/guard"
	"resumegen-api/internal/llm"
	"resumegen-api/internal/orchestrator"
	"resumegen-api/internal/prompts"
	"resumegen-api/internal/shared/config"
)

// clientFactory is swapped in tests to avoid real providers.
type clientFactory func(cfg config.Config) (llm.Client, error)

func newRootCmd(cfg config.Config) *cobra.Command {
	return newRootCmdWith(cfg, bootstrap.NewLLMClient)
}

func newRootCmdWith(cfg config.Config, newClient clientFactory) *cobra.Command {
	root := &cobra.Command{
		Use:          "resumectl",
		Short:        "Inspect prompts, guard decisions and generations offline",
		SilenceUsage: true,
	}
	root.AddCommand(
		newTemplatesCmd(),
		newExtractCmd(),
		newGuardCmd(),
		newPromptCmd(),
		newGenerateCmd(cfg, newClient),
	)
	return root
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List resume templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, t := range prompts.Templates() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Description)
			}
			return w.Flush()
		},
	}
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text extracted from a PDF, DOCX or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newGuardCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "guard [text]",
		Short: "Run the input guard over text from an argument or stdin",
		Long: `Run the input guard the API applies before any model call.

Kinds:
  chat    chat message (5000 characters)
  job     job posting (15000 characters)
  source  career input source (30000 characters)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := argOrStdin(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			var (
				out string
				res guard.ValidationResult
			)
			switch kind {
			case "chat":
				out, res = guard.SanitizeAndValidateChatMessage(text)
			case "job":
				out, res = guard.SanitizeAndValidateJobPosting(text)
			case "source":
				var sources []guard.InputSource
				sources, res = guard.SanitizeAndValidateInputSources([]guard.InputSource{{Type: "text", Content: text}})
				out = sources[0].Content
			default:
				return errors.Errorf("unknown kind %q", kind)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				guard.ValidationResult
				Sanitized string `json:"sanitized,omitempty"`
			}{res, sanitizedIfValid(out, res)})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "chat", "Input kind: chat, job or source")
	return cmd
}

func sanitizedIfValid(out string, res guard.ValidationResult) string {
	if !res.Valid {
		return ""
	}
	return out
}

type generateFlags struct {
	inputs   []string
	job      string
	template string
	mode     string
}

func (f generateFlags) sources(ctx context.Context) ([]guard.InputSource, string, error) {
	if len(f.inputs) == 0 {
		return nil, "", errors.New("at least one --input is required")
	}
	sources := make([]guard.InputSource, 0, len(f.inputs))
	for _, path := range f.inputs {
		text, err := readSource(ctx, path)
		if err != nil {
			return nil, "", err
		}
		sources = append(sources, guard.InputSource{Type: "upload", Filename: filepath.Base(path), Content: text})
	}
	sources, res := guard.SanitizeAndValidateInputSources(sources)
	if !res.Valid {
		return nil, "", errors.Errorf("input rejected: %s", res.Error)
	}

	job := ""
	if f.job != "" {
		raw, err := os.ReadFile(f.job)
		if err != nil {
			return nil, "", errors.Wrap(err, "read job posting")
		}
		var jres guard.ValidationResult
		job, jres = guard.SanitizeAndValidateJobPosting(string(raw))
		if !jres.Valid {
			return nil, "", errors.Errorf("job posting rejected: %s", jres.Error)
		}
	}
	return sources, job, nil
}

func (f *generateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.inputs, "input", nil, "Career input file (repeatable; pdf, docx or text)")
	cmd.Flags().StringVar(&f.job, "job", "", "Job posting file for tune mode")
	cmd.Flags().StringVar(&f.template, "template", "modern", "Template id")
	cmd.Flags().StringVar(&f.mode, "mode", "create", "Generation mode: create or tune")
}

func newPromptCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the composed generation prompt without calling a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources, job, err := f.sources(cmd.Context())
			if err != nil {
				return err
			}
			p := prompts.ComposeGenerate(prompts.GenerateContext{
				Mode:       prompts.NormalizeMode(f.mode),
				TemplateID: prompts.NormalizeTemplateID(f.template),
				InputText:  orchestrator.JoinSources(sources),
				JobPosting: job,
			})
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "=== system ===\n%s\n\n=== user ===\n%s\n", p.System, p.User)
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func newGenerateCmd(cfg config.Config, newClient clientFactory) *cobra.Command {
	var (
		f   generateFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate resume data with the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources, job, err := f.sources(cmd.Context())
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return errors.Wrap(err, "build llm client")
			}
			orch := orchestrator.New(client, orchestrator.Options{MaxTokens: cfg.LLMMaxTokens})
			data, err := orch.Generate(cmd.Context(), orchestrator.GenerateInput{
				Mode:         prompts.NormalizeMode(f.mode),
				InputSources: sources,
				TemplateID:   f.template,
				JobPosting:   job,
			})
			if err != nil {
				return errors.Wrapf(err, "generate (%s)", orchestrator.KindOf(err))
			}
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), data)
			}
			fh, err := os.Create(out)
			if err != nil {
				return errors.Wrap(err, "create output")
			}
			defer fh.Close()
			if err := writeJSON(fh, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Write resume JSON to this file instead of stdout")
	return cmd
}

func readSource(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	name := filepath.Base(path)
	mime := extract.DetectMimeType(data, "", name)
	if !extract.Supported(mime) {
		return "", errors.Errorf("%s: unsupported file type %s", name, mime)
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, mime, name)
	if err != nil {
		return "", errors.Wrapf(err, "extract %s", name)
	}
	return text, nil
}

func argOrStdin(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(err, "read stdin")
	}
	return strings.TrimRight(string(raw), "\n"), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
