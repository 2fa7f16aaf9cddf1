package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"code-translator/internal/application"
	"code-translator/internal/config"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/usecase"
	"code-translator/internal/infra/logging"
)

type rootFlags struct {
	configPath string
	dev        bool
}

// runner opens the application for one command.
type runner func(ctx context.Context, fn func(p usecase.Pipeline) error) error

func newRootCmd() *cobra.Command {
	var rf rootFlags
	root := &cobra.Command{
		Use:          "ctl",
		Short:        "Translate functions between languages and verify them by execution",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&rf.configPath, "config", "config.yaml", "path to config yaml")
	root.PersistentFlags().BoolVar(&rf.dev, "dev", false, "development mode (missing config file falls back to defaults)")

	run := func(ctx context.Context, fn func(p usecase.Pipeline) error) error {
		cfg, err := config.Load(rf.configPath, rf.dev)
		if err != nil {
			return err
		}
		// keep stdout for results
		logger := logging.NewTo(os.Stderr, cfg.Log, cfg.Runtime.Dev)
		app, err := application.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(app.Pipeline)
	}

	root.AddCommand(
		newTranslateCmd(run, false),
		newTranslateCmd(run, true),
		newHistoryCmd(run),
	)
	return root
}

type translateFlags struct {
	from, to, fn string
	file         string
	inputs       string
	paramCount   int
	asJSON       bool
}

func (f translateFlags) input() (usecase.TranslateInput, error) {
	var (
		code []byte
		err  error
	)
	if f.file == "-" {
		code, err = io.ReadAll(os.Stdin)
	} else {
		code, err = os.ReadFile(f.file)
	}
	if err != nil {
		return usecase.TranslateInput{}, fmt.Errorf("read source: %w", err)
	}
	in := usecase.TranslateInput{SourceLang: f.from, TargetLang: f.to, FunctionName: f.fn, Code: string(code)}
	if f.inputs != "" {
		in.Inputs = []byte(f.inputs)
	}
	if f.paramCount >= 0 {
		n := f.paramCount
		in.ParamCount = &n
	}
	return in, nil
}

func newTranslateCmd(run runner, verify bool) *cobra.Command {
	var f translateFlags
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate one function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			return run(cmd.Context(), func(p usecase.Pipeline) error {
				var res *usecase.TranslateResult
				if verify {
					res, err = p.TranslateAndVerify(cmd.Context(), in)
				} else {
					res, err = p.Translate(cmd.Context(), in)
				}
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res, f.asJSON)
			})
		},
	}
	if verify {
		cmd.Use = "verify"
		cmd.Short = "Translate one function and check it against the source by running both"
		cmd.Flags().StringVar(&f.inputs, "inputs", "", `explicit test inputs as json, e.g. '[[12,18],[0,5]]'`)
	}
	cmd.Flags().StringVar(&f.from, "from", "", "source language")
	cmd.Flags().StringVar(&f.to, "to", "", "target language")
	cmd.Flags().StringVar(&f.fn, "func", "", "function name")
	cmd.Flags().StringVarP(&f.file, "file", "f", "-", "source file, - for stdin")
	cmd.Flags().IntVar(&f.paramCount, "param-count", -1, "expected number of parameters")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print json instead of text")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("func")
	return cmd
}

func printResult(w io.Writer, res *usecase.TranslateResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			JobID          string        `json:"job_id"`
			TranslatedCode string        `json:"translated_code"`
			Report         *model.Report `json:"report,omitempty"`
		}{res.JobID, res.TranslatedCode, res.Report})
	}
	fmt.Fprintf(w, "job %s\n\n%s\n", res.JobID, res.TranslatedCode)
	if res.Report == nil {
		return nil
	}
	fmt.Fprintf(w, "\npassed %d/%d (%.2f)\n", res.Report.Passed, res.Report.Total, res.Report.PassRate)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "args", "expected", "got", "ok"})
	table.SetAutoWrapText(false)
	for i, c := range res.Report.Cases {
		args := make([]string, len(c.Args))
		for j, a := range c.Args {
			args[j] = a.String()
		}
		table.Append([]string{strconv.Itoa(i), fmt.Sprint(args), c.Expected.String(), c.Got.String(), strconv.FormatBool(c.OK)})
	}
	table.Render()
	return nil
}

func newHistoryCmd(run runner) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), func(p usecase.Pipeline) error {
				jobs, err := p.History(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), jobs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 uses the configured default)")
	cmd.Flags().IntVar(&offset, "offset", 0, "jobs to skip")
	return cmd
}

func printHistory(w io.Writer, jobs []*model.Job) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"job", "created", "pair", "function", "verified", "pass rate"})
	for _, j := range jobs {
		rate := "-"
		if j.Report != nil {
			rate = fmt.Sprintf("%d/%d", j.Report.Passed, j.Report.Total)
		}
		table.Append([]string{
			j.ID,
			j.CreatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%s -> %s", j.SourceLang, j.TargetLang),
			j.FunctionName,
			strconv.FormatBool(j.Verified),
			rate,
		})
	}
	table.Render()
}
