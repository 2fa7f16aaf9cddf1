package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/usecase"
)

func TestPrintResultTable(t *testing.T) {
	var buf bytes.Buffer
	res := &usecase.TranslateResult{JobID: "01J", TranslatedCode: "int f(int x) { return x; }", Report: &model.Report{
		Passed: 1, Total: 2, PassRate: 0.5, Cases: []model.TestCase{
			{Args: model.Ints(1), Expected: model.Succeeded(model.Int(1)), Got: model.Succeeded(model.Int(1)), OK: true},
			{Args: model.Ints(2), Expected: model.Succeeded(model.Int(2)), Got: model.Failed("RuntimeFailure", "boom")},
		}}}
	require.NoError(t, printResult(&buf, res, false))
	out := buf.String()
	require.Contains(t, out, "job 01J")
	require.Contains(t, out, "passed 1/2 (0.50)")
	require.Contains(t, out, "RuntimeFailure: boom")
}

func TestPrintResultJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, &usecase.TranslateResult{JobID: "01J", TranslatedCode: "x"}, true))
	require.JSONEq(t, `{"job_id":"01J","translated_code":"x"}`, buf.String())
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []*model.Job{{ID: "01J", SourceLang: model.LangPython, TargetLang: model.LangC, FunctionName: "gcd",
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}})
	require.Contains(t, buf.String(), "python -> c")
	require.Contains(t, buf.String(), "2025-01-02 03:04:05")
}

func TestTranslateCommandSameLanguage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "gcd.py")
	require.NoError(t, os.WriteFile(src, []byte("def gcd(a, b):\n    while b:\n        a, b = b, a % b\n    return abs(a)\n"), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"translate", "--dev", "--config", filepath.Join(dir, "missing.yaml"),
		"--from", "python", "--to", "python", "--func", "gcd", "-f", src, "--json"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.True(t, strings.Contains(out.String(), `"translated_code"`), out.String())
}

func TestTranslateCommandRequiresFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"translate", "--from", "python"})
	require.Error(t, cmd.Execute())
}
