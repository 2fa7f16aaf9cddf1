package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"code-translator/internal/config"
	"code-translator/internal/domain"
	"code-translator/internal/domain/ports/usecase"
)

const pyGCD = `def gcd(a, b):
    while b:
        a, b = b, a % b
    return abs(a)
`

func TestBuildDefaults(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	a, err := Build(ctx, config.Default(), nil)
	require.NoError(t, err)
	require.Nil(t, a.Limiter)
	require.Contains(t, a.Probes, "backend")
	require.NotContains(t, a.Probes, "store")

	// same-language requests need no backend
	res, err := a.Pipeline.Translate(ctx, usecase.TranslateInput{SourceLang: "python", TargetLang: "python", FunctionName: "gcd", Code: pyGCD})
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(pyGCD), strings.TrimSpace(res.TranslatedCode))

	_, err = a.Pipeline.Translate(ctx, usecase.TranslateInput{SourceLang: "python", TargetLang: "c", FunctionName: "gcd", Code: pyGCD})
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)

	rec := httptest.NewRecorder()
	a.Server().Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":false,"backend":false}`, rec.Body.String())

	require.NoError(t, a.Close())
}

func TestBuildSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = filepath.Join(t.TempDir(), "jobs.db")

	a, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Probes["store"](ctx))

	res, err := a.Pipeline.Translate(ctx, usecase.TranslateInput{SourceLang: "python", TargetLang: "python", FunctionName: "gcd", Code: pyGCD})
	require.NoError(t, err)
	job, err := a.Pipeline.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	require.False(t, job.Verified)
}

func TestVerifySameLanguage(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	ctx := context.Background()
	a, err := Build(ctx, config.Default(), nil)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Pipeline.TranslateAndVerify(ctx, usecase.TranslateInput{
		SourceLang: "python", TargetLang: "python", FunctionName: "gcd", Code: pyGCD,
		Inputs: []byte(`[[12, 18], [0, 5], [-4, 6], [7, 0]]`),
	})
	require.NoError(t, err)
	require.Equal(t, 4, res.Report.Total)
	require.Equal(t, 1.0, res.Report.PassRate)
}

func TestBuildRejectsBadSandbox(t *testing.T) {
	cfg := config.Default()
	cfg.Sandbox.Isolation = "vm"
	_, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)
}
