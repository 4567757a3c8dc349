package main

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKidiq(t *testing.T, dir string, n int) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(8, 9))
	var b strings.Builder
	b.WriteString("kid_score,mom_hs,mom_iq,mom_work,mom_age\n")
	for i := 0; i < n; i++ {
		hs := 0
		if rng.Float64() < 0.8 {
			hs = 1
		}
		iq := 100 + 15*rng.NormFloat64()
		score := 26 + 6*float64(hs) + 0.6*iq + 18*rng.NormFloat64()
		fmt.Fprintf(&b, "%.0f,%d,%.3f,%d,%d\n", score, hs, iq, 1+rng.IntN(4), 17+rng.IntN(13))
	}
	path := filepath.Join(dir, "kidiq.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), strings.Join(args, " "))
	return out.String()
}

func TestCLIWorkflow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bayeslm.yaml")
	csvPath := writeKidiq(t, dir, 120)
	fitPath := filepath.Join(dir, "iq.fit")
	ndPath := filepath.Join(dir, "new.csv")
	require.NoError(t, os.WriteFile(ndPath, []byte("mom_iq\n80\n100\n120\n"), 0o644))
	sampler := []string{"--iter", "400", "--warmup", "150", "--chains", "2"}

	out := execute(t, "config", "init", "-c", cfgPath)
	assert.Contains(t, out, "wrote")
	_, err := os.Stat(cfgPath)
	require.NoError(t, err)

	out = execute(t, append([]string{"fit", "-c", cfgPath, "--data", csvPath,
		"--formula", "kid_score ~ mom_iq", "--out", fitPath}, sampler...)...)
	assert.Contains(t, out, "mom_iq")
	assert.Contains(t, out, "Bayes R2")

	drawsPath := filepath.Join(dir, "draws.csv")
	out = execute(t, "predict", "-c", cfgPath, "--fit", fitPath, "--newdata", ndPath, "--out", drawsPath)
	assert.Contains(t, out, "mom_iq=120")
	b, err := os.ReadFile(drawsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Len(t, lines, 1+2*250)

	out = execute(t, append([]string{"loo", "-c", cfgPath, "--data", csvPath, "-m", "hs", "-m", "hs_iq", "--waic"}, sampler...)...)
	assert.Contains(t, out, "elpd_diff")
	assert.Contains(t, out, "elpd_waic")
	assert.Contains(t, out, "hs_iq")

	out = execute(t, "config", "validate", "-c", cfgPath)
	assert.Contains(t, out, "4 models")
}

func TestSelectModel(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "validate", "-c", filepath.Join(t.TempDir(), "none.yaml")})
	require.NoError(t, rootCmd.Execute())

	mc, err := selectModel("hs", "")
	require.NoError(t, err)
	assert.Equal(t, "kid_score ~ mom_hs", mc.Formula)

	mc, err = selectModel("hs", "kid_score ~ mom_hs + mom_age")
	require.NoError(t, err)
	assert.Equal(t, "kid_score ~ mom_hs + mom_age", mc.Formula)

	_, err = selectModel("nope", "")
	assert.Error(t, err)
	_, err = selectModel("", "")
	assert.Error(t, err)
}
