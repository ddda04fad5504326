// File: cmd/run_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagedriver/internal/config"
	"github.com/xkilldash9x/pagedriver/internal/locator"
	"github.com/xkilldash9x/pagedriver/internal/reporting"
	"github.com/xkilldash9x/pagedriver/internal/script"
	"github.com/xkilldash9x/pagedriver/internal/session"
)

const storePage = `<html><body>
  <input id="q">
  <ul><li>a</li><li>b</li><li>c</li></ul>
  <button id="go">Go</button>
</body></html>`

// writeFixtures creates the page and returns a helper that writes scenarios pointing at it.
func writeFixtures(t *testing.T) (dir string, scenario func(name, steps string) string) {
	t.Helper()
	dir = t.TempDir()
	page := filepath.Join(dir, "store.html")
	require.NoError(t, os.WriteFile(page, []byte(storePage), 0o600))

	return dir, func(name, steps string) string {
		path := filepath.Join(dir, name+".yaml")
		doc := "url: file://" + page + "\nsteps:\n" + steps
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
		return path
	}
}

func newTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.SetBrowserBackend(config.BackendStatic)
	cfg.SetWaitTimeout(100 * time.Millisecond)
	cfg.SetWaitPoll(10 * time.Millisecond)
	cfg.BrowserCfg.Concurrency = 1
	return cfg
}

func staticFactory(t *testing.T, logger *zap.Logger) session.Factory {
	t.Helper()
	factory, err := session.NewFactory(config.BrowserConfig{Backend: config.BackendStatic}, logger)
	require.NoError(t, err)
	return factory
}

func TestRunCmd_EndToEnd(t *testing.T) {
	resetForTest(t)
	dir, scenario := writeFixtures(t)
	search := scenario("search", "  - type: id=q\n    text: shoes\n  - count: li\n    expect: \"3\"\n")
	broken := scenario("broken", "  - click: id=missing\n  - click: id=go\n")
	jsonPath := filepath.Join(dir, "out", "report.json")
	junitPath := filepath.Join(dir, "report.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(jsonPath), 0o755))

	out, err := execute(t, "run",
		"--backend", "static",
		"--timeout", "100ms", "--poll", "10ms",
		"--log-level", "error",
		"--report-json", jsonPath,
		"--report-junit", junitPath,
		search, broken)

	require.Error(t, err)
	assert.ErrorIs(t, err, errScenariosFailed)
	assert.Contains(t, err.Error(), "1 of 2")

	assert.Contains(t, out, "PASS  search (2 steps")
	assert.Contains(t, out, "FAIL  broken (2 steps")
	assert.Contains(t, out, "Click Using By.id: missing")
	assert.Contains(t, out, "2 scenarios: 1 passed, 1 failed (4 steps, 1 failed, 1 skipped)")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc reporting.Document
	require.NoError(t, jsoniter.Unmarshal(data, &doc))
	require.Len(t, doc.Scenarios, 2)
	assert.Equal(t, "search", doc.Scenarios[0].Name, "reports keep argument order")
	assert.Equal(t, script.StatusFailed, doc.Scenarios[1].Status)
	assert.Equal(t, "3", doc.Scenarios[0].Steps[1].Output)

	xml, err := os.ReadFile(junitPath)
	require.NoError(t, err)
	assert.Contains(t, string(xml), `<testsuite name="broken"`)
}

func TestRunCmd_ParsesEverythingFirst(t *testing.T) {
	resetForTest(t)
	dir, scenario := writeFixtures(t)
	good := scenario("good", "  - click: id=go\n")
	bad1 := filepath.Join(dir, "bad1.yaml")
	bad2 := filepath.Join(dir, "bad2.yaml")
	require.NoError(t, os.WriteFile(bad1, []byte("steps: []\n"), 0o600))
	require.NoError(t, os.WriteFile(bad2, []byte("steps:\n  - type: id=q\n"), 0o600))

	out, err := execute(t, "run", "--backend", "static", "--log-level", "error", good, bad1, bad2)
	require.Error(t, err)
	assert.ErrorIs(t, err, script.ErrInvalidScenario)
	assert.Contains(t, err.Error(), "bad1.yaml")
	assert.Contains(t, err.Error(), "bad2.yaml")
	assert.NotContains(t, out, "PASS", "nothing runs when a file is invalid")
}

func TestRunCmd_RequiresArgs(t *testing.T) {
	resetForTest(t)
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestRunScenarios_FailFast(t *testing.T) {
	_, scenario := writeFixtures(t)
	first, err := script.ParseFile(scenario("first", "  - click: id=missing\n"))
	require.NoError(t, err)
	second, err := script.ParseFile(scenario("second", "  - click: id=go\n"))
	require.NoError(t, err)

	cfg := newTestConfig()
	cfg.RunCfg.FailFast = true
	logger := zaptest.NewLogger(t)
	var out bytes.Buffer

	err = runScenarios(context.Background(), logger, cfg, []*script.Scenario{first, second}, staticFactory(t, logger), &out)
	require.ErrorIs(t, err, errScenariosFailed)
	assert.Contains(t, err.Error(), "2 of 2")

	lines := strings.Split(out.String(), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "FAIL  first"))
	assert.Contains(t, out.String(), "FAIL  second")
	assert.Contains(t, out.String(), "not started: context canceled")
}

func TestRunScenarios_SessionFailure(t *testing.T) {
	_, scenario := writeFixtures(t)
	sc, err := script.ParseFile(scenario("only", "  - click: id=go\n  - count: li\n"))
	require.NoError(t, err)

	failing := func(ctx context.Context) (session.Session, error) {
		return nil, errors.New("no browser")
	}
	var out bytes.Buffer
	err = runScenarios(context.Background(), zaptest.NewLogger(t), newTestConfig(), []*script.Scenario{sc}, failing, &out)

	require.ErrorIs(t, err, errScenariosFailed)
	assert.Contains(t, out.String(), "failed to start session: no browser")
	assert.Contains(t, out.String(), "(2 steps, 0 failed, 2 skipped)")
}

func TestRunScenarios_Interrupted(t *testing.T) {
	_, scenario := writeFixtures(t)
	sc, err := script.ParseFile(scenario("only", "  - click: id=go\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger := zaptest.NewLogger(t)

	err = runScenarios(ctx, logger, newTestConfig(), []*script.Scenario{sc}, staticFactory(t, logger), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunXPath(t *testing.T) {
	dir, _ := writeFixtures(t)
	logger := zaptest.NewLogger(t)
	url := "file://" + filepath.Join(dir, "store.html")

	t.Run("every match", func(t *testing.T) {
		var out bytes.Buffer
		err := runXPath(context.Background(), logger, newTestConfig(), staticFactory(t, logger), url, locator.MustParse("li"), &out)
		require.NoError(t, err)
		assert.Equal(t, "body/ul[1]/li[1]\nbody/ul[1]/li[2]\nbody/ul[1]/li[3]\n", out.String())
	})

	t.Run("id shortcut", func(t *testing.T) {
		var out bytes.Buffer
		err := runXPath(context.Background(), logger, newTestConfig(), staticFactory(t, logger), url, locator.ID("go"), &out)
		require.NoError(t, err)
		assert.Equal(t, "//button[@id=\"go\"]\n", out.String())
	})

	t.Run("no match times out", func(t *testing.T) {
		err := runXPath(context.Background(), logger, newTestConfig(), staticFactory(t, logger), url, locator.CSS("table"), &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GetElements Using By.css: table")
	})

	t.Run("bad url", func(t *testing.T) {
		err := runXPath(context.Background(), logger, newTestConfig(), staticFactory(t, logger), "", locator.CSS("li"), &bytes.Buffer{})
		require.Error(t, err)
	})
}

func TestXPathCmd(t *testing.T) {
	resetForTest(t)
	dir, _ := writeFixtures(t)

	out, err := execute(t, "xpath", "--backend", "static", "--log-level", "error", "file://"+filepath.Join(dir, "store.html"), "xpath=//li[3]")
	require.NoError(t, err)
	assert.Equal(t, "body/ul[1]/li[3]\n", out)

	_, err = execute(t, "xpath", "--backend", "static", "--log-level", "error", "about:blank", "xpath=")
	require.Error(t, err)
	assert.ErrorIs(t, err, locator.ErrEmptySelector)
}
