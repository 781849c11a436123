// Package integration provides end-to-end tests for textreg commands.
package integration

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	textregBinary     string
	textregBinaryOnce sync.Once
	textregBinaryErr  error
)

// getBinary builds the textreg binary once and returns its path.
func getBinary(t *testing.T) string {
	t.Helper()
	textregBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			textregBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "textreg-test-*")
		if err != nil {
			textregBinaryErr = err
			return
		}
		textregBinary = filepath.Join(tmpDir, "textreg")

		cmd := exec.Command("go", "build", "-o", textregBinary, "./cmd/textreg")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			textregBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if textregBinaryErr != nil {
		t.Fatalf("failed to build textreg: %v", textregBinaryErr)
	}
	return textregBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// setupExperiment writes a small corpus and experiment config into a
// temp dir and returns their paths plus the env for an isolated store.
func setupExperiment(t *testing.T) (corpusPath, configPath string, env []string) {
	t.Helper()
	tmpDir := t.TempDir()

	corpusPath = filepath.Join(tmpDir, "corpus.csv")
	var sb strings.Builder
	sb.WriteString("id,text,target\n")
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	for i := 0; i < 24; i++ {
		text := words[i%len(words)] + " " + words[(i+1)%len(words)] + " " + words[(i+2)%len(words)]
		fmt.Fprintf(&sb, "d%d,%s,%d\n", i, text, 10+i%7)
	}
	if err := os.WriteFile(corpusPath, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}

	configPath = filepath.Join(tmpDir, "experiment.yml")
	config := `seed: 42
folds: 3
model: ridge
metrics: [rmse, mae]
target_metric: mae
tolerance_pct: 5
pipeline:
  kind: hashing
  buckets: 16
  signed: true
grid:
  buckets: [8, 16, 32]
`
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	env = append(os.Environ(), "TEXTREG_DB_PATH="+filepath.Join(tmpDir, "runs.db"))
	return corpusPath, configPath, env
}

func runCommand(t *testing.T, env []string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(getBinary(t), args...)
	cmd.Env = env
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func TestEvaluateCommand(t *testing.T) {
	corpusPath, configPath, env := setupExperiment(t)

	stdout, stderr, err := runCommand(t, env, "evaluate", "--corpus", corpusPath, "--config", configPath, "--no-save")
	if err != nil {
		t.Fatalf("evaluate failed: %v\nstderr: %s", err, stderr)
	}

	var response struct {
		Pipeline string `json:"pipeline"`
		Model    string `json:"model"`
		Report   struct {
			PerFold []struct {
				Fold    int                `json:"fold"`
				Metrics map[string]float64 `json:"metrics"`
			} `json:"per_fold"`
			Overall []struct {
				Metric string  `json:"metric"`
				Mean   float64 `json:"mean"`
				Folds  int     `json:"folds"`
			} `json:"overall"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(stdout), &response); err != nil {
		t.Fatalf("invalid JSON output: %v\noutput: %s", err, stdout)
	}

	if response.Pipeline != "hashing(buckets=16,signed=true)" {
		t.Errorf("pipeline = %q", response.Pipeline)
	}
	if response.Model != "ridge" {
		t.Errorf("model = %q", response.Model)
	}
	if len(response.Report.PerFold) != 3 {
		t.Errorf("got %d folds, want 3", len(response.Report.PerFold))
	}
	if len(response.Report.Overall) != 2 {
		t.Errorf("got %d overall metrics, want 2", len(response.Report.Overall))
	}
	for _, s := range response.Report.Overall {
		if s.Folds != 3 {
			t.Errorf("metric %s aggregated over %d folds, want 3", s.Metric, s.Folds)
		}
		if s.Mean < 0 {
			t.Errorf("metric %s mean = %v, want >= 0", s.Metric, s.Mean)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	corpusPath, configPath, env := setupExperiment(t)

	first, _, err := runCommand(t, env, "evaluate", "--corpus", corpusPath, "--config", configPath, "--no-save")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, _, err := runCommand(t, env, "evaluate", "--corpus", corpusPath, "--config", configPath, "--no-save")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if first != second {
		t.Error("same seed and corpus produced different reports")
	}
}

func TestGridCommand(t *testing.T) {
	corpusPath, configPath, env := setupExperiment(t)

	stdout, stderr, err := runCommand(t, env, "grid", "--corpus", corpusPath, "--config", configPath, "--no-save")
	if err != nil {
		t.Fatalf("grid failed: %v\nstderr: %s", err, stderr)
	}

	var response struct {
		TargetMetric string `json:"target_metric"`
		Results      []struct {
			Name       string  `json:"name"`
			Complexity float64 `json:"complexity"`
		} `json:"results"`
		Selected string `json:"selected"`
	}
	if err := json.Unmarshal([]byte(stdout), &response); err != nil {
		t.Fatalf("invalid JSON output: %v\noutput: %s", err, stdout)
	}

	if response.TargetMetric != "mae" {
		t.Errorf("target_metric = %q", response.TargetMetric)
	}
	if len(response.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(response.Results))
	}
	found := false
	for _, r := range response.Results {
		if r.Name == response.Selected {
			found = true
		}
	}
	if !found {
		t.Errorf("selected config %q not among results", response.Selected)
	}
}

func TestRunsPersistence(t *testing.T) {
	corpusPath, configPath, env := setupExperiment(t)

	stdout, stderr, err := runCommand(t, env, "evaluate", "--corpus", corpusPath, "--config", configPath)
	if err != nil {
		t.Fatalf("evaluate failed: %v\nstderr: %s", err, stderr)
	}
	var evalResponse struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal([]byte(stdout), &evalResponse); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if evalResponse.RunID == "" {
		t.Fatal("evaluate did not report a run_id")
	}

	stdout, _, err = runCommand(t, env, "runs", "list")
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	var runs []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != evalResponse.RunID || runs[0].Kind != "evaluate" {
		t.Errorf("unexpected runs list: %+v", runs)
	}

	stdout, _, err = runCommand(t, env, "runs", "show", evalResponse.RunID)
	if err != nil {
		t.Fatalf("runs show failed: %v", err)
	}
	var run struct {
		ID     string `json:"id"`
		Report *struct {
			PerFold []json.RawMessage `json:"per_fold"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(stdout), &run); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if run.ID != evalResponse.RunID {
		t.Errorf("run id = %q, want %q", run.ID, evalResponse.RunID)
	}
	if run.Report == nil || len(run.Report.PerFold) != 3 {
		t.Error("stored run is missing its per-fold report")
	}
}

func TestVocabCommand(t *testing.T) {
	tmpDir := t.TempDir()
	corpusPath := filepath.Join(tmpDir, "corpus.csv")
	corpus := "id,text,target\n" +
		"a,apple apple banana,1\n" +
		"b,apple cherry,2\n" +
		"c,apple banana cherry,3\n"
	if err := os.WriteFile(corpusPath, []byte(corpus), 0644); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, "experiment.yml")
	config := "model: mean\nmetrics: [mae]\npipeline:\n  kind: tfidf\n  max_tokens: 2\n"
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := runCommand(t, os.Environ(), "vocab", "--corpus", corpusPath, "--config", configPath)
	if err != nil {
		t.Fatalf("vocab failed: %v\nstderr: %s", err, stderr)
	}

	var response struct {
		Documents int `json:"documents"`
		Distinct  int `json:"distinct_tokens"`
		Size      int `json:"vocabulary_size"`
		Terms     []struct {
			Term    string `json:"term"`
			Column  int    `json:"column"`
			DocFreq int    `json:"doc_freq"`
		} `json:"terms"`
	}
	if err := json.Unmarshal([]byte(stdout), &response); err != nil {
		t.Fatalf("invalid JSON output: %v\noutput: %s", err, stdout)
	}

	if response.Documents != 3 || response.Distinct != 3 || response.Size != 2 {
		t.Errorf("counts = %d docs, %d distinct, %d kept", response.Documents, response.Distinct, response.Size)
	}
	if len(response.Terms) != 2 || response.Terms[0].Term != "apple" || response.Terms[0].DocFreq != 3 {
		t.Errorf("unexpected top terms: %+v", response.Terms)
	}
}

func TestConfigErrorExitCode(t *testing.T) {
	tmpDir := t.TempDir()
	corpusPath := filepath.Join(tmpDir, "corpus.csv")
	if err := os.WriteFile(corpusPath, []byte("id,text,target\na,hello,1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, "experiment.yml")
	config := "model: nonsense\nmetrics: [mae]\npipeline:\n  kind: tfidf\n  max_tokens: 10\n"
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCommand(t, os.Environ(), "evaluate", "--corpus", corpusPath, "--config", configPath)
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected exit error, got %v", err)
	}
	if exitErr.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", exitErr.ExitCode())
	}
}
