package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"LEDGER_BACKEND", "LEDGER_PATH", "OCR_PROVIDER", "VISION_API_KEY", "VISION_ACCESS_TOKEN", "FANLEDGER_CONFIG"} {
		t.Setenv(key, "")
	}
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	config := fmt.Sprintf("[store]\nbackend = \"xlsx\"\npath = %q\n\n[logging]\nlevel = \"error\"\n",
		filepath.Join(base, "ledger.xlsx"))
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	return &cliTestEnv{configPath: configPath, baseDir: base}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRosterCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "roster", "list")
	if err != nil || !strings.Contains(out, "Roster is empty") {
		t.Fatalf("empty list: %q %v", out, err)
	}
	out, err = env.run(t, "roster", "add", "Alpha", "Beta", "Alpha")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "added Beta") || !strings.Contains(out, "Alpha is already listed") {
		t.Fatalf("add output: %q", out)
	}
	if _, err := env.run(t, "roster", "rename", "Alpha", "Beta"); !errors.Is(err, common.ErrNicknameExists) {
		t.Fatalf("rename onto existing: %v", err)
	}
	if _, err := env.run(t, "roster", "rename", "Alpha", "Alef"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	out, err = env.run(t, "roster", "delete", "Beta", "Ghost")
	if err != nil || !strings.Contains(out, "deleted 1 of 2") {
		t.Fatalf("delete: %q %v", out, err)
	}
	out, err = env.run(t, "roster", "list")
	if err != nil || !strings.Contains(out, "Alef") || strings.Contains(out, "Beta") {
		t.Fatalf("list: %q %v", out, err)
	}
}

func TestCommitAndRollup(t *testing.T) {
	env := setupCLITestEnv(t)
	review := filepath.Join(env.baseDir, "staging.json")
	body := `{"entries": [{"nickname": "Alpha", "fan_count": 5000}, {"nickname": "Beta", "fan_count": 300}, {"nickname": "Alpha", "fan_count": 4000}]}`
	if err := os.WriteFile(review, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "commit", "--review", review)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !strings.Contains(out, "created Alpha:") || !strings.Contains(out, "-> 5,000") || !strings.Contains(out, "Committed 2 entries") {
		t.Fatalf("commit output: %q", out)
	}

	out, err = env.run(t, "rollup", "summary")
	if err != nil {
		t.Fatalf("rollup: %v", err)
	}
	if !strings.Contains(out, "Alpha") || !strings.Contains(out, "5000") {
		t.Fatalf("summary: %q", out)
	}
	if _, err := env.run(t, "rollup", "yearly"); err == nil {
		t.Fatal("expected error for unknown rollup")
	}
}

func TestCommitRejectsInvalidReview(t *testing.T) {
	env := setupCLITestEnv(t)
	review := filepath.Join(env.baseDir, "staging.json")
	if err := os.WriteFile(review, []byte(`{"entries": [{"nickname": "A", "fan_count": -5}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "commit", "--review", review); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestAnalyzeWithoutOCR(t *testing.T) {
	env := setupCLITestEnv(t)
	shots := filepath.Join(env.baseDir, "shots")
	if err := os.MkdirAll(shots, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "analyze", shots); err == nil || !strings.Contains(err.Error(), "no screenshots") {
		t.Fatalf("empty dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(shots, "a.png"), []byte("not really a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "analyze", shots); !errors.Is(err, common.ErrAuthMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable([]string{"#", "Nickname", "2024-05-01"}, [][]string{{"1", "Alpha", "5000"}, {"2"}}, []columnAlignment{alignRight})
	if strings.Contains(got, "NICKNAME") {
		t.Fatalf("header was reformatted:\n%s", got)
	}
	for _, want := range []string{"Nickname", "2024-05-01", "Alpha", "╭"} {
		if !strings.Contains(got, want) {
			t.Fatalf("table missing %q:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("empty headers should render nothing")
	}
}

func TestExportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out := filepath.Join(env.baseDir, "export.xlsx")
	if _, err := env.run(t, "export", "--out", out, "--from", "05/01/2024"); err == nil {
		t.Fatal("expected bad date error")
	}
	if _, err := env.run(t, "export", "--out", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("export file: %v", err)
	}
}
