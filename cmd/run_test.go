package cmd

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/11bdev/sitrep/testutil"
)

// fakeSources points the environment at local GitHub and relay fakes
func fakeSources(t *testing.T) (*testutil.GitHubFake, *testutil.RelayFake) {
	t.Helper()
	now := time.Now().UTC()

	gh := testutil.NewGitHubFake(t, "acme")
	gh.SetEvents(t, []map[string]any{{
		"id":         "501",
		"type":       "PushEvent",
		"repo":       map[string]any{"id": 7, "name": "acme/api"},
		"payload":    map[string]any{"size": 3},
		"created_at": now.Add(-time.Hour).Format(time.RFC3339),
	}})
	gh.SetRepos(t, []map[string]any{})

	relay := testutil.NewRelayFake(t, testutil.RelayScripted, map[string]any{
		"id":         "note1",
		"pubkey":     strings.Repeat("a", 64),
		"created_at": now.Add(-2 * time.Hour).Unix(),
		"kind":       1,
		"tags":       [][]string{},
		"content":    "release notes are up #11bdev",
		"sig":        strings.Repeat("b", 128),
	})

	t.Setenv("SITREP_CODE_HOST_BASE_URL", gh.URL())
	t.Setenv("SITREP_CODE_HOST_ORG", "acme")
	t.Setenv("SITREP_RELAY_RELAYS", relay.URL())
	t.Setenv("SITREP_RELAY_LINGER", "150ms")
	t.Setenv("SITREP_RELAY_TIMEOUT", "3s")
	return gh, relay
}

func decodeSummary(t *testing.T, out string) internal.RunSummary {
	t.Helper()
	var s internal.RunSummary
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &s); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, out)
	}
	return s
}

func TestRunCommand(t *testing.T) {
	fakeSources(t)
	path := tempDBPath(t)

	out, err := executeCommand(t, "run", "--db", path, "--json")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	first := decodeSummary(t, out)
	if first.Created != 2 || first.Skipped != 0 {
		t.Errorf("first run = %+v, want 2 created", first)
	}

	out, err = executeCommand(t, "run", "--db", path, "--json")
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if second := decodeSummary(t, out); second.Created != 0 || second.Skipped != 2 {
		t.Errorf("second run = %+v, want everything skipped", second)
	}

	out, err = executeCommand(t, "show", "github-push-501", "--db", path)
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "3 commits to api") {
		t.Errorf("stored push item:\n%s", out)
	}
}

func TestRunCommand_SourceFailure(t *testing.T) {
	gh, _ := fakeSources(t)
	gh.FailEvents(http.StatusBadGateway)
	gh.FailRepos(http.StatusBadGateway)

	out, err := executeCommand(t, "run", "--db", tempDBPath(t), "--json")
	if err != nil {
		t.Fatalf("a failing source must not fail the run: %v", err)
	}
	if got := decodeSummary(t, out); got.Created != 1 {
		t.Errorf("run = %+v, want the relay note only", got)
	}
}

func TestRunCommand_HumanSummary(t *testing.T) {
	fakeSources(t)

	out, err := executeCommand(t, "run", "--db", tempDBPath(t), "--days", "2")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	for _, want := range []string{"Ingestion complete", "created", "skipped", "deleted"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{
			name: "interval too short",
			args: []string{"run", "--interval", "5s"},
		},
		{
			name: "invalid config",
			args: []string{"run"},
			env:  map[string]string{"SITREP_LOOKBACK_DAYS": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append(tt.args, "--db", tempDBPath(t))
			if _, err := executeCommand(t, args...); err == nil {
				t.Error("run should fail")
			}
		})
	}
}
