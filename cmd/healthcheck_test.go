package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/11bdev/sitrep/internal"
	"github.com/11bdev/sitrep/testutil"
)

func TestHealthcheckCommand(t *testing.T) {
	seeded := tempDBPath(t)
	seedDB(t, seeded, internal.CreateTestItem("github-push-1", time.Now()))

	relay := testutil.NewRelayFake(t, testutil.RelaySilent)

	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		wantErr  bool
		wantText []string
	}{
		{
			name:     "fresh install",
			args:     []string{"healthcheck", "--db", tempDBPath(t)},
			wantText: []string{"Configuration loaded", "Database not created yet", "Public key decoded", "Health check passed"},
		},
		{
			name:     "existing database",
			args:     []string{"healthcheck", "--db", seeded, "--verbose"},
			wantText: []string{"Database readable (1 item)", "Hex: 8dc8688200b447ec2e4018ea5e42dc5d48094"},
		},
		{
			name:     "invalid public key",
			args:     []string{"healthcheck", "--db", seeded},
			env:      map[string]string{"SITREP_RELAY_NPUB": "npub1notakey"},
			wantErr:  true,
			wantText: []string{"Public key is invalid", "Health check failed"},
		},
		{
			name:     "invalid configuration",
			args:     []string{"healthcheck", "--db", seeded},
			env:      map[string]string{"SITREP_RELAY_LINGER": "-1s"},
			wantErr:  true,
			wantText: []string{"Invalid configuration"},
		},
		{
			name:     "reachable relay",
			args:     []string{"healthcheck", "--db", seeded, "--relays"},
			env:      map[string]string{"SITREP_RELAY_RELAYS": relay.URL()},
			wantText: []string{"Probing relays", relay.URL(), "Health check passed"},
		},
		{
			name:     "no reachable relay",
			args:     []string{"healthcheck", "--db", seeded, "--relays"},
			env:      map[string]string{"SITREP_RELAY_RELAYS": "ws://127.0.0.1:1", "SITREP_RELAY_TIMEOUT": "1s"},
			wantErr:  true,
			wantText: []string{"No relay is reachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			out, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("healthcheck error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}
