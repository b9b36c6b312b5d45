package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "campus-events "+Version)
	assert.Contains(t, out.String(), "Go version:")
}

func TestRunHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK, body: `{"status":"ok"}`},
		{name: "store down", status: http.StatusServiceUnavailable, body: `{"status":"unavailable"}`, wantErr: true},
		{name: "wrong status", status: http.StatusOK, body: `{"status":"degraded"}`, wantErr: true},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			healthcheckURL = srv.URL + "/health"
			healthcheckTimeout = 2 * time.Second
			t.Cleanup(func() { healthcheckURL = "" })

			cmd := &cobra.Command{}
			cmd.SetContext(context.Background())
			var out bytes.Buffer
			cmd.SetOut(&out)

			err := runHealthcheck(cmd, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok\n", out.String())
		})
	}
}

func TestRunHealthcheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/health"
	srv.Close()

	healthcheckURL = url
	healthcheckTimeout = time.Second
	t.Cleanup(func() { healthcheckURL = "" })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	assert.Error(t, runHealthcheck(cmd, nil))
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Setenv("API_KEY", "k")
	t.Chdir(t.TempDir())

	logLevel, logFormat = "debug", "console"
	t.Cleanup(func() { logLevel, logFormat = "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}
