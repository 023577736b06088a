package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envLookup builds a lookup function over a fixed map, so tests never
// depend on the process environment.
func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// executeCmd runs the root command with the given args and environment,
// returning captured stdout and stderr.
func executeCmd(t *testing.T, args []string, env map[string]string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmdWithEnv("test", envLookup(env))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// warehouseEnv points the CLI at the given test server.
func warehouseEnv(serverURL string) map[string]string {
	return map[string]string{
		"MEMBERBOARD_WAREHOUSE_HOST":  serverURL,
		"MEMBERBOARD_WAREHOUSE_ID":    "wh-test",
		"MEMBERBOARD_WAREHOUSE_TOKEN": "token",
	}
}

// newStubWarehouse serves a fixed two-row region summary for any statement.
func newStubWarehouse(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"statement_id": "stmt-1",
			"status":       map[string]any{"state": "SUCCEEDED"},
			"manifest": map[string]any{
				"schema": map[string]any{
					"columns": []map[string]any{{"name": "region"}, {"name": "total_members"}},
				},
			},
			"result": map[string]any{
				"data_array": [][]any{{"West", 54000}, {"East", 61000}},
			},
		})
	}))
}

func TestRootCmd_Structure(t *testing.T) {
	cmd := NewRootCmd("1.0.0")

	assert.Equal(t, "memberboard", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "dashboard")
	assert.Contains(t, names, "query")
	assert.Contains(t, names, "views")
	assert.Contains(t, names, "ping")
	assert.Contains(t, names, "version")
}

func TestVersionCmd(t *testing.T) {
	out, _, err := executeCmd(t, []string{"version"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "memberboard test")
}

func TestRootCmd_RejectsNegativeCacheTTL(t *testing.T) {
	_, _, err := executeCmd(t, []string{"views", "--cache-ttl", "-1"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache-ttl must be >= 0")
}

func TestViewsCmd_ListsCatalog(t *testing.T) {
	out, _, err := executeCmd(t, []string{"views"}, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "membership_kpis")
	assert.Contains(t, out, "product_mix")
	assert.Contains(t, out, "age_distribution")
	assert.Contains(t, out, "region_summary")
	assert.Contains(t, out, "chronic_conditions")
}

func TestQueryCmd_UnknownView(t *testing.T) {
	_, _, err := executeCmd(t, []string{"query", "no_such_view"}, warehouseEnv("https://example.invalid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown view")
}

func TestQueryCmd_RequiresWarehouse(t *testing.T) {
	_, _, err := executeCmd(t, []string{"query", "membership_kpis"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse host is not configured")
}

func TestQueryCmd_Table(t *testing.T) {
	server := newStubWarehouse(t)
	defer server.Close()

	out, _, err := executeCmd(t, []string{"query", "region_summary"}, warehouseEnv(server.URL))
	require.NoError(t, err)

	assert.Contains(t, out, "region")
	assert.Contains(t, out, "West")
	assert.Contains(t, out, "61000")
}

func TestQueryCmd_JSON(t *testing.T) {
	server := newStubWarehouse(t)
	defer server.Close()

	out, _, err := executeCmd(t, []string{"query", "region_summary", "--json"}, warehouseEnv(server.URL))
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "West", rows[0]["region"])
}

func TestQueryCmd_InvalidParam(t *testing.T) {
	server := newStubWarehouse(t)
	defer server.Close()

	_, _, err := executeCmd(
		t,
		[]string{"query", "membership_kpis", "--param", "months"},
		warehouseEnv(server.URL),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestPingCmd(t *testing.T) {
	t.Run("reachable warehouse", func(t *testing.T) {
		server := newStubWarehouse(t)
		defer server.Close()

		out, _, err := executeCmd(t, []string{"ping"}, warehouseEnv(server.URL))
		require.NoError(t, err)
		assert.Contains(t, out, "wh-test is reachable")
	})

	t.Run("unreachable warehouse", func(t *testing.T) {
		server := newStubWarehouse(t)
		server.Close() // port is now refused

		_, _, err := executeCmd(t, []string{"ping"}, warehouseEnv(server.URL))
		require.Error(t, err)
	})
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: nil},
		{name: "single pair", pairs: []string{"months=6"}, want: map[string]string{"months": "6"}},
		{
			name:  "value containing equals",
			pairs: []string{"filter=a=b"},
			want:  map[string]string{"filter": "a=b"},
		},
		{name: "missing value separator", pairs: []string{"months"}, wantErr: true},
		{name: "empty key", pairs: []string{"=6"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.pairs)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
