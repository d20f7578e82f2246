package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tessera/internal/config"
	"github.com/conneroisu/tessera/internal/server"
	"github.com/conneroisu/tessera/internal/testutils"
)

// setupStore writes a two-level component hierarchy and points the global
// configuration at it.
func setupStore(t *testing.T) string {
	t.Helper()
	root := testutils.CreateTeaserTree(t)

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("store.root", root)
	viper.Set("log.level", "error")
	return root
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, out
}

func resetResolveFlags(t *testing.T) {
	t.Helper()
	resolveMode, resolveFlatten, resolveNames, resolveChain = "", true, false, false
	resolveFlags.OutputFormat = FormatJSON
	t.Cleanup(func() {
		resolveMode, resolveFlatten, resolveNames, resolveChain = "", true, false, false
		resolveFlags.OutputFormat = FormatJSON
	})
}

func TestResolveCommand(t *testing.T) {
	setupStore(t)
	resetResolveFlags(t)

	cmd, out := testCommand()
	require.NoError(t, runResolve(cmd, []string{"site/components/teaser"}))

	var distilled map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &distilled))
	assert.Equal(t, "red", distilled["color"])
	assert.Equal(t, "m", distilled["size"])
	assert.Equal(t, []any{"content", "styling"}, distilled["categories"])
}

func TestResolveCommand_Modes(t *testing.T) {
	setupStore(t)
	resetResolveFlags(t)

	resolveMode = "merge"
	resolveFlatten = false
	cmd, out := testCommand()
	require.NoError(t, runResolve(cmd, []string{"site/components/teaser"}))

	var distilled map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &distilled))
	assert.Equal(t, []any{"red", "blue"}, distilled["color"])
	assert.Equal(t, []any{"content", "styling", "component"}, distilled["categories"])

	resolveMode = "deep"
	cmd, _ = testCommand()
	assert.Error(t, runResolve(cmd, []string{"site/components/teaser"}))
}

func TestResolveCommand_NamesAndChain(t *testing.T) {
	setupStore(t)
	resetResolveFlags(t)

	resolveNames = true
	resolveMode = "shallow"
	resolveFlags.OutputFormat = FormatYAML
	cmd, out := testCommand()
	require.NoError(t, runResolve(cmd, []string{"site/components/teaser"}))

	var names []string
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &names))
	assert.ElementsMatch(t, []string{"categories", "color", "xk_containerClasses"}, names)

	resolveNames = false
	resolveChain = true
	resolveFlags.OutputFormat = FormatJSON
	cmd, out = testCommand()
	require.NoError(t, runResolve(cmd, []string{"site/components/teaser"}))

	var chain []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &chain))
	assert.Equal(t, []string{"site/components/teaser", "site/components/base"}, chain)
}

func TestResolveCommand_Errors(t *testing.T) {
	setupStore(t)
	resetResolveFlags(t)

	cmd, _ := testCommand()
	err := runResolve(cmd, []string{"site/components/missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration")

	resolveFlags.OutputFormat = "table"
	cmd, _ = testCommand()
	err = runResolve(cmd, []string{"site/components/teaser"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestRenderCommand(t *testing.T) {
	setupStore(t)
	t.Cleanup(func() {
		renderJSON, renderKeys = false, nil
		*renderFlags = StandardFlags{}
	})

	renderFlags.Path = "/content/home/teaser"
	renderFlags.Props = []string{"title=Hello"}
	cmd, out := testCommand()
	require.NoError(t, runRender(cmd, []string{"site/components/teaser"}))
	assert.True(t, strings.HasPrefix(out.String(), `<div class="teaser" data-type="site/components/teaser"`))

	renderJSON = true
	cmd, out = testCommand()
	require.NoError(t, runRender(cmd, []string{"site/components/teaser"}))

	var model map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &model))
	assert.Equal(t, "Hello", model["content"].(map[string]any)["title"])
	assert.Equal(t, "wide", model["component"].(map[string]any)["variant"])
	assert.Equal(t, "teaser", model["styling"].(map[string]any)["classes"])

	renderJSON = false
	renderKeys = []string{"styling.classes"}
	cmd, out = testCommand()
	require.NoError(t, runRender(cmd, []string{"site/components/teaser"}))
	assert.JSONEq(t, `{"styling.classes":"teaser"}`, out.String())
}

func TestRenderCommand_InvalidProp(t *testing.T) {
	setupStore(t)
	t.Cleanup(func() { *renderFlags = StandardFlags{} })

	renderFlags.Props = []string{"novalue"}
	cmd, _ := testCommand()
	err := runRender(cmd, []string{"site/components/teaser"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected name=value")
}

func TestExecute_Resolve(t *testing.T) {
	root := setupStore(t)
	resetResolveFlags(t)

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"resolve", "site/components/teaser", "--root", root, "-o", "yaml"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())

	var distilled map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &distilled))
	assert.Equal(t, "red", distilled["color"])
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(func() { versionFormat, versionShort = "text", false })

	versionFormat = FormatJSON
	cmd, out := testCommand()
	require.NoError(t, runVersionCommand(cmd, nil))

	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	versionFormat = "text"
	cmd, out = testCommand()
	cmd.Flags().Bool("detailed", false, "")
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.True(t, strings.HasPrefix(out.String(), "tessera "))

	versionFormat = "xml"
	cmd, _ = testCommand()
	assert.Error(t, runVersionCommand(cmd, nil))
}

func TestParseProps(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "props.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"title":"From file","count":2}`), 0o644))

	flags := &StandardFlags{PropsFile: "@" + file, Props: []string{"title=Override", "empty="}}
	props, err := flags.ParseProps()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Override", "count": float64(2), "empty": ""}, props)

	flags = &StandardFlags{PropsFile: filepath.Join(dir, "missing.json")}
	assert.Error(t, flags.ValidateFlags())
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("0"))
	assert.NoError(t, ValidatePort("8080"))
	assert.Error(t, ValidatePort("65536"))
	assert.Error(t, ValidatePort("http"))

	cmd := &cobra.Command{}
	cmd.Flags().Int("port", 8080, "")
	AddFlagValidation(cmd, "port", ValidatePort)
	assert.Error(t, cmd.Flags().Set("port", "70000"))
	require.NoError(t, cmd.Flags().Set("port", "9090"))
	port, _ := cmd.Flags().GetInt("port")
	assert.Equal(t, 9090, port)
}

func TestServe_WatchInvalidates(t *testing.T) {
	root := setupStore(t)
	viper.Set("watch.debounce", "20ms")

	cfg, err := config.Load()
	require.NoError(t, err)
	a, err := newApp(cfg, &bytes.Buffer{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, fw, err := a.newServer(ctx)
	require.NoError(t, err)
	require.NotNil(t, fw)
	defer fw.Stop()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	assert.Equal(t, "red", a.resolver.DistilledMap(ctx, "site/components/teaser", a.resolver.DefaultMode(), true)["color"])

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return srv.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	testutils.WriteDefinition(t, root, "site/components/teaser",
		strings.Replace(testutils.TeaserDefinition, "color: red", "color: green", 1))

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	defer readCancel()
	_, data, err := conn.Read(readCtx)
	require.NoError(t, err)

	var msg server.UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, server.MessageInvalidated, msg.Type)

	// The resolver is invalidated before live clients hear about it
	assert.Equal(t, "green", a.resolver.DistilledMap(ctx, "site/components/teaser", a.resolver.DefaultMode(), true)["color"])
}

func TestServe_NoWatch(t *testing.T) {
	setupStore(t)
	viper.Set("watch.enabled", false)
	viper.Set("metrics.enabled", false)

	cfg, err := config.Load()
	require.NoError(t, err)
	a, err := newApp(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Nil(t, a.registry)

	srv, fw, err := a.newServer(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fw)
	assert.NotNil(t, srv)
}
