package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newGlobalContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()

	app := cli.NewApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("rpcserver", "http://localhost:10013/", "")
	set.String("macaroon", "", "")
	set.String("macaroonpath", "", "")

	ctx := cli.NewContext(app, set, nil)
	for name, val := range flags {
		require.NoError(t, ctx.Set(name, val))
	}
	return ctx
}

func TestExitCodeForRecoverableError(t *testing.T) {
	require.Equal(t, 1, exitCodeFor(recoverable(errors.New("boom"))))
}

func TestExitCodeForUnclassifiedError(t *testing.T) {
	require.Equal(t, 2, exitCodeFor(errors.New("boom")))
}

func TestRecoverableNilIsNil(t *testing.T) {
	require.Nil(t, recoverable(nil))
}

func TestNewClientDefaultsToRPCServerFlag(t *testing.T) {
	c := newGlobalContext(t, nil)
	client, err := newClient(c)
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestNewClientReadsMacaroonFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macaroon.hex")
	require.NoError(t, os.WriteFile(path, []byte("deadbeef\n"), 0o600))

	c := newGlobalContext(t, map[string]string{"macaroonpath": path})
	_, err := newClient(c)
	require.NoError(t, err)
}

func TestNewClientMacaroonFlagOverridesPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macaroon.hex")
	require.NoError(t, os.WriteFile(path, []byte("fromfile"), 0o600))

	c := newGlobalContext(t, map[string]string{
		"macaroon":     "fromflag",
		"macaroonpath": path,
	})
	_, err := newClient(c)
	require.NoError(t, err)
}

func TestNewClientMissingMacaroonFileErrors(t *testing.T) {
	c := newGlobalContext(t, map[string]string{"macaroonpath": "/nonexistent/path"})
	_, err := newClient(c)
	require.Error(t, err)
}
