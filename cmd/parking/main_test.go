package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/adapter/token"
	"parking/internal/config"
	"parking/internal/domain"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "token")
}

func TestTokenCmd_IssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("STORE", "memory")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"token", "--role", "system", "--ttl", "1h", "--env-file", filepath.Join(t.TempDir(), "none.env")})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())

	role, err := token.NewHMAC("cli-secret").Verify(context.Background(), strings.TrimSpace(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSystem, role)
}

func TestTokenCmd_RejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"token", "--role", "driver", "--env-file", filepath.Join(t.TempDir(), "none.env")})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestOpenStore(t *testing.T) {
	mem, err := openStore(&config.Config{Store: config.StoreMemory})
	require.NoError(t, err)
	assert.NoError(t, mem.Close())

	bolt, err := openStore(&config.Config{Store: config.StoreBolt, BoltPath: filepath.Join(t.TempDir(), "p.db")})
	require.NoError(t, err)
	assert.NoError(t, bolt.Close())
}
