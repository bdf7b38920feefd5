package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "config", err: errors.New("config: source.url is required"), want: exitConfig},
		{name: "store", err: fmt.Errorf("load: %w", &domain.StoreError{Op: domain.StoreRead, Err: os.ErrPermission}), want: exitStore},
		{name: "delivery", err: &domain.DeliveryError{Channel: "email", Err: errors.New("535")}, want: exitDelivery},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestParseNow(t *testing.T) {
	t.Parallel()

	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+8", 8*60*60)

	got, err := parseNow("", fallback, loc)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)

	got, err = parseNow("2024-05-02", fallback, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, loc), got)

	got, err = parseNow("2024-05-02T10:00:00Z", fallback, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), got)

	_, err = parseNow("yesterday", fallback, loc)
	assert.Error(t, err)
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	store := filepath.Join(dir, "news.csv")
	require.NoError(t, os.WriteFile(store, []byte(
		"title,link,date,status\n"+
			"Messi scores again,https://news.example/2024-05-01/x,2024-05-01,\n"+
			"Messi old news,https://news.example/2024-04-20/y,2024-04-20,Notified\n"), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(
		"source:\n  url: https://news.example/list\nkeywords: [Messi]\nstore:\n  driver: csv\n  path: %s\nlogging:\n  level: error\n",
		store)), 0o644))
	return cfgPath
}

func TestPendingCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetArgs([]string{"pending", "--config", writeFixture(t), "--now", "2024-05-02"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Messi scores again")
	assert.NotContains(t, out.String(), "Messi old news")
}

func TestListCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetArgs([]string{"list", "--config", writeFixture(t)})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Messi scores again")
	assert.Contains(t, out.String(), "Notified")
	assert.Contains(t, out.String(), "pending")
}

func TestInvalidConfigIsUsageError(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("eligibility:\n  windowDays: -1\n"), 0o644))

	root := newRootCommand(&bytes.Buffer{})
	root.SetArgs([]string{"list", "--config", cfgPath})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestNotifyWithIncompleteEmailConfigIsUsageError(t *testing.T) {
	t.Setenv("MAIL_USERNAME", "")
	t.Setenv("TO_EMAIL", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(
		"store:\n  path: %s\nnotifications:\n  channels: [email]\n  email:\n    host: smtp.example.com\nlogging:\n  level: error\n",
		filepath.Join(dir, "news.csv"))), 0o644))

	root := newRootCommand(&bytes.Buffer{})
	root.SetArgs([]string{"notify", "--config", cfgPath, "--now", "2024-05-02"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email channel needs host, from and to")
	assert.Equal(t, exitConfig, exitCode(err))
}
