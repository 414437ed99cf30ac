package cli

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/bmd/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	fail atomic.Bool
}

func (p *fakePinger) Ping(context.Context) error {
	if p.fail.Load() {
		return errors.New("down")
	}
	return nil
}

func TestGetStatus(t *testing.T) {
	a := &App{}
	assert.Equal(t, "", a.getStatus())

	a.email = "alice@example.org"
	assert.Equal(t, "(alice@example.org)", a.getStatus())

	a.mode = ModeOnline
	assert.Equal(t, "(alice@example.org online)", a.getStatus())

	a.email = ""
	assert.Equal(t, "(online)", a.getStatus())
}

func TestSetMode_ReportsChangesOnce(t *testing.T) {
	var out bytes.Buffer
	a := &App{out: &out}

	a.setMode(ModeOnline)
	assert.Equal(t, "\nSwitched to online mode\n", out.String())

	out.Reset()
	a.setMode(ModeOnline)
	assert.Empty(t, out.String())

	a.setMode(ModeOffline)
	assert.Contains(t, out.String(), "offline")
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	var out bytes.Buffer
	p := &fakePinger{}
	p.fail.Store(true)
	a := &App{out: &out, health: p}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return a.getStatus() == "(offline)" }, time.Second, 5*time.Millisecond)
	p.fail.Store(false)
	require.Eventually(t, func() bool { return a.getStatus() == "(online)" }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewApp(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	a, err := NewApp(cfg)
	require.NoError(t, err)
	assert.NotNil(t, a.health)
	assert.False(t, a.isLoggedIn())

	cfg.HealthAddress = ""
	a, err = NewApp(cfg)
	require.NoError(t, err)
	assert.Nil(t, a.health)
}

func TestRun_ExitsOnInput(t *testing.T) {
	capturePrintln(t)
	var out bytes.Buffer
	cfg := &config.Config{OnlineCheckInterval: time.Hour}
	a := &App{config: cfg, api: &fakeBackend{}, reader: rdr("quit\n"), out: &out}

	a.Run(context.Background())
	assert.Contains(t, out.String(), "Welcome to the BMD CLI")
}
