package main

import (
	"io"
	"log"
	"testing"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/pingapi/pkg/config"
	"github.com/go-mclib/pingapi/pkg/ping"
	"github.com/go-mclib/pingapi/pkg/status"
)

type nopConn struct{}

func (nopConn) SendPacket(pk.Packet) error { return nil }
func (nopConn) IsOpen() bool               { return true }

func testConfig() config.Config {
	return config.Config{
		ListenAddr: "127.0.0.1:0",
		Status: config.StatusConfig{
			MOTD:        "&bHello",
			VersionName: "PingAPI",
			MaxPlayers:  20,
			Sample:      []string{"alice"},
		},
		Animation: config.AnimationConfig{
			Steps:       4,
			PeriodTicks: 1,
			MOTDFrames:  []string{"&aA", "&bB"},
		},
		MaxLogLines: 100,
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := NewApp(testConfig(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestStatusEchoesProtocol(t *testing.T) {
	a := newTestApp(t)
	r := a.status(status.Handshake{ProtocolVersion: 765, Intent: status.IntentStatus})
	if r.ProtocolVersion() != 765 {
		t.Errorf("ProtocolVersion() = %d, want 765", r.ProtocolVersion())
	}
	if r.MOTD() != "§bHello" {
		t.Errorf("MOTD() = %q, want %q", r.MOTD(), "§bHello")
	}
	if got := r.PlayerSample(); len(got) != 1 || got[0] != "alice" {
		t.Errorf("PlayerSample() = %v", got)
	}

	a.Config.Status.Protocol = 47
	if r := a.status(status.Handshake{ProtocolVersion: 765}); r.ProtocolVersion() != 47 {
		t.Errorf("ProtocolVersion() = %d, want fixed 47", r.ProtocolVersion())
	}
}

func TestExecuteCommands(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		line    string
		wantErr bool
	}{
		{"/motd &cClosed", false},
		{"/motd", true},
		{"/max 5", false},
		{"/max -1", true},
		{"/max x", true},
		{"/animate on", false},
		{"/animate maybe", true},
		{"/pong block", false},
		{"/stats", false},
		{"/nope", true},
	}
	for _, tt := range tests {
		_, err := a.Execute(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("Execute(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
		}
	}

	if !a.Animator.Enabled() || !a.Pong.Enabled() {
		t.Error("toggles not applied")
	}
	a.Execute("/animate off")

	e := ping.NewEvent(a.status(status.Handshake{ProtocolVersion: 765}), status.Modern)
	e.Reply().SetConn(nopConn{})
	a.Registry.Dispatch(e, a.Logger)
	if got := e.Reply().MOTD(); got != "§cClosed" {
		t.Errorf("MOTD() = %q, want %q", got, "§cClosed")
	}
	if got := e.Reply().MaxPlayers(); got != 5 {
		t.Errorf("MaxPlayers() = %d, want 5", got)
	}
	if !e.IsPongCancelled() {
		t.Error("pong not cancelled after /pong block")
	}
	if e.IsCancelled() {
		t.Error("response cancelled with animation off")
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	a := newTestApp(t)
	a.Shutdown()
	if _, err := a.Execute("/stop"); err != nil {
		t.Fatal(err)
	}
}
