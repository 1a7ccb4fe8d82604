package helpers

import (
	"flag"
	"testing"
)

func TestRegisterFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var f Flags
	RegisterFlags(fs, &f)
	if err := fs.Parse([]string{"-l", ":25570", "-v", "-i"}); err != nil {
		t.Fatal(err)
	}
	want := Flags{Listen: ":25570", Verbose: true, Interactive: true}
	if f != want {
		t.Errorf("flags = %+v, want %+v", f, want)
	}
}

func TestLoadConfigOverridesListen(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig(Flags{Listen: "127.0.0.1:0"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != "127.0.0.1:0" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, "127.0.0.1:0")
	}
}
