package reply

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

func TestSetPlayerSampleNil(t *testing.T) {
	r := New(nil)
	r.SetPlayerSample([]string{"a"})
	r.SetPlayerSample(nil)

	got := r.PlayerSample()
	if got == nil {
		t.Fatal("PlayerSample() = nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("len(PlayerSample()) = %d, want 0", len(got))
	}
}

func TestPlayerSampleIsCopied(t *testing.T) {
	names := []string{"Notch", "jeb_"}
	r := New(nil)
	r.SetPlayerSample(names)
	names[0] = "changed"

	got := r.PlayerSample()
	if got[0] != "Notch" {
		t.Errorf("PlayerSample()[0] = %q, want %q", got[0], "Notch")
	}
	got[1] = "changed"
	if r.PlayerSample()[1] != "jeb_" {
		t.Error("mutating the returned sample changed the reply")
	}
}

func TestSampleIndependentOfCounts(t *testing.T) {
	r := New(nil)
	r.SetOnlinePlayers(200)
	r.SetMaxPlayers(500)
	r.SetPlayerSample([]string{"a", "a"})

	if r.OnlinePlayers() != 200 || r.MaxPlayers() != 500 {
		t.Errorf("counts = %d/%d, want 200/500", r.OnlinePlayers(), r.MaxPlayers())
	}
	if len(r.PlayerSample()) != 2 {
		t.Errorf("len(PlayerSample()) = %d, want 2 (duplicates kept)", len(r.PlayerSample()))
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := New(nil)
	r.SetMOTD("hello")
	r.SetPlayerSample([]string{"x"})
	r.SetIcon(Icon("data:image/png;base64,AAAA"))
	r.SetChatFlags(ChatFlags{EnforcesSecureChat: true})

	c := r.Clone()
	if !c.Equal(r) {
		t.Fatal("clone not equal to original")
	}
	c.SetMOTD("other")
	c.SetPlayerSample([]string{"y"})
	if r.MOTD() != "hello" || r.PlayerSample()[0] != "x" {
		t.Error("mutating the clone changed the original")
	}
	if c.Equal(r) {
		t.Error("Equal() = true after mutation, want false")
	}
}

func TestTranslateColorCodes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"&aGreen", "§aGreen"},
		{"&LBold", "§lBold"},
		{"&&a", "&§a"},
		{"fish & chips", "fish & chips"},
		{"trailing&", "trailing&"},
		{"&zbad", "&zbad"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TranslateColorCodes('&', tt.in); got != tt.want {
			t.Errorf("TranslateColorCodes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripColorCodes(t *testing.T) {
	if got := StripColorCodes("§aA§lB"); got != "AB" {
		t.Errorf("StripColorCodes() = %q, want %q", got, "AB")
	}
}

func TestEncodeIcon(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatal(err)
	}
	icon, err := EncodeIcon(buf.Bytes())
	if err != nil {
		t.Fatalf("EncodeIcon() error = %v", err)
	}
	if !strings.HasPrefix(string(icon), "data:image/png;base64,") {
		t.Errorf("icon prefix = %q", string(icon)[:22])
	}

	buf.Reset()
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatal(err)
	}
	if _, err := EncodeIcon(buf.Bytes()); err == nil {
		t.Error("EncodeIcon(32x32) error = nil, want size error")
	}
}
