package reply

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"
	"strings"
)

// SectionSign starts a legacy formatting code in status text.
const SectionSign = '§'

const formattingCodes = "0123456789AaBbCcDdEeFfKkLlMmNnOoRrXx"

// TranslateColorCodes replaces alt (usually '&') with § wherever it is
// directly followed by a valid formatting code. "&&" or a trailing '&' is left alone.
func TranslateColorCodes(alt rune, text string) string {
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if runes[i] == alt && strings.ContainsRune(formattingCodes, runes[i+1]) {
			runes[i] = SectionSign
			runes[i+1] = toLower(runes[i+1])
		}
	}
	return string(runes)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// StripColorCodes removes § formatting codes.
func StripColorCodes(text string) string {
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == SectionSign && i+1 < len(runes) {
			i++
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

const iconSize = 64

// LoadIcon reads a 64x64 PNG and returns it in favicon form.
func LoadIcon(path string) (Icon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read icon: %w", err)
	}
	return EncodeIcon(raw)
}

// EncodeIcon validates PNG bytes and wraps them as a data URI.
func EncodeIcon(raw []byte) (Icon, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode icon: %w", err)
	}
	if cfg.Width != iconSize || cfg.Height != iconSize {
		return nil, fmt.Errorf("icon must be %dx%d, got %dx%d", iconSize, iconSize, cfg.Width, cfg.Height)
	}
	return Icon("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)), nil
}
