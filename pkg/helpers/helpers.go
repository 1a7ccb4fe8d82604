package helpers

import (
	"flag"
	"log"
	"os"

	"github.com/go-mclib/pingapi/pkg/config"
)

// Flags holds common CLI flags for pingapi-server.
type Flags struct {
	ConfigPath  string
	Listen      string
	Verbose     bool
	Interactive bool
}

// RegisterFlags registers the standard CLI flags on fs (flag.CommandLine if nil).
func RegisterFlags(fs *flag.FlagSet, f *Flags) {
	if fs == nil {
		fs = flag.CommandLine
	}
	fs.StringVar(&f.ConfigPath, "c", "", "config file (default: pingapi.yaml in . or config/)")
	fs.StringVar(&f.Listen, "l", "", "listen address, overrides server.listen")
	fs.BoolVar(&f.Verbose, "v", false, "verbose logging")
	fs.BoolVar(&f.Interactive, "i", false, "enable interactive console")
}

// LoadConfig loads the config file named by f and applies flag overrides.
func LoadConfig(f Flags) (config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.Listen != "" {
		cfg.ListenAddr = f.Listen
	}
	return cfg, nil
}

// NewLogger returns the default stdout logger.
func NewLogger() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}
