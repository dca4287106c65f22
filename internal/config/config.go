// Package config loads the YAML configuration and overlays command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pixelcast/internal/fit"
)

// Modes
const (
	ModeServer  = "server"
	ModeDisplay = "display"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the complete process configuration.
type Config struct {
	Mode     string        `yaml:"mode"`      // server, display
	LogLevel string        `yaml:"log_level"` // debug, info, warn, error
	Server   ServerConfig  `yaml:"server"`
	Display  DisplayConfig `yaml:"display"`
}

// ServerConfig contains broadcast server settings
type ServerConfig struct {
	Listen                 string   `yaml:"listen"`
	Names                  []string `yaml:"names"`                     // name pool handed out on connect
	TTLMs                  int64    `yaml:"ttl_ms"`                    // ttl of operator messages
	ConnectionLostTimeoutS int      `yaml:"connection_lost_timeout_s"` // pong deadline
	UI                     bool     `yaml:"ui"`                        // full-screen operator console
}

// DisplayConfig contains display client settings
type DisplayConfig struct {
	ServerURL       string      `yaml:"server_url"`
	Driver          string      `yaml:"driver"`  // terminal, null
	Capture         string      `yaml:"capture"` // optional zstd frame capture file
	Panel           PanelConfig `yaml:"panel"`
	FPSCap          int         `yaml:"fps_cap"` // 0 = uncapped
	EMAAlpha        float64     `yaml:"ema_alpha"`
	Fit             string      `yaml:"fit"` // cover, contain, stretch, center, tile, none
	TextX           int         `yaml:"text_x"`
	ReservedTop     int         `yaml:"reserved_top"` // band kept for the FPS overlay
	TextTopPad      int         `yaml:"text_top_pad"`
	HideFPS         bool        `yaml:"hide_fps"`
	ReconnectPerSec float64     `yaml:"reconnect_per_s"`
}

// PanelConfig describes the LED matrix handed to the driver
type PanelConfig struct {
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
	AddrLines  int `yaml:"addr_lines"`
	Lanes      int `yaml:"lanes"`
	Brightness int `yaml:"brightness"` // 0..255, applied in software
}

// Default returns the settings used for anything the file and flags omit.
func Default() Config {
	return Config{
		Mode:     ModeServer,
		LogLevel: "info",
		Server: ServerConfig{
			Listen:                 ":3000",
			Names:                  []string{"Mario", "Luigi", "Peach"},
			TTLMs:                  5000,
			ConnectionLostTimeoutS: 100,
		},
		Display: DisplayConfig{
			ServerURL: "ws://localhost:3000",
			Driver:    "terminal",
			Panel: PanelConfig{
				Width:      64,
				Height:     64,
				AddrLines:  5,
				Lanes:      2,
				Brightness: 200,
			},
			FPSCap:          60,
			EMAAlpha:        0.12,
			Fit:             "contain",
			TextX:           5,
			ReservedTop:     12,
			TextTopPad:      2,
			ReconnectPerSec: 0.5,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := Decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. An empty document leaves cfg as is.
func Decode(r io.Reader, cfg *Config) error {
	err := yaml.NewDecoder(r).Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Parse builds the configuration from args (without the program name):
// defaults, then the file named by -config, then any flags given explicitly.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("pixelcast", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	path := fs.String("config", "", "YAML config file")
	mode := fs.String("mode", "", "server or display")
	logLevel := fs.String("log-level", "", "debug, info, warn, error")
	listen := fs.String("listen", "", "server listen address")
	ui := fs.Bool("ui", false, "full-screen operator console")
	serverURL := fs.String("server", "", "websocket URL of the broadcast server")
	driver := fs.String("driver", "", "panel driver: terminal, null")
	capture := fs.String("capture", "", "write presented frames to a zstd file")
	brightness := fs.Int("brightness", 0, "software brightness 0..255")
	fps := fs.Int("fps", 0, "frame rate cap, 0 for uncapped")
	fit := fs.String("fit", "", "image fit mode")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg, err := Load(*path)
	if err != nil {
		return cfg, err
	}

	// A bare positional argument is the server URL (display) or listen address (server).
	positional := fs.Arg(0)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = *mode
		case "log-level":
			cfg.LogLevel = *logLevel
		case "listen":
			cfg.Server.Listen = *listen
		case "ui":
			cfg.Server.UI = *ui
		case "server":
			cfg.Display.ServerURL = *serverURL
		case "driver":
			cfg.Display.Driver = *driver
		case "capture":
			cfg.Display.Capture = *capture
		case "brightness":
			cfg.Display.Panel.Brightness = *brightness
		case "fps":
			cfg.Display.FPSCap = *fps
		case "fit":
			cfg.Display.Fit = *fit
		}
	})

	if positional != "" {
		if cfg.Mode == ModeDisplay {
			cfg.Display.ServerURL = positional
		} else {
			cfg.Server.Listen = positional
		}
	}

	return cfg, cfg.Validate()
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	var problems []string
	switch c.Mode {
	case ModeServer, ModeDisplay:
	default:
		problems = append(problems, fmt.Sprintf("mode %q", c.Mode))
	}
	if c.Server.TTLMs < 1 {
		problems = append(problems, "server.ttl_ms must be >= 1")
	}
	p := c.Display.Panel
	if p.Width <= 0 || p.Height <= 0 {
		problems = append(problems, fmt.Sprintf("panel size %dx%d", p.Width, p.Height))
	}
	if p.Brightness < 0 || p.Brightness > 255 {
		problems = append(problems, fmt.Sprintf("brightness %d outside 0..255", p.Brightness))
	}
	if c.Display.FPSCap < 0 {
		problems = append(problems, "fps_cap must be >= 0")
	}
	if _, err := fit.ParseMode(c.Display.Fit); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.Display.Driver {
	case "terminal", "null":
	default:
		problems = append(problems, fmt.Sprintf("driver %q", c.Display.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
