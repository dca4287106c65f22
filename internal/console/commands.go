// Package console is the operator's command line: it turns slash commands
// into broadcasts.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/rs/zerolog"

	"pixelcast/assets"
	"pixelcast/handlers"
	"pixelcast/internal/logger"
)

var (
	ErrUsage          = errors.New("usage")
	ErrUnknownCommand = errors.New("unknown command, type /help for the list")
	ErrQuit           = errors.New("quit")
)

const HelpText = `Commands:
/help           - Show this help
/text <message> - Show a text message on every display
/image <spec>   - Show a PNG/JPG/JPEG image on every display
                    /image embed:logo.png
                    /image ./pictures/logo.png
/list           - List connected displays
/quit           - Stop the server
`

// Broadcaster is the part of the server the console drives.
type Broadcaster interface {
	BroadcastMessage(msg handlers.DisplayMessage) (int, error)
	Names() []string
}

// CommandFunc handles one command. arg is the rest of the line, trimmed.
type CommandFunc func(c *Console, arg string) error

// Console executes operator commands against a broadcaster.
type Console struct {
	server   Broadcaster
	out      io.Writer
	ttlMs    int64
	assets   fs.FS
	commands map[string]CommandFunc
	log      zerolog.Logger
}

// New builds a console writing its replies to out. Images named with the
// embed: prefix come from the bundled assets.
func New(server Broadcaster, out io.Writer, ttlMs int64) *Console {
	if ttlMs <= 0 {
		ttlMs = handlers.DefaultTTLMs
	}
	c := &Console{
		server: server,
		out:    out,
		ttlMs:  ttlMs,
		assets: assets.FS,
		log:    logger.With("console"),
	}
	c.registerCommands()
	return c
}

// SetAssets replaces the embedded asset tree.
func (c *Console) SetAssets(fsys fs.FS) { c.assets = fsys }

func (c *Console) registerCommands() {
	c.commands = map[string]CommandFunc{
		"help": func(c *Console, _ string) error {
			fmt.Fprint(c.out, HelpText)
			return nil
		},

		"list": func(c *Console, _ string) error {
			names := c.server.Names()
			fmt.Fprintf(c.out, "Connected (%d): [%s]\n", len(names), strings.Join(names, ", "))
			return nil
		},

		"text": func(c *Console, arg string) error {
			if arg == "" {
				return fmt.Errorf("%w: /text <message>", ErrUsage)
			}
			n, err := c.server.BroadcastMessage(handlers.NewText(arg, c.ttlMs))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Text sent to %d display(s)\n", n)
			return nil
		},

		"image": func(c *Console, arg string) error {
			if arg == "" {
				return fmt.Errorf("%w: /image <spec>  (example: /image embed:logo.png)", ErrUsage)
			}
			name, data, err := LoadImage(arg, c.assets)
			if err != nil {
				return err
			}
			n, err := c.server.BroadcastMessage(handlers.NewImage(name, data, c.ttlMs))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Image %s (%d bytes) sent to %d display(s)\n", name, len(data), n)
			return nil
		},

		"quit": func(c *Console, _ string) error {
			fmt.Fprintln(c.out, "Stopping server...")
			return ErrQuit
		},
	}
}

// Execute runs one input line. Blank lines do nothing. It returns ErrQuit
// for /quit; any other error is meant for the operator.
func (c *Console) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return ErrUnknownCommand
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	handler, ok := c.commands[strings.ToLower(name)]
	if !ok {
		return ErrUnknownCommand
	}
	c.log.Debug().Str("command", name).Msg("Operator command")
	return handler(c, strings.TrimSpace(arg))
}

// Run reads commands from in until /quit, end of input or ctx is done.
// Errors from individual commands are printed and the loop continues.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprint(c.out, HelpText)
	for {
		fmt.Fprint(c.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// End of input behaves like /quit.
				fmt.Fprintln(c.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			err := c.Execute(line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(c.out, "Error: %v\n", err)
			}
		}
	}
}
