package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
)

// UI is the full-screen variant of the console: a scrolling log, the live
// roster and an input line.
type UI struct {
	gui         *gocui.Gui
	console     *Console
	server      Broadcaster
	logView     string
	clientsView string
	inputView   string
	helpView    string
	showHelp    bool
	pane        *LogPane
}

// NewUI builds the full-screen console. pane, if not nil, starts feeding
// the log view while the UI is running.
func NewUI(server Broadcaster, ttlMs int64, pane *LogPane) (*UI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	ui := &UI{
		gui:         g,
		server:      server,
		logView:     "log",
		clientsView: "clients",
		inputView:   "input",
		helpView:    "help",
	}
	ui.console = New(server, viewWriter{ui}, ttlMs)
	ui.pane = pane

	g.Cursor = true
	g.SetManagerFunc(ui.layout)
	return ui, nil
}

func (ui *UI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	sidebarWidth := 20
	logWidth := maxX - sidebarWidth - 1
	logHeight := maxY - 4

	if v, err := g.SetView(ui.logView, 0, 0, logWidth, logHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Broadcasts"
		v.Wrap = true
		v.Autoscroll = true
		fmt.Fprint(v, "Ctrl-H: help | Ctrl-C: quit\n")
	}

	if v, err := g.SetView(ui.clientsView, logWidth+1, 0, maxX-1, logHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Displays"
		ui.updateClients()
	}

	if v, err := g.SetView(ui.inputView, 0, logHeight+1, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Command"
		v.Editable = true
		if _, err := g.SetCurrentView(ui.inputView); err != nil {
			return err
		}
	}

	if ui.showHelp {
		if v, err := g.SetView(ui.helpView, maxX/6, maxY/6, maxX*5/6, maxY*5/6); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Title = "Help"
			fmt.Fprint(v, HelpText)
		}
	} else if err := g.DeleteView(ui.helpView); err != nil && err != gocui.ErrUnknownView {
		return err
	}

	return nil
}

func (ui *UI) updateClients() {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.clientsView)
		if err != nil {
			return err
		}
		v.Clear()
		for _, name := range ui.server.Names() {
			fmt.Fprintln(v, name)
		}
		return nil
	})
}

func (ui *UI) keybindings() error {
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(_ *gocui.Gui, _ *gocui.View) error {
			return gocui.ErrQuit
		}); err != nil {
		return err
	}

	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlH, gocui.ModNone,
		func(_ *gocui.Gui, _ *gocui.View) error {
			ui.showHelp = !ui.showHelp
			return nil
		}); err != nil {
		return err
	}

	return ui.gui.SetKeybinding(ui.inputView, gocui.KeyEnter, gocui.ModNone, ui.handleInput)
}

func (ui *UI) handleInput(_ *gocui.Gui, v *gocui.View) error {
	input := strings.TrimSpace(v.Buffer())
	v.Clear()
	v.SetCursor(0, 0)
	if input == "" {
		return nil
	}

	fmt.Fprintf(viewWriter{ui}, "> %s\n", input)
	err := ui.console.Execute(input)
	if errors.Is(err, ErrQuit) {
		return gocui.ErrQuit
	}
	if err != nil {
		fmt.Fprintf(viewWriter{ui}, "Error: %v\n", err)
	}
	ui.updateClients()
	return nil
}

// Run blocks until the operator quits or ctx is done.
func (ui *UI) Run(ctx context.Context) error {
	if err := ui.keybindings(); err != nil {
		return err
	}
	if ui.pane != nil {
		ui.pane.attach(viewWriter{ui})
		defer ui.pane.attach(nil)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				ui.gui.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
				return
			case <-ticker.C:
				ui.updateClients()
			}
		}
	}()

	if err := ui.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

func (ui *UI) Close() {
	ui.gui.Close()
}

// viewWriter appends console output to the log view from any goroutine.
type viewWriter struct {
	ui *UI
}

func (w viewWriter) Write(p []byte) (int, error) {
	text := string(p)
	w.ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(w.ui.logView)
		if err != nil {
			return err
		}
		fmt.Fprint(v, text)
		return nil
	})
	return len(p), nil
}

// LogPane is an io.Writer for log output that holds lines until a UI is
// running and then appends them to its log view. Output written after the
// UI stops is buffered again.
type LogPane struct {
	mu  sync.Mutex
	buf []byte
	out io.Writer
}

func NewLogPane() *LogPane {
	return &LogPane{}
}

func (p *LogPane) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		p.buf = append(p.buf, b...)
		return len(b), nil
	}
	return p.out.Write(b)
}

// Pending returns what was written while no UI was attached.
func (p *LogPane) Pending() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.buf...)
}

func (p *LogPane) attach(out io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
	if out != nil && len(p.buf) > 0 {
		out.Write(p.buf)
		p.buf = p.buf[:0]
	}
}
