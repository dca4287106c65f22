package console

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelcast/handlers"
)

type fakeServer struct {
	mu    sync.Mutex
	sent  []handlers.DisplayMessage
	names []string
	err   error
}

func (f *fakeServer) BroadcastMessage(msg handlers.DisplayMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, msg)
	return len(f.names), nil
}

func (f *fakeServer) Names() []string { return f.names }

func newConsole(t *testing.T) (*Console, *fakeServer, *bytes.Buffer) {
	t.Helper()
	srv := &fakeServer{names: []string{"Mario", "Luigi"}}
	var out bytes.Buffer
	c := New(srv, &out, 0)
	c.SetAssets(fstest.MapFS{
		"logo.png":  {Data: []byte("png-bytes")},
		"notes.txt": {Data: []byte("hello")},
	})
	return c, srv, &out
}

func TestTextBroadcastsWithDefaultTTL(t *testing.T) {
	c, srv, out := newConsole(t)

	require.NoError(t, c.Execute("/text   Hola a tothom!  "))
	require.Len(t, srv.sent, 1)
	assert.Equal(t, handlers.KindText, srv.sent[0].Kind)
	assert.Equal(t, "Hola a tothom!", srv.sent[0].Text)
	assert.Equal(t, int64(5000), srv.sent[0].TTLMs)
	assert.Contains(t, out.String(), "sent to 2 display(s)")
}

func TestUsageErrors(t *testing.T) {
	c, srv, _ := newConsole(t)

	assert.ErrorIs(t, c.Execute("/text"), ErrUsage)
	assert.ErrorIs(t, c.Execute("/text    "), ErrUsage)
	assert.ErrorIs(t, c.Execute("/image"), ErrUsage)
	assert.Empty(t, srv.sent)
}

func TestImageRejectsDisallowedExtensionBeforeBroadcast(t *testing.T) {
	c, srv, _ := newConsole(t)

	for _, spec := range []string{"bad.gif", "logo.b64", "embed:notes.txt", "noext"} {
		err := c.Execute("/image " + spec)
		assert.ErrorIs(t, err, ErrExtension, spec)
	}
	assert.Empty(t, srv.sent)
}

func TestImageFromFile(t *testing.T) {
	c, srv, _ := newConsole(t)
	path := filepath.Join(t.TempDir(), "Photo.JPG")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o644))

	require.NoError(t, c.Execute("/image "+path))
	require.Len(t, srv.sent, 1)
	msg := srv.sent[0]
	assert.Equal(t, handlers.KindImage, msg.Kind)
	assert.Equal(t, "Photo.JPG", msg.Name)
	data, err := msg.ImageBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
}

func TestImageFromEmbeddedAssets(t *testing.T) {
	c, srv, _ := newConsole(t)

	require.NoError(t, c.Execute("/image embed:/logo.png"))
	require.Len(t, srv.sent, 1)
	assert.Equal(t, "logo.png", srv.sent[0].Name)

	assert.Error(t, c.Execute("/image embed:missing.png"))
	assert.Len(t, srv.sent, 1)
}

func TestBundledLogoIsLoadable(t *testing.T) {
	name, data, err := LoadImage("embed:logo.png", New(&fakeServer{}, &bytes.Buffer{}, 0).assets)
	require.NoError(t, err)
	assert.Equal(t, "logo.png", name)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestMissingFile(t *testing.T) {
	_, _, err := LoadImage(filepath.Join(t.TempDir(), "nope.png"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListHelpAndUnknown(t *testing.T) {
	c, _, out := newConsole(t)

	require.NoError(t, c.Execute("/LIST"))
	assert.Contains(t, out.String(), "Connected (2): [Mario, Luigi]")

	require.NoError(t, c.Execute("/help"))
	assert.Contains(t, out.String(), "/image <spec>")

	assert.ErrorIs(t, c.Execute("/dance"), ErrUnknownCommand)
	assert.ErrorIs(t, c.Execute("plain words"), ErrUnknownCommand)
	assert.NoError(t, c.Execute("   "))
	assert.ErrorIs(t, c.Execute("/quit"), ErrQuit)
}

func TestBroadcastErrorSurfaces(t *testing.T) {
	c, srv, _ := newConsole(t)
	srv.err = errors.New("encode failed")

	assert.ErrorContains(t, c.Execute("/text hi"), "encode failed")
}

func TestRunStopsAtQuit(t *testing.T) {
	c, srv, out := newConsole(t)
	in := strings.NewReader("/text one\n/bogus\n/quit\n/text never\n")

	require.NoError(t, c.Run(context.Background(), in))
	require.Len(t, srv.sent, 1)
	assert.Equal(t, "one", srv.sent[0].Text)
	assert.Contains(t, out.String(), "Error: unknown command")
}

func TestRunTreatsEOFAsQuit(t *testing.T) {
	c, srv, _ := newConsole(t)
	in := strings.NewReader("/text one\n/image embed:logo.png")

	require.NoError(t, c.Run(context.Background(), in))
	require.Len(t, srv.sent, 2)
	assert.Equal(t, handlers.KindImage, srv.sent[1].Kind)
}

func TestLogPaneBuffersUntilAttached(t *testing.T) {
	pane := NewLogPane()
	pane.Write([]byte("early\n"))
	assert.Equal(t, "early\n", string(pane.Pending()))

	var sink bytes.Buffer
	pane.attach(&sink)
	assert.Equal(t, "early\n", sink.String())
	assert.Empty(t, pane.Pending())

	pane.Write([]byte("live\n"))
	assert.Equal(t, "early\nlive\n", sink.String())

	pane.attach(nil)
	pane.Write([]byte("late\n"))
	assert.Equal(t, "late\n", string(pane.Pending()))
}
