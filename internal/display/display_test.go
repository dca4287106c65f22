package display

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelcast/handlers"
	"pixelcast/internal/pixel"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugePNG is a well-formed PNG header declaring w x h RGB pixels followed by
// an empty image stream, so the file stays tiny whatever it claims.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(kind string, data []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(data)))
		buf.Write(n[:])
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(data)
		buf.WriteString(kind)
		buf.Write(data)
		binary.BigEndian.PutUint32(n[:], crc.Sum32())
		buf.Write(n[:])
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 2
	chunk("IHDR", ihdr)

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	require.NoError(t, zw.Close())
	chunk("IDAT", idat.Bytes())
	chunk("IEND", nil)
	return buf.Bytes()
}

func TestDecodeImageChecksSizeBeforeDecoding(t *testing.T) {
	_, err := DecodeImage(hugePNG(t, 1<<20, 1<<20))
	assert.ErrorContains(t, err, "1048576x1048576")

	_, err = DecodeImage(hugePNG(t, MaxImagePixels+1, 1))
	assert.ErrorContains(t, err, "limit")

	g, err := DecodeImage(pngBytes(t, 4, 3, color.RGBA{G: 255, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, pixel.RGB{G: 255}, g.RGBAt(3, 2))
}

func TestTextVisibleForExactlyItsTTL(t *testing.T) {
	c := &clock{t: time.Unix(100, 0)}
	m := NewMachine(c.now, nil)
	start := c.t

	require.NoError(t, m.Apply(handlers.NewText("hello", 1000)))

	for _, offset := range []time.Duration{0, 500 * time.Millisecond, 999 * time.Millisecond} {
		c.t = start.Add(offset)
		st := m.Tick()
		assert.Equal(t, ModeText, st.Mode(), "offset %v", offset)
		assert.Equal(t, TextContent{Text: "hello"}, st.Content)
	}

	c.t = start.Add(1000 * time.Millisecond)
	assert.Equal(t, ModeIdle, m.Tick().Mode())
	assert.Nil(t, m.State().Content)
}

func TestNewMessageReplacesCurrent(t *testing.T) {
	c := &clock{t: time.Unix(100, 0)}
	m := NewMachine(c.now, nil)

	require.NoError(t, m.Apply(handlers.NewText("first", 5000)))
	c.t = c.t.Add(time.Second)
	require.NoError(t, m.Apply(handlers.NewImage("red.png", pngBytes(t, 3, 2, color.RGBA{R: 255, A: 255}), 5000)))

	st := m.Tick()
	require.Equal(t, ModeImage, st.Mode())
	img := st.Content.(ImageContent)
	assert.Equal(t, "red.png", img.Name)
	assert.Equal(t, 3, img.Grid.Width)
	assert.Equal(t, pixel.RGB{R: 255}, img.Grid.RGBAt(2, 1))
	assert.Equal(t, c.t.Add(5*time.Second), st.ExpiresAt)

	require.NoError(t, m.Apply(handlers.NewText("back to text", 10)))
	assert.Equal(t, ModeText, m.Tick().Mode())
}

func TestBadImageForcesIdle(t *testing.T) {
	tests := []struct {
		name string
		msg  handlers.DisplayMessage
	}{
		{"empty payload", handlers.DisplayMessage{Kind: handlers.KindImage, Name: "x.png", TTLMs: 100}},
		{"not base64", handlers.DisplayMessage{Kind: handlers.KindImage, Name: "x.png", B64: "%%%", TTLMs: 100}},
		{"not an image", handlers.NewImage("x.png", []byte("definitely not a png"), 100)},
		{"oversized header", handlers.NewImage("bomb.png", hugePNG(t, 1<<20, 1<<20), 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &clock{t: time.Unix(100, 0)}
			m := NewMachine(c.now, nil)
			require.NoError(t, m.Apply(handlers.NewText("before", 5000)))

			err := m.Apply(tt.msg)
			assert.ErrorIs(t, err, ErrBadImage)
			assert.Equal(t, ModeIdle, m.Tick().Mode())
		})
	}
}

func TestHugeTTLStaysVisible(t *testing.T) {
	for _, frame := range []string{
		`{"type":"text","message":"forever","ttl_ms":1e13}`,
		`{"type":"text","message":"forever","ttl_ms":1e300}`,
	} {
		c := &clock{t: time.Now()}
		m := NewMachine(c.now, nil)

		msg, err := handlers.Decode([]byte(frame))
		require.NoError(t, err)
		require.NoError(t, m.Apply(msg))

		st := m.Tick()
		assert.Equal(t, ModeText, st.Mode(), frame)
		assert.True(t, st.ExpiresAt.After(c.t), frame)

		c.t = c.t.Add(24 * 365 * time.Hour)
		assert.Equal(t, ModeText, m.Tick().Mode(), frame)
	}

	m := NewMachine(nil, nil)
	require.NoError(t, m.Apply(handlers.DisplayMessage{Kind: handlers.KindText, Text: "raw", TTLMs: math.MaxInt64}))
	assert.Equal(t, ModeText, m.Tick().Mode())
}

func TestDecoderErrorIsWrapped(t *testing.T) {
	boom := errors.New("codec exploded")
	m := NewMachine(nil, func([]byte) (*pixel.Grid, error) { return nil, boom })

	err := m.Apply(handlers.NewImage("a.png", []byte{1}, 100))
	assert.ErrorIs(t, err, ErrBadImage)
	assert.ErrorContains(t, err, "codec exploded")
}

func TestRosterLeavesStateAlone(t *testing.T) {
	c := &clock{t: time.Unix(100, 0)}
	m := NewMachine(c.now, nil)
	require.NoError(t, m.Apply(handlers.NewText("keep", 5000)))

	require.NoError(t, m.Apply(handlers.NewRoster("Mario", []string{"Mario", "Luigi"})))
	assert.Equal(t, TextContent{Text: "keep"}, m.Tick().Content)
}

func TestInboxLatestWins(t *testing.T) {
	in := NewInbox()
	_, ok := in.Take()
	assert.False(t, ok)

	in.Post(handlers.NewText("a", 1))
	in.Post(handlers.NewText("b", 1))
	in.Post(handlers.NewText("c", 1))

	msg, ok := in.Take()
	require.True(t, ok)
	assert.Equal(t, "c", msg.Text)
	assert.Equal(t, uint64(2), in.Drops())

	_, ok = in.Take()
	assert.False(t, ok)
}

func TestInboxConcurrentPosts(t *testing.T) {
	in := NewInbox()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			in.Post(handlers.NewText("x", 1))
		}
	}()

	taken := 0
	for {
		if _, ok := in.Take(); ok {
			taken++
		}
		select {
		case <-done:
			if _, ok := in.Take(); ok {
				taken++
			}
			assert.Equal(t, uint64(1000), uint64(taken)+in.Drops())
			return
		default:
		}
	}
}
