package panel

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"pixelcast/internal/pixel"
)

// Recorder tees every presented frame into a zstd stream of packed RGB888
// frames, width*height*3 bytes each, before passing the swap through.
type Recorder struct {
	Device
	enc    *zstd.Encoder
	sink   io.Closer
	frames int
	row    []byte
}

// Record wraps dev and writes captured frames to w. If w is also an
// io.Closer it is closed with the device.
func Record(dev Device, w io.Writer) (*Recorder, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("capture encoder: %w", err)
	}
	r := &Recorder{Device: dev, enc: enc}
	if c, ok := w.(io.Closer); ok {
		r.sink = c
	}
	return r, nil
}

// RecordFile opens (truncating) path and records into it.
func RecordFile(dev Device, path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture file: %w", err)
	}
	r, err := Record(dev, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) Swap() error {
	fb := r.Device.MapFramebuffer()
	width := fb.Width * pixel.BytesPerPixel
	if cap(r.row) < width {
		r.row = make([]byte, width)
	}
	row := r.row[:width]
	for y := 0; y < fb.Height; y++ {
		base := y * fb.Stride
		for x := 0; x < fb.Width; x++ {
			o := base + x*fb.BytesPerPixel
			copy(row[x*3:x*3+3], fb.Pix[o:o+3])
		}
		if _, err := r.enc.Write(row); err != nil {
			return fmt.Errorf("capture frame %d: %w", r.frames, err)
		}
	}
	r.frames++
	return r.Device.Swap()
}

// Frames counts captured frames.
func (r *Recorder) Frames() int { return r.frames }

func (r *Recorder) Close() error {
	errs := []error{r.enc.Close()}
	if r.sink != nil {
		errs = append(errs, r.sink.Close())
	}
	errs = append(errs, r.Device.Close())
	return errors.Join(errs...)
}

// ReadCapture decodes a capture stream back into frames of the given size.
// A trailing partial frame is an error.
func ReadCapture(rd io.Reader, width, height int) ([][]byte, error) {
	dec, err := zstd.NewReader(rd)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	size := width * height * pixel.BytesPerPixel
	if size <= 0 {
		return nil, fmt.Errorf("capture: invalid frame size %dx%d", width, height)
	}
	var frames [][]byte
	for {
		frame := make([]byte, size)
		_, err := io.ReadFull(dec, frame)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("capture frame %d: %w", len(frames), err)
		}
		frames = append(frames, frame)
	}
}
