package clip

import (
	"bufio"
	"fmt"
	"os"

	"github.com/diogocs32/penareia-bridge/internal/daemonerr"
	"github.com/diogocs32/penareia-bridge/internal/ring"
)

// writeRawContainer writes frames sequentially as raw rgb24 samples to path.
// This is the intermediate container the Transcoder Adapter reads back with
// an explicit -f rawvideo -s WxH input spec; width and height are not
// embedded in the file itself.
func writeRawContainer(path string, frames []ring.Frame, width, height int) error {
	f, err := os.Create(path)
	if err != nil {
		return &daemonerr.WriterOpenFailedError{Path: path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, frame := range frames {
		if frame.Width != width || frame.Height != height {
			return &daemonerr.WriterWriteFailedError{
				Path: path,
				Err:  fmt.Errorf("frame dimensions %dx%d differ from expected %dx%d", frame.Width, frame.Height, width, height),
			}
		}
		if _, err := w.Write(frame.Data); err != nil {
			return &daemonerr.WriterWriteFailedError{Path: path, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		return &daemonerr.WriterWriteFailedError{Path: path, Err: err}
	}
	return nil
}
