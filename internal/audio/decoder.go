package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrDecode wraps every failure to turn a track file into a sample stream
var ErrDecode = errors.New("cannot decode track")

// Decoder opens a file as a seekable sample stream
type Decoder interface {
	Decode(path string) (beep.StreamSeekCloser, beep.Format, error)
}

// FileDecoder picks a codec by file extension
type FileDecoder struct{}

// Decode opens path. The returned streamer owns the file and closes it.
func (FileDecoder) Decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var decode func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)
	switch ext {
	case ".mp3":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) }
	case ".flac":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(f) }
	case ".wav":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) }
	case ".ogg":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) }
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported format %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	s, format, err := decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}
