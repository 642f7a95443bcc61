package acquisition

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// FileSource replays a 16-bit PCM stereo WAV file as a sequence of
// AudioFrames, looping is not performed — the frame channel closes at
// end of file. Reopening after a read error is the caller's
// responsibility (the spec treats file-source failures as recoverable
// via reopen, unlike device failures).
type FileSource struct {
	path       string
	frameSize  int
	file       *os.File
	sampleRate uint32
	dataStart  int64
	dataEnd    int64

	err    error
	closed bool
}

// wavFmtChunk mirrors the canonical PCM "fmt " sub-chunk layout.
type wavFmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// NewFileSource opens path, parses its RIFF/WAVE header, and validates
// that it is 16-bit stereo PCM (the only format this reader supports).
func NewFileSource(path string, frameSize int) (*FileSource, error) {
	if frameSize <= 0 {
		frameSize = 4096
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acquisition: opening wav file: %w", err)
	}

	fs, err := parseWAVHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileSource{
		path:       path,
		frameSize:  frameSize,
		file:       f,
		sampleRate: fs.sampleRate,
		dataStart:  fs.dataStart,
		dataEnd:    fs.dataEnd,
	}, nil
}

type wavLayout struct {
	sampleRate uint32
	dataStart  int64
	dataEnd    int64
}

func parseWAVHeader(f *os.File) (wavLayout, error) {
	var riffHeader [12]byte
	if _, err := io.ReadFull(f, riffHeader[:]); err != nil {
		return wavLayout{}, fmt.Errorf("acquisition: reading riff header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return wavLayout{}, fmt.Errorf("acquisition: not a RIFF/WAVE file")
	}

	var fmtChunk wavFmtChunk
	var dataStart, dataEnd int64
	haveFmt, haveData := false, false

	for !haveData {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(f, chunkHeader[:]); err != nil {
			return wavLayout{}, fmt.Errorf("acquisition: reading chunk header: %w", err)
		}
		id := string(chunkHeader[0:4])
		size := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch id {
		case "fmt ":
			if err := binary.Read(io.LimitReader(f, int64(size)), binary.LittleEndian, &fmtChunk); err != nil {
				return wavLayout{}, fmt.Errorf("acquisition: reading fmt chunk: %w", err)
			}
			haveFmt = true
			if size%2 == 1 {
				f.Seek(1, io.SeekCurrent)
			}
		case "data":
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return wavLayout{}, err
			}
			dataStart = pos
			dataEnd = pos + int64(size)
			haveData = true
		default:
			if _, err := f.Seek(int64(size)+int64(size%2), io.SeekCurrent); err != nil {
				return wavLayout{}, fmt.Errorf("acquisition: skipping chunk %q: %w", id, err)
			}
		}
	}

	if !haveFmt {
		return wavLayout{}, fmt.Errorf("acquisition: wav file missing fmt chunk")
	}
	if fmtChunk.AudioFormat != 1 || fmtChunk.BitsPerSample != 16 || fmtChunk.NumChannels != 2 {
		return wavLayout{}, fmt.Errorf("acquisition: only 16-bit stereo PCM wav is supported, got format=%d channels=%d bits=%d",
			fmtChunk.AudioFormat, fmtChunk.NumChannels, fmtChunk.BitsPerSample)
	}

	if _, err := f.Seek(dataStart, io.SeekStart); err != nil {
		return wavLayout{}, err
	}

	return wavLayout{sampleRate: fmtChunk.SampleRate, dataStart: dataStart, dataEnd: dataEnd}, nil
}

// Frames streams frameSize-sample blocks until end of file, context
// cancellation, or a read error.
func (fsrc *FileSource) Frames(ctx context.Context) (<-chan AudioFrame, error) {
	out := make(chan AudioFrame, subscriberBuffer)

	go func() {
		defer close(out)

		var frameIndex uint64
		bytesPerFrame := fsrc.frameSize * 2 * 2 // stereo, 16-bit
		buf := make([]byte, bytesPerFrame)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			pos, _ := fsrc.file.Seek(0, io.SeekCurrent)
			if pos >= fsrc.dataEnd {
				return
			}

			remaining := fsrc.dataEnd - pos
			toRead := int64(len(buf))
			if remaining < toRead {
				toRead = remaining
			}

			n, err := io.ReadFull(fsrc.file, buf[:toRead])
			if err != nil && err != io.ErrUnexpectedEOF {
				fsrc.err = fmt.Errorf("acquisition: reading wav data: %w", err)
				return
			}

			samples := n / 4
			ch1 := make([]float32, samples)
			ch2 := make([]float32, samples)
			for i := 0; i < samples; i++ {
				l := int16(binary.LittleEndian.Uint16(buf[i*4:]))
				r := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
				ch1[i] = float32(l) / 32768.0
				ch2[i] = float32(r) / 32768.0
			}

			frame := AudioFrame{
				Channel1:   ch1,
				Channel2:   ch2,
				SampleRate: fsrc.sampleRate,
				Timestamp:  time.Now(),
				FrameIndex: frameIndex,
			}
			frameIndex++

			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}

			if n < len(buf) {
				return
			}
		}
	}()

	return out, nil
}

// Err returns the error that stopped playback, if any.
func (fsrc *FileSource) Err() error { return fsrc.err }

// Close closes the underlying file handle.
func (fsrc *FileSource) Close() error {
	if fsrc.closed {
		return nil
	}
	fsrc.closed = true
	return fsrc.file.Close()
}
