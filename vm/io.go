package vm

import (
	"fmt"
	"io"
	"os"
)

// streamSlots is the number of host file-stream slots addressable via
// the stream >> 8 & 7 selector (spec.md §3 / §6).
const streamSlots = 8

// IO is the per-instance host I/O multiplexer: stdin/stdout plus up to
// eight lazily-opened file streams (simin<i>/simout<i>). It owns its file
// handles exclusively for its lifetime and is never shared via global
// state — grounded on original_source/hexsimio.hpp's HexSimIO, not the
// process-global variant in original_source/util.hpp.
type IO struct {
	In  io.Reader
	Out io.Writer

	files     [streamSlots]*os.File
	connected [streamSlots]bool
	baseDir   string
}

// NewIO constructs an IO multiplexer. baseDir is the directory in which
// simin<i>/simout<i> files are opened; an empty baseDir uses the process
// working directory.
func NewIO(in io.Reader, out io.Writer, baseDir string) *IO {
	return &IO{In: in, Out: out, baseDir: baseDir}
}

func (io_ *IO) slotPath(prefix string, i int) string {
	name := fmt.Sprintf("%s%d", prefix, i)
	if io_.baseDir == "" {
		return name
	}
	return io_.baseDir + string(os.PathSeparator) + name
}

// Output writes value to stdout when stream < 256, else to the
// lazily-opened simout<i> file where i = (stream >> 8) & 7.
func (io_ *IO) Output(value byte, stream uint32) error {
	if stream < 256 {
		_, err := io_.Out.Write([]byte{value})
		return err
	}
	i := (stream >> 8) & 7
	if !io_.connected[i] {
		f, err := os.Create(io_.slotPath("simout", int(i)))
		if err != nil {
			return err
		}
		io_.files[i] = f
		io_.connected[i] = true
	}
	_, err := io_.files[i].Write([]byte{value})
	return err
}

// Input reads one byte from stdin when stream < 256, else from the
// lazily-opened simin<i> file. Returns -1 on EOF, matching the
// pass-through-to-guest contract in spec.md §4.C.
func (io_ *IO) Input(stream uint32) (int, error) {
	var r io.Reader
	if stream < 256 {
		r = io_.In
	} else {
		i := (stream >> 8) & 7
		if !io_.connected[i] {
			f, err := os.Open(io_.slotPath("simin", int(i)))
			if err != nil {
				return -1, err
			}
			io_.files[i] = f
			io_.connected[i] = true
		}
		r = io_.files[i]
	}
	var buf [1]byte
	n, err := r.Read(buf[:])
	if n == 0 || err != nil {
		return -1, nil
	}
	return int(buf[0]), nil
}

// Close releases every opened file-stream slot. Safe to call multiple
// times.
func (io_ *IO) Close() {
	for i := range io_.files {
		if io_.files[i] != nil {
			io_.files[i].Close()
			io_.files[i] = nil
			io_.connected[i] = false
		}
	}
}
