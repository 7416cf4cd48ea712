package procadapter

import "io"

// ptyHandle abstracts PTY operations across Unix and Windows. On Unix it
// wraps creack/pty (*os.File); on Windows it wraps ConPTY.
type ptyHandle interface {
	io.ReadWriteCloser
	Resize(cols, rows uint16) error
}
