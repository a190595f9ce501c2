// Package fileio reads and writes whole files in fixed-size chunks, checking
// for cancellation between chunks and reporting per-chunk progress.
package fileio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"modeltool/internal/errors"
	"modeltool/internal/log"
)

// DefaultChunkSize is the transfer unit used when none is configured.
const DefaultChunkSize = 4096

// forbiddenChars may never appear in a path handed to the gateway.
const forbiddenChars = `"*?|<>`

// ProgressFunc receives the percentage of the whole transfer that the last
// chunk represented. The deltas of one transfer sum to 100.
type ProgressFunc func(delta float64)

// Gateway is a chunked file reader/writer.
type Gateway struct {
	chunkSize int
}

// New creates a gateway. A non-positive chunk size selects DefaultChunkSize.
func New(chunkSize int) *Gateway {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Gateway{chunkSize: chunkSize}
}

// ChunkSize returns the transfer unit in bytes.
func (g *Gateway) ChunkSize() int {
	return g.chunkSize
}

// ValidatePath rejects empty paths and paths containing control characters
// or any of " * ? | < >. It never touches the filesystem.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewFileError("invalid file path", path, errors.InvalidPath, nil)
	}
	for _, r := range path {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(forbiddenChars, r) {
			return errors.NewFileError("invalid file path", path, errors.InvalidPath, nil)
		}
	}
	return nil
}

// ReadAll reads the file at path. The partial buffer is discarded if ctx is
// cancelled between chunks.
func (g *Gateway) ReadAll(ctx context.Context, path string, progress ProgressFunc) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(float64) {}
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileError("file does not exist", path, errors.InvalidPath, err)
		}
		return nil, errors.NewFileError("failed to open file", path, errors.IoError, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewFileError("failed to stat file", path, errors.IoError, err)
	}
	if info.IsDir() {
		return nil, errors.NewFileError("path is a directory", path, errors.InvalidPath, nil)
	}

	size := int(info.Size())
	if size == 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewFileError("read cancelled", path, errors.Cancelled, err)
		}
		progress(100)
		return []byte{}, nil
	}

	buf := make([]byte, size)
	for off := 0; off < size; {
		if err := ctx.Err(); err != nil {
			log.LogWithFields(log.F("path", path), log.F("offset", off)).Debug("Read cancelled")
			return nil, errors.NewFileError("read cancelled", path, errors.Cancelled, err)
		}
		end := off + g.chunkSize
		if end > size {
			end = size
		}
		n, err := io.ReadFull(f, buf[off:end])
		if err != nil {
			return nil, errors.NewFileError("failed to read file", path, errors.IoError, err)
		}
		off += n
		progress(float64(n) / float64(size) * 100)
	}
	return buf, nil
}

// WriteAll writes data to a temporary sibling of path and renames it over
// path once every chunk is on disk. On failure or cancellation the temporary
// file is removed and path is left as it was.
func (g *Gateway) WriteAll(ctx context.Context, path string, data []byte, progress ProgressFunc) (err error) {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if progress == nil {
		progress = func(float64) {}
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return errors.NewFileError("failed to create file", path, errors.IoError, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	size := len(data)
	if size == 0 {
		if err = ctx.Err(); err != nil {
			return errors.NewFileError("write cancelled", path, errors.Cancelled, err)
		}
		progress(100)
	}
	for off := 0; off < size; {
		if err = ctx.Err(); err != nil {
			log.LogWithFields(log.F("path", path), log.F("offset", off)).Debug("Write cancelled")
			return errors.NewFileError("write cancelled", path, errors.Cancelled, err)
		}
		end := off + g.chunkSize
		if end > size {
			end = size
		}
		var n int
		n, err = tmp.Write(data[off:end])
		if err != nil {
			return errors.NewFileError("failed to write file", path, errors.IoError, err)
		}
		off += n
		progress(float64(n) / float64(size) * 100)
	}

	if err = tmp.Sync(); err != nil {
		return errors.NewFileError("failed to flush file", path, errors.IoError, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.NewFileError("failed to close file", path, errors.IoError, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.NewFileError("failed to replace file", path, errors.IoError, err)
	}
	return nil
}
