// Package commit writes cached artifacts and proves they landed intact.
//
// Commit serializes a value, writes it next to its destination, renames it into
// place, then reads the file back and compares it with the in-memory value.
// Completion of a unit of work is detected by a file that decodes to the
// expected content, so every evaluator task built on Commit is idempotent.
package commit

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Codec serializes values of type T.
type Codec[T any] interface {
	Encode(w io.Writer, v T) error
	Decode(r io.Reader) (T, error)
}

// Commit writes v to path through codec and verifies the read-back copy with
// equal. On a mismatch the file is removed and a VerificationError returned.
func Commit[T any](path string, v T, codec Codec[T], equal func(a, b T) bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, v); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return err
	}

	got, ok, err := Load(path, codec)
	if err != nil {
		return errors.Wrapf(err, "read back %s", path)
	}
	if !ok || !equal(v, got) {
		_ = os.Remove(path)
		return errors.NewVerificationError(path)
	}
	return nil
}

// Load decodes the file at path. The boolean is false when it does not exist.
func Load[T any](path string, codec Codec[T]) (T, bool, error) {
	var zero T
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	v, err := codec.Decode(f)
	if err != nil {
		return zero, true, errors.Wrapf(err, "decode %s", path)
	}
	return v, true, nil
}

// Exists reports whether path exists and is a non-empty regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func writeAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temporary file for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Wrapf(err, "rename into %s", path)
	}
	return nil
}
