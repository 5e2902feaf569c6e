package ioutils

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Format selects how an album is stored on disk.
type Format string

const (
	// FormatDirectory keeps the album as a directory of files.
	FormatDirectory Format = "directory"

	// FormatTar packs the album directory into <name>.tar.
	FormatTar Format = "tar"

	// FormatZip packs the album directory into <name>.zip.
	FormatZip Format = "zip"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDirectory, FormatTar, FormatZip:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want directory, tar or zip)", s)
}

// ErrSinkClosed is returned when a file is created after Commit or Discard.
var ErrSinkClosed = errors.New("output already committed or discarded")

// ErrOutputExists is returned when the album directory or archive is
// already present in the output directory. Existing output is never
// replaced.
var ErrOutputExists = errors.New("output already exists")

// Sink collects the files of one album.
//
// A Sink is opened by NewSink once the album name is known. Files are
// created concurrently under distinct names, then exactly one of Commit or
// Discard finalizes it. Both terminal calls are idempotent, and Discard is
// safe on a sink that never received a file.
type Sink interface {
	// Name returns the album name the sink is bound to.
	Name() string

	// Create opens a new file for writing. The caller closes it.
	Create(name string) (io.WriteCloser, error)

	// Remove deletes a file. A file that does not exist is not an error.
	Remove(name string) error

	// Path returns the on-disk location of a file while the sink is open.
	Path(name string) string

	// Commit publishes the output.
	Commit() error

	// Discard deletes everything the sink wrote.
	Discard() error
}

// NewSink creates the sink for album name inside outputDir.
//
// Every sink stages its files in a fresh hidden directory of its own under
// outputDir, so sinks never share files even when albums share a name.
// Commit publishes the staging directory as outputDir/name, or packs it
// into outputDir/name.tar or outputDir/name.zip. Discard only removes the
// staging directory.
func NewSink(format Format, outputDir, name string) (Sink, error) {
	var target string
	switch format {
	case FormatDirectory:
		target = name
	case FormatTar, FormatZip:
		target = name + "." + string(format)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}

	dir, err := newDirectorySink(outputDir, name, target)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatTar:
		return &TarSink{DirectorySink: dir}, nil
	case FormatZip:
		return &ZipSink{DirectorySink: dir}, nil
	default:
		return dir, nil
	}
}

// DirectorySink stores an album as a directory of files.
type DirectorySink struct {
	outputDir string
	name      string
	target    string
	dir       string

	mu     sync.Mutex
	closed bool
}

func newDirectorySink(outputDir, name, target string) (*DirectorySink, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	s := &DirectorySink{outputDir: outputDir, name: name, target: filepath.Join(outputDir, target)}
	if err := s.checkTarget(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(outputDir, "."+name+".partial-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	if err := os.Chmod(dir, 0755); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	s.dir = dir
	return s, nil
}

// checkTarget fails when the published output is already present.
func (s *DirectorySink) checkTarget() error {
	if _, err := os.Lstat(s.target); err == nil {
		return fmt.Errorf("%s: %w", s.target, ErrOutputExists)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Name returns the album name.
func (s *DirectorySink) Name() string {
	return s.name
}

// Dir returns the staging directory.
func (s *DirectorySink) Dir() string {
	return s.dir
}

// Path returns the location of name inside the staging directory.
func (s *DirectorySink) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Create opens name for writing, truncating any existing file.
func (s *DirectorySink) Create(name string) (io.WriteCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSinkClosed
	}

	return os.OpenFile(s.Path(name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// Remove deletes name from the staging directory.
func (s *DirectorySink) Remove(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Commit renames the staging directory to outputDir/name. The staging
// directory is removed when that fails.
func (s *DirectorySink) Commit() (err error) {
	if !s.finish() {
		return nil
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(s.dir)
		}
	}()

	if err := s.checkTarget(); err != nil {
		return err
	}
	// rename refuses to replace a non-empty directory, which covers a
	// sink of the same name publishing between the check and here.
	if err := os.Rename(s.dir, s.target); err != nil {
		if _, statErr := os.Lstat(s.target); statErr == nil {
			return fmt.Errorf("%s: %w", s.target, ErrOutputExists)
		}
		return err
	}
	return nil
}

// Discard removes the staging directory and everything in it.
func (s *DirectorySink) Discard() error {
	if !s.finish() {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// finish marks the sink closed and reports whether this call closed it.
func (s *DirectorySink) finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

// entries lists the staged files sorted by name, so archives have a
// deterministic layout.
func (s *DirectorySink) entries() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	files := entries[:0]
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e)
		}
	}
	return files, nil
}

// TarSink stores an album as an uncompressed tar archive.
type TarSink struct {
	*DirectorySink
}

// Commit writes outputDir/name.tar and removes the staging directory.
func (s *TarSink) Commit() error {
	return s.archive(writeTar)
}

// ZipSink stores an album as a zip archive.
type ZipSink struct {
	*DirectorySink
}

// Commit writes outputDir/name.zip and removes the staging directory.
func (s *ZipSink) Commit() error {
	return s.archive(writeZip)
}

type archiveWriter func(w io.Writer, root string, s *DirectorySink, files []os.DirEntry) error

func (s *DirectorySink) archive(write archiveWriter) (err error) {
	if !s.finish() {
		return nil
	}
	defer func() {
		if rmErr := os.RemoveAll(s.dir); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	files, err := s.entries()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s: %w", s.target, ErrOutputExists)
		}
		return err
	}

	if err = write(f, s.name, s, files); err != nil {
		f.Close()
		os.Remove(s.target)
		return fmt.Errorf("write %s: %w", filepath.Base(s.target), err)
	}
	if err = f.Close(); err != nil {
		os.Remove(s.target)
		return err
	}
	return nil
}

func writeTar(w io.Writer, root string, s *DirectorySink, files []os.DirEntry) error {
	tw := tar.NewWriter(w)

	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = root + "/"
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	for _, e := range files {
		if err := addTarFile(tw, root, s.Path(e.Name())); err != nil {
			return err
		}
	}
	return tw.Close()
}

func addTarFile(tw *tar.Writer, root, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = root + "/" + info.Name()

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

func writeZip(w io.Writer, root string, s *DirectorySink, files []os.DirEntry) error {
	zw := zip.NewWriter(w)

	if _, err := zw.Create(root + "/"); err != nil {
		return err
	}

	for _, e := range files {
		if err := addZipFile(zw, root, s.Path(e.Name())); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addZipFile(zw *zip.Writer, root, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = root + "/" + info.Name()
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}

// validName rejects names that would leave the sink's directory.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}
