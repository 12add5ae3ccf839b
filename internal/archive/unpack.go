package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"zombiezen.com/go/nix/nar"
)

// Unpack decompresses r under codec c and materializes the resulting
// NAR stream into destDir, which must not already exist. It builds
// the tree under a sibling temp directory first and renames it into
// place atomically, so a failed unpack never leaves a partial store
// entry visible to other readers.
func Unpack(c Compression, r io.Reader, destDir string) error {
	decompressed, err := Decompress(c, r)
	if err != nil {
		return err
	}

	tmpDir := destDir + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := os.RemoveAll(tmpDir); err != nil {
		return fmt.Errorf("archive: clearing stale temp dir: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return fmt.Errorf("archive: creating temp dir: %w", err)
	}

	if err := unpackInto(decompressed, tmpDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return err
	}

	if err := os.Rename(tmpDir, destDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("archive: materializing %s: %w", destDir, err)
	}
	return nil
}

func unpackInto(r io.Reader, destDir string) error {
	nr := nar.NewReader(r)
	for {
		hdr, err := nr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: reading NAR entry: %w", err)
		}

		target := filepath.Join(destDir, hdr.Path)

		switch hdr.Mode.Type() {
		case os.ModeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("archive: creating directory %s: %w", target, err)
			}
		case os.ModeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("archive: creating parent of %s: %w", target, err)
			}
			if err := os.Symlink(hdr.LinkTarget, target); err != nil {
				return fmt.Errorf("archive: creating symlink %s: %w", target, err)
			}
		case 0:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("archive: creating parent of %s: %w", target, err)
			}
			perm := os.FileMode(0644)
			if hdr.Mode&0111 != 0 {
				perm = 0755
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
			if err != nil {
				return fmt.Errorf("archive: creating %s: %w", target, err)
			}
			written, copyErr := io.Copy(out, nr)
			closeErr := out.Close()
			if copyErr != nil {
				return fmt.Errorf("archive: writing %s: %w", target, copyErr)
			}
			if closeErr != nil {
				return fmt.Errorf("archive: closing %s: %w", target, closeErr)
			}
			if written != hdr.Size {
				return fmt.Errorf("archive: %s: wrote %d bytes, expected %d", target, written, hdr.Size)
			}
		default:
			// unrecognized entry type; nix NAR has no others, skip defensively
		}
	}
}
