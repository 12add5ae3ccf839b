package archive

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// xzParallelWorkers is how many decoded xz chunks may be buffered
// ahead of the reader. Decoding itself runs on a single goroutine.
const xzParallelWorkers = 4

// Decompress wraps r in a reader that yields the decompressed byte
// stream for the given compression codec.
func Decompress(c Compression, r io.Reader) (io.Reader, error) {
	switch c {
	case None:
		return r, nil
	case Gzip:
		return gzip.NewReader(r)
	case Bzip2:
		return bzip2.NewReader(r), nil
	case Brotli:
		return brotli.NewReader(r), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("archive: zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	case Lz4:
		return lz4.NewReader(r), nil
	case Lzma:
		return lzma.NewReader(bufio.NewReader(r))
	case Xz:
		return newParallelXzReader(r)
	default:
		return nil, fmt.Errorf("archive: unsupported compression %s", c)
	}
}

// parallelXzReader decompresses an xz stream through a single
// xz.Reader (xz's entropy coding is inherently sequential with no
// seekable block index here) but decouples decode from consumption:
// a feeder goroutine decodes xzChunkSize chunks ahead of the reader
// into a channel buffered to xzParallelWorkers deep, so a slow
// consumer never stalls the decoder and up to xzParallelWorkers
// decoded chunks can be in flight at once.
type parallelXzReader struct {
	chunks <-chan []byte
	errc   <-chan error
	buf    []byte
}

const xzChunkSize = 1 << 20 // 1 MiB

func newParallelXzReader(r io.Reader) (io.Reader, error) {
	xr, err := xz.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("archive: xz: %w", err)
	}

	chunks := make(chan []byte, xzParallelWorkers)
	errc := make(chan error, 1)

	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, xzChunkSize)
			n, err := io.ReadFull(xr, buf)
			if n > 0 {
				chunks <- buf[:n]
			}
			if err != nil {
				if err != io.EOF && err != io.ErrUnexpectedEOF {
					errc <- fmt.Errorf("archive: xz: %w", err)
				}
				return
			}
		}
	}()

	return &parallelXzReader{chunks: chunks, errc: errc}, nil
}

func (p *parallelXzReader) Read(dst []byte) (int, error) {
	if len(p.buf) == 0 {
		buf, ok := <-p.chunks
		if !ok {
			select {
			case err := <-p.errc:
				return 0, err
			default:
				return 0, io.EOF
			}
		}
		p.buf = buf
	}
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}
