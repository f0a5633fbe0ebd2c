package vecindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// ErrCorruptSnapshot is returned when a snapshot cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt index snapshot")

const (
	snapshotMagic   = "WQIX"
	snapshotVersion = uint32(1)
	// maxSnapshotDim guards allocation when the header itself is damaged.
	maxSnapshotDim = 1 << 16
)

// Snapshot layout (little-endian):
//
//	magic    [4]byte "WQIX"
//	version  uint32
//	dim      uint32
//	count    uint64
//	vectors  count*dim float32
//	crc32    uint32 (IEEE, over everything above)

// WriteTo encodes the index to w.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, crc))

	var n int64
	header := make([]byte, 0, 20)
	header = append(header, snapshotMagic...)
	header = binary.LittleEndian.AppendUint32(header, snapshotVersion)
	header = binary.LittleEndian.AppendUint32(header, uint32(f.dim))
	header = binary.LittleEndian.AppendUint64(header, uint64(len(f.vectors)))
	m, err := bw.Write(header)
	n += int64(m)
	if err != nil {
		return n, fmt.Errorf("write snapshot header: %w", err)
	}

	buf := make([]byte, 4*f.dim)
	for i, v := range f.vectors {
		for j, x := range v {
			binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(x))
		}
		m, err := bw.Write(buf)
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flush snapshot: %w", err)
	}

	trailer := binary.LittleEndian.AppendUint32(nil, crc.Sum32())
	m, err = w.Write(trailer)
	n += int64(m)
	if err != nil {
		return n, fmt.Errorf("write snapshot checksum: %w", err)
	}
	return n, nil
}

// ReadFrom decodes a snapshot written by WriteTo.
func ReadFrom(r io.Reader) (*Flat, error) {
	crc := crc32.NewIEEE()
	br := io.TeeReader(bufio.NewReader(r), crc)

	header := make([]byte, 20)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorruptSnapshot, err)
	}
	if string(header[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, header[:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, v)
	}
	dim := int(binary.LittleEndian.Uint32(header[8:]))
	count := binary.LittleEndian.Uint64(header[12:])
	if dim <= 0 || dim > maxSnapshotDim {
		return nil, fmt.Errorf("%w: invalid dimension %d", ErrCorruptSnapshot, dim)
	}

	f := &Flat{dim: dim}
	buf := make([]byte, 4*dim)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: read vector %d of %d: %v", ErrCorruptSnapshot, i, count, err)
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		f.vectors = append(f.vectors, v)
	}

	want := crc.Sum32()
	trailer := make([]byte, 4)
	if _, err := io.ReadFull(br, trailer); err != nil {
		return nil, fmt.Errorf("%w: read checksum: %v", ErrCorruptSnapshot, err)
	}
	if got := binary.LittleEndian.Uint32(trailer); got != want {
		return nil, fmt.Errorf("%w: checksum %08x, computed %08x", ErrCorruptSnapshot, got, want)
	}
	return f, nil
}
