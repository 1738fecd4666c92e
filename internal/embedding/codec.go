package embedding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

const (
	// Magic is "SYN1" read as a little-endian u32.
	Magic uint32 = 0x53594E31

	// FormatVersion is the only model file version understood.
	FormatVersion uint32 = 1
)

// Decode errors.
var (
	ErrBadMagic           = errors.New("not a synergy model file")
	ErrUnsupportedVersion = errors.New("unsupported model file version")
	ErrEmbedDimTooLarge   = errors.New("model embedding dimension too large")
)

var order = binary.LittleEndian

// Encode writes m in the model file layout:
//
//	magic u32 | version u32 | embedDim u32 | cardCount u32
//	cardCount * { id u64 | bias f32 | embedDim * f32 }
//	globalBias f32
//
// All values are little-endian.
func Encode(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 16)

	buf = order.AppendUint32(buf, Magic)
	buf = order.AppendUint32(buf, FormatVersion)
	buf = order.AppendUint32(buf, uint32(m.EmbedDim))
	buf = order.AppendUint32(buf, uint32(m.Len()))
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("write model header: %w", err)
	}

	for c := range m.Cards() {
		buf = buf[:0]
		buf = order.AppendUint64(buf, c.ID)
		buf = order.AppendUint32(buf, math.Float32bits(c.Bias))
		for j := 0; j < m.EmbedDim; j++ {
			buf = order.AppendUint32(buf, math.Float32bits(c.Embedding[j]))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write card %d: %w", c.ID, err)
		}
	}

	buf = order.AppendUint32(buf[:0], math.Float32bits(m.GlobalBias))
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("write global bias: %w", err)
	}
	return bw.Flush()
}

// Decode reads a model written by Encode. Models with a smaller embedding
// dimension are zero-padded. Nothing is returned on error.
func Decode(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)

	var header [4]uint32
	if err := binary.Read(br, order, &header); err != nil {
		return nil, fmt.Errorf("read model header: %w", unexpectedEOF(err))
	}
	magic, version, dim, count := header[0], header[1], header[2], header[3]

	if magic != Magic {
		return nil, fmt.Errorf("%w: magic %#08x", ErrBadMagic, magic)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if dim > MaxEmbedDim {
		return nil, fmt.Errorf("%w: %d > %d", ErrEmbedDimTooLarge, dim, MaxEmbedDim)
	}
	if dim == 0 {
		return nil, errors.New("model has zero embedding dimension")
	}

	m, err := NewModel(int(dim), WithSeed(0))
	if err != nil {
		return nil, err
	}

	rec := make([]byte, 8+4+4*int(dim))
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(br, rec); err != nil {
			return nil, fmt.Errorf("read card %d of %d: %w", i+1, count, unexpectedEOF(err))
		}
		c := &CardModel{
			ID:   order.Uint64(rec[0:8]),
			Bias: math.Float32frombits(order.Uint32(rec[8:12])),
		}
		for j := 0; j < int(dim); j++ {
			off := 12 + 4*j
			c.Embedding[j] = math.Float32frombits(order.Uint32(rec[off : off+4]))
		}
		if _, dup := m.index[c.ID]; dup {
			return nil, fmt.Errorf("duplicate card %d in model", c.ID)
		}
		m.add(c)
	}

	var gb uint32
	if err := binary.Read(br, order, &gb); err != nil {
		return nil, fmt.Errorf("read global bias: %w", unexpectedEOF(err))
	}
	m.GlobalBias = math.Float32frombits(gb)
	return m, nil
}

// SaveFile writes m to path through a temporary file in the same directory.
func SaveFile(path string, m *Model) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, m); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("save model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// LoadFile reads a model file.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
