// Package snapshot exports and restores an owner's override rows as a
// single compressed, self-describing blob. Snapshots back up customization
// state independently of the catalog: the catalog items themselves live
// elsewhere and are not included.
package snapshot

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/catview/blobstore"
	"github.com/hupe1980/catview/codec"
	"github.com/hupe1980/catview/model"
	"github.com/hupe1980/catview/override"
)

const (
	// MagicNumber identifies catview snapshot blobs (ASCII: "CVS1").
	MagicNumber = 0x43565331
	// Version is the current snapshot format version.
	Version = 0x00010000
)

// Compression selects the payload compression algorithm.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = 0
	// CompressionZSTD uses zstd (better ratio, default).
	CompressionZSTD Compression = 1
	// CompressionLZ4 uses LZ4 block compression (faster, larger).
	CompressionLZ4 Compression = 2
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrInvalidCompression = errors.New("unknown compression type")
	ErrChecksum           = errors.New("checksum mismatch")
)

// header is the fixed-size prefix of every snapshot blob.
// Format: [Magic uint32][Version uint32][Compression uint8][pad 3]
// [UncompressedSize uint64][Checksum uint32 of the stored payload][pad 4].
type header struct {
	Magic            uint32
	Version          uint32
	Compression      uint8
	Padding1         [3]byte
	UncompressedSize uint64
	Checksum         uint32
	Padding2         [4]byte
}

// record is the decoded snapshot payload.
type record struct {
	Owner     model.OwnerID    `json:"owner"`
	CreatedAt time.Time        `json:"created_at"`
	Codec     string           `json:"codec"`
	Overrides []model.Override `json:"overrides"`
}

type options struct {
	compression Compression
	codec       codec.Codec
}

// Option configures a Manager.
type Option func(*options)

// WithCompression selects the payload compression for new snapshots.
// Existing snapshots decode with whatever they were written with.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCodec configures the codec used for the snapshot payload.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// Manager exports override rows to a blob store and restores them.
type Manager struct {
	overrides   override.Store
	blobs       blobstore.BlobStore
	codec       codec.Codec
	compression Compression
}

// NewManager creates a snapshot Manager over the given stores.
func NewManager(overrides override.Store, blobs blobstore.BlobStore, optFns ...Option) *Manager {
	o := options{
		compression: CompressionZSTD,
		codec:       codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	return &Manager{
		overrides:   overrides,
		blobs:       blobs,
		codec:       o.codec,
		compression: o.compression,
	}
}

// Export writes all override rows of owner to the named blob. An owner with
// no overrides produces a valid, empty snapshot.
func (m *Manager) Export(ctx context.Context, owner model.OwnerID, name string) error {
	rows, err := m.overrides.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("list overrides: %w", err)
	}

	payload, err := m.codec.Marshal(record{
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
		Codec:     m.codec.Name(),
		Overrides: rows,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	stored, err := compress(payload, m.compression)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	var buf bytes.Buffer
	h := header{
		Magic:            MagicNumber,
		Version:          Version,
		Compression:      uint8(m.compression),
		UncompressedSize: uint64(len(payload)),
		Checksum:         crc32.ChecksumIEEE(stored),
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	buf.Write(stored)

	if err := m.blobs.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Import restores the named snapshot into the override store and returns
// the number of rows applied. Rows are applied as full patches, so existing
// override state for the snapshot's items is overwritten; items the
// snapshot does not mention are left alone.
func (m *Manager) Import(ctx context.Context, owner model.OwnerID, name string) (int, error) {
	rec, err := m.read(ctx, name)
	if err != nil {
		return 0, err
	}

	if len(rec.Overrides) == 0 {
		return 0, nil
	}

	patches := make([]override.ItemPatch, len(rec.Overrides))
	for i, row := range rec.Overrides {
		p := override.Patch{Hidden: override.Bool(row.Hidden)}
		if row.HasOrder {
			p.Order = override.Order(row.Order)
		}
		patches[i] = override.ItemPatch{ItemID: row.ItemID, Patch: p}
	}

	results, err := m.overrides.BulkUpsert(ctx, owner, patches)
	if err != nil {
		return 0, fmt.Errorf("restore overrides: %w", err)
	}

	applied := 0
	var failed []model.ItemID
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.ItemID)
			continue
		}
		applied++
	}
	if len(failed) > 0 {
		return applied, fmt.Errorf("restore overrides: %d rows failed (%v)", len(failed), failed)
	}
	return applied, nil
}

// Peek decodes the named snapshot without applying it.
func (m *Manager) Peek(ctx context.Context, name string) (model.OwnerID, time.Time, int, error) {
	rec, err := m.read(ctx, name)
	if err != nil {
		return "", time.Time{}, 0, err
	}
	return rec.Owner, rec.CreatedAt, len(rec.Overrides), nil
}

// List returns the names of stored snapshots under prefix.
func (m *Manager) List(ctx context.Context, prefix string) ([]string, error) {
	return m.blobs.List(ctx, prefix)
}

func (m *Manager) read(ctx context.Context, name string) (*record, error) {
	data, err := blobstore.ReadAll(ctx, m.blobs, name)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}

	var h header
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if h.Version != Version {
		return nil, ErrInvalidVersion
	}

	stored := data[len(data)-r.Len():]
	if crc32.ChecksumIEEE(stored) != h.Checksum {
		return nil, ErrChecksum
	}

	payload, err := decompress(stored, Compression(h.Compression), h.UncompressedSize)
	if err != nil {
		return nil, err
	}

	var rec record
	if err := m.codec.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &rec, nil
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil

	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil

	case CompressionLZ4:
		compressed := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, compressed, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible input is stored raw; the size fields in the
			// header disambiguate on read.
			return data, nil
		}
		return compressed[:n], nil

	default:
		return nil, ErrInvalidCompression
	}
}

func decompress(stored []byte, c Compression, uncompressedSize uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		return stored, nil

	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(stored, nil)

	case CompressionLZ4:
		if uint64(len(stored)) == uncompressedSize {
			return stored, nil // stored raw, see compress
		}
		payload := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(stored, payload)
		if err != nil {
			return nil, err
		}
		return payload[:n], nil

	default:
		return nil, ErrInvalidCompression
	}
}
