package executor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// encodeSnapshot serializes snap as JSON, zstd-compressed when compress is set.
func encodeSnapshot(snap *models.Snapshot, compress bool) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	if !compress {
		return raw, nil
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// decodeSnapshot parses a payload written by encodeSnapshot. Compression is
// detected from the frame magic, not the file extension.
func decodeSnapshot(payload []byte) (*models.Snapshot, error) {
	if bytes.HasPrefix(payload, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer dec.Close()

		payload, err = dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing snapshot: %w", err)
		}
	}

	d := json.NewDecoder(bytes.NewReader(payload))
	d.UseNumber()
	var snap models.Snapshot
	if err := d.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.FormatVersion > models.SnapshotFormatVersion {
		return nil, fmt.Errorf("snapshot format version %d is newer than supported %d",
			snap.FormatVersion, models.SnapshotFormatVersion)
	}
	return &snap, nil
}
