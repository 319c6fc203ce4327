package avro

import (
	"fmt"
	"slices"

	hambavro "github.com/hamba/avro/v2"
)

// Marshal encodes rec as a bare Avro datum, without container framing.
func (s *Schema) Marshal(rec *Record) ([]byte, error) {
	native, err := encodeRecord(s.rec, rec, "")
	if err != nil {
		return nil, err
	}
	data, err := hambavro.Marshal(s.rec, native)
	if err != nil {
		return nil, &SchemaMismatchError{Expected: s.FullName(), Actual: "unencodable record", Err: err}
	}
	return data, nil
}

// Unmarshal decodes a bare Avro datum written with s.
func (s *Schema) Unmarshal(data []byte) (*Record, error) {
	native := map[string]any{}
	if err := hambavro.Unmarshal(s.rec, data, &native); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return decodeRecord(s.rec, native, "")
}

// Fingerprint returns the CRC-64-AVRO fingerprint of the canonical form,
// most significant byte first.
func (s *Schema) Fingerprint() ([]byte, error) {
	fp, err := s.rec.FingerprintUsing(hambavro.CRC64Avro)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint schema: %w", err)
	}
	return slices.Clone(fp), nil
}
