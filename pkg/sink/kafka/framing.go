package kafka

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"

	"github.com/Sokol111/avropipe/pkg/avro"
)

var (
	singleObjectMagic = [2]byte{0xC3, 0x01}

	// ErrInvalidFrame is returned when a message does not carry the expected header.
	ErrInvalidFrame = errors.New("invalid message frame")
)

const (
	singleObjectHeaderLen = 10
	confluentHeaderLen    = 5
)

// Framer prefixes an encoded record with what a consumer needs to find the
// writer schema.
type Framer interface {
	Frame(schema *avro.Schema, payload []byte) ([]byte, error)
}

// SingleObjectFramer writes the Avro single object encoding:
// C3 01, the little-endian CRC-64-AVRO fingerprint, then the datum.
type SingleObjectFramer struct {
	mu           sync.Mutex
	fingerprints map[string][]byte
}

func NewSingleObjectFramer() *SingleObjectFramer {
	return &SingleObjectFramer{fingerprints: make(map[string][]byte)}
}

func (f *SingleObjectFramer) Frame(schema *avro.Schema, payload []byte) ([]byte, error) {
	fp, err := f.fingerprint(schema)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, singleObjectHeaderLen+len(payload))
	out = append(out, singleObjectMagic[:]...)
	out = append(out, fp...)
	return append(out, payload...), nil
}

func (f *SingleObjectFramer) fingerprint(schema *avro.Schema) ([]byte, error) {
	key := schema.String()

	f.mu.Lock()
	defer f.mu.Unlock()
	if fp, ok := f.fingerprints[key]; ok {
		return fp, nil
	}
	fp, err := schema.Fingerprint()
	if err != nil {
		return nil, err
	}
	slices.Reverse(fp)
	f.fingerprints[key] = fp
	return fp, nil
}

// ParseSingleObject splits a single object encoded message into the
// little-endian fingerprint and the datum.
func ParseSingleObject(data []byte) (fingerprint, payload []byte, err error) {
	if len(data) < singleObjectHeaderLen {
		return nil, nil, fmt.Errorf("%w: expected at least %d bytes, got %d", ErrInvalidFrame, singleObjectHeaderLen, len(data))
	}
	if data[0] != singleObjectMagic[0] || data[1] != singleObjectMagic[1] {
		return nil, nil, fmt.Errorf("%w: bad marker 0x%02x%02x", ErrInvalidFrame, data[0], data[1])
	}
	return data[2:singleObjectHeaderLen], data[singleObjectHeaderLen:], nil
}

// ConfluentFramer registers the schema under "<topic>-value" and writes
// the Confluent wire format: 0x00, the big-endian schema ID, then the datum.
type ConfluentFramer struct {
	client  schemaregistry.Client
	subject string

	mu  sync.RWMutex
	ids map[string]int
}

func NewConfluentFramer(client schemaregistry.Client, topic string) *ConfluentFramer {
	return &ConfluentFramer{
		client:  client,
		subject: topic + "-value",
		ids:     make(map[string]int),
	}
}

func (f *ConfluentFramer) Frame(schema *avro.Schema, payload []byte) ([]byte, error) {
	id, err := f.schemaID(schema)
	if err != nil {
		return nil, err
	}
	out := make([]byte, confluentHeaderLen, confluentHeaderLen+len(payload))
	binary.BigEndian.PutUint32(out[1:], uint32(id))
	return append(out, payload...), nil
}

func (f *ConfluentFramer) schemaID(schema *avro.Schema) (int, error) {
	key := schema.String()

	f.mu.RLock()
	id, ok := f.ids[key]
	f.mu.RUnlock()
	if ok {
		return id, nil
	}

	schemaJSON, err := schema.JSON()
	if err != nil {
		return 0, err
	}
	id, err = f.client.Register(f.subject, schemaregistry.SchemaInfo{
		Schema:     string(schemaJSON),
		SchemaType: "AVRO",
	}, false)
	if err != nil {
		return 0, fmt.Errorf("failed to register schema %s under %s: %w", schema.FullName(), f.subject, err)
	}

	f.mu.Lock()
	f.ids[key] = id
	f.mu.Unlock()
	return id, nil
}

// ParseConfluent splits a Confluent wire format message into schema ID and datum.
func ParseConfluent(data []byte) (int, []byte, error) {
	if len(data) < confluentHeaderLen {
		return 0, nil, fmt.Errorf("%w: expected at least %d bytes, got %d", ErrInvalidFrame, confluentHeaderLen, len(data))
	}
	if data[0] != 0x00 {
		return 0, nil, fmt.Errorf("%w: expected magic byte 0x00, got 0x%02x", ErrInvalidFrame, data[0])
	}
	return int(binary.BigEndian.Uint32(data[1:confluentHeaderLen])), data[confluentHeaderLen:], nil
}
