package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Sokol111/avropipe/pkg/avro"
)

// ErrUnsupportedValue is returned for BSON values without a record form,
// such as arrays.
var ErrUnsupportedValue = errors.New("unsupported bson value")

// DocumentToRecord converts a document into a record, keeping field order.
// ObjectIDs and decimals become strings, datetimes epoch milliseconds and
// timestamps a long holding seconds in the upper 32 bits.
func DocumentToRecord(doc bson.D) (*avro.Record, error) {
	return documentToRecord(doc, "")
}

func documentToRecord(doc bson.D, path string) (*avro.Record, error) {
	rec := avro.NewRecord()
	for _, e := range doc {
		field := e.Key
		if path != "" {
			field = path + "." + e.Key
		}
		v, err := bsonValue(e.Value, field)
		if err != nil {
			return nil, err
		}
		rec.Set(e.Key, v)
	}
	return rec, nil
}

func bsonValue(v any, field string) (avro.Value, error) {
	switch x := v.(type) {
	case nil, bson.Null, bson.Undefined:
		return avro.Null(), nil
	case bool:
		return avro.Bool(x), nil
	case int32:
		return avro.Int(x), nil
	case int64:
		return avro.Long(x), nil
	case float64:
		return avro.Double(x), nil
	case string:
		return avro.String(x), nil
	case bson.ObjectID:
		return avro.String(x.Hex()), nil
	case bson.DateTime:
		return avro.Long(int64(x)), nil
	case bson.Timestamp:
		return avro.Long(int64(x.T)<<32 | int64(x.I)), nil
	case bson.Decimal128:
		return avro.String(x.String()), nil
	case bson.Binary:
		return avro.Bytes(x.Data), nil
	case bson.D:
		nested, err := documentToRecord(x, field)
		if err != nil {
			return avro.Value{}, err
		}
		return avro.Nested(nested), nil
	default:
		return avro.Value{}, fmt.Errorf("%w: %T at %q", ErrUnsupportedValue, v, field)
	}
}

func documentID(doc bson.D) string {
	for _, e := range doc {
		if e.Key != "_id" {
			continue
		}
		if oid, ok := e.Value.(bson.ObjectID); ok {
			return oid.Hex()
		}
		return fmt.Sprint(e.Value)
	}
	return ""
}
