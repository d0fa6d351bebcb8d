package api

import (
	"bytes"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Timestamp wraps the protobuf well-known type so it serializes as an RFC 3339 string.
type Timestamp struct {
	*timestamppb.Timestamp
}

// NewTimestamp converts Unix seconds. Zero yields an unset timestamp.
func NewTimestamp(unix int64) Timestamp {
	if unix == 0 {
		return Timestamp{}
	}
	return Timestamp{timestamppb.New(time.Unix(unix, 0))}
}

// Unix returns seconds since the epoch, or 0 when unset.
func (t Timestamp) Unix() int64 {
	if t.Timestamp == nil {
		return 0
	}
	return t.AsTime().Unix()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Timestamp == nil {
		return []byte("null"), nil
	}
	return protojson.Marshal(t.Timestamp)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Timestamp = nil
		return nil
	}
	ts := &timestamppb.Timestamp{}
	if err := protojson.Unmarshal(data, ts); err != nil {
		return err
	}
	t.Timestamp = ts
	return nil
}
