package codec

import "encoding/json"

// JSON is the standard-library JSON codec.
//
// Baseline tables and snapshots are small, human-auditable records, so
// portability wins over raw throughput here. If you need custom encoding,
// implement Codec and pass it where a codec is accepted; persisted files are
// self-describing and will be opened with the codec they were written with.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used when none is specified.
var Default Codec = JSON{}
