package marker

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/truffle/types"
)

// Record is the JSON form of a marker:
//
//	{"type":"simple","selector":"ul","selectorKind":"css"}
//	{"type":"attribute","attributes":{"data-qa":"list"},"matchMode":"contains"}
type Record struct {
	Type         Type              `json:"type"`
	Selector     string            `json:"selector,omitempty"`
	SelectorKind SelectorKind      `json:"selectorKind,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	MatchMode    MatchMode         `json:"matchMode,omitempty"`
}

// FromRecord rebuilds a marker. An unrecognized type yields an
// UNKNOWN_MARKER_TYPE error.
func FromRecord(r Record) (Marker, error) {
	switch r.Type {
	case TypeSimple:
		return Simple{Selector: r.Selector, SelectorKind: r.SelectorKind}, nil
	case TypeAttribute:
		attrs := make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			attrs[k] = v
		}
		return Attribute{Attributes: attrs, MatchMode: r.MatchMode}, nil
	default:
		return nil, types.Errorf(types.ErrUnknownMarkerType, "unknown marker type %q", r.Type)
	}
}

// Marshal encodes a marker as canonical record JSON. encoding/json sorts
// map keys, so equal markers always produce identical bytes.
func Marshal(m Marker) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("marker is nil")
	}
	return json.Marshal(m.Record())
}

// Unmarshal decodes record JSON into a marker.
func Unmarshal(data []byte) (Marker, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode marker record: %w", err)
	}
	return FromRecord(r)
}
