// Decoder for position feed frames
package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Batch is the result of decoding one frame.
type Batch struct {
	Records []Record
	Skipped []*ValidationError
}

type wirePosition struct {
	Long     *float64 `json:"long"`
	Lat      *float64 `json:"lat"`
	Altitude *float64 `json:"altitude"`
}

type wireRecord struct {
	Mac          string        `json:"mac"`
	DevName      string        `json:"devName"`
	Hardware     json.Number   `json:"hardware"`
	Pos          *wirePosition `json:"pos"`
	LastSeen     json.Number   `json:"lastSeen"`
	BroadcastMsg string        `json:"broadcastMsg"`
}

// Decode parses a frame holding a JSON array of device objects.
// A frame that is not an array yields a *DecodeError. Elements that fail
// validation are skipped and reported in Batch.Skipped.
func Decode(frame []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Batch{}, &DecodeError{Err: errors.New("payload is not a list")}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return Batch{}, &DecodeError{Err: err}
	}

	batch := Batch{Records: make([]Record, 0, len(elems))}
	for i, raw := range elems {
		rec, err := decodeElement(raw)
		if err != nil {
			batch.Skipped = append(batch.Skipped, &ValidationError{Index: i, Key: rec.Key, Err: err})
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func decodeElement(raw json.RawMessage) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Record{}, ErrNotAnObject
	}
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return Record{Key: peekKey(raw)}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	rec := Record{
		Key:              w.Mac,
		DisplayName:      w.DevName,
		BroadcastMessage: w.BroadcastMsg,
	}
	if w.Mac == "" {
		return rec, ErrMissingKey
	}
	if w.Pos == nil || w.Pos.Long == nil || w.Pos.Lat == nil {
		return rec, ErrMissingPosition
	}
	rec.Position = Position{Longitude: *w.Pos.Long, Latitude: *w.Pos.Lat}
	if w.Pos.Altitude != nil {
		rec.Position.Altitude = *w.Pos.Altitude
	}
	if rec.Position.Longitude < -180 || rec.Position.Longitude > 180 ||
		rec.Position.Latitude < -90 || rec.Position.Latitude > 90 {
		return rec, fmt.Errorf("%w: long=%g lat=%g", ErrPositionOutOfRange, rec.Position.Longitude, rec.Position.Latitude)
	}
	if w.Hardware != "" {
		hw, err := wholeNumber(w.Hardware, math.MinInt32, math.MaxInt32)
		if err != nil {
			return rec, fmt.Errorf("%w: hardware: %v", ErrInvalidField, err)
		}
		kind := int(hw)
		rec.HardwareKind = &kind
	}
	if w.LastSeen != "" {
		ts, err := wholeNumber(w.LastSeen, math.MinInt64, math.MaxInt64)
		if err != nil {
			return rec, fmt.Errorf("%w: lastSeen: %v", ErrInvalidField, err)
		}
		rec.LastSeen = ts
	}
	return rec, nil
}

// wholeNumber accepts integral numbers, including forms like 5.0 or 1e3,
// within [lo, hi].
func wholeNumber(n json.Number, lo, hi int64) (int64, error) {
	if v, err := n.Int64(); err == nil {
		if v < lo || v > hi {
			return 0, fmt.Errorf("%s out of range", n)
		}
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s is not an integer", n)
	}
	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
	if f < float64(lo) || f >= float64(hi) {
		return 0, fmt.Errorf("%s out of range", n)
	}
	return int64(f), nil
}

// peekKey extracts the mac of an element whose other fields failed to decode.
func peekKey(raw json.RawMessage) string {
	var k struct {
		Mac string `json:"mac"`
	}
	if err := json.Unmarshal(raw, &k); err != nil {
		return ""
	}
	return k.Mac
}
