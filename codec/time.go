// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package codec

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/molecula/histql/errors"
	"github.com/molecula/histql/wire"
)

const (
	// timeLayout is the text form used by Format.
	timeLayout = "2006-01-02T15:04:05.000000"

	// blockIntervalMs is the length of one block timestamp slot.
	blockIntervalMs = 500

	// blockEpochMs is the block timestamp epoch, 2000-01-01T00:00:00Z.
	blockEpochMs = 946684800000
)

// timeLayouts are tried in order when parsing text, whether given on the
// command line or returned by a driver which does not parse times.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(t Type, s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		tm, err := time.Parse(layout, s)
		if err == nil {
			return tm.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, errParse(t, s, firstErr)
}

// nativeTime converts a scanned column value to a time.
func nativeTime(t Type, v interface{}) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v.UTC(), nil
	}
	if s, ok := nativeText(v); ok {
		return parseTime(t, s)
	}
	return time.Time{}, errNative(t, v)
}

func errTimeRange(t Type, tm time.Time) error {
	return errors.New(errors.ErrDecode, fmt.Sprintf("%s: time %s out of range", t.Name(), tm.Format(time.RFC3339Nano)))
}

// timePointType is microseconds since the Unix epoch as a signed 64-bit
// integer.
type timePointType struct{}

func (timePointType) sealed()      {}
func (timePointType) Name() string { return "time_point" }

func (timePointType) Skip(r *wire.Reader) error {
	_, err := r.Next(8, "time_point")
	return err
}

func (timePointType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return dst, err
	}
	return binary.BigEndian.AppendUint64(dst, v^(1<<63)), nil
}

func (timePointType) BinToNative(r *wire.Reader) (driver.Value, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	return time.UnixMicro(int64(v)).UTC(), nil
}

func (t timePointType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	tm, err := nativeTime(t, v)
	if err != nil {
		return dst, err
	}
	return wire.AppendUint64(dst, uint64(tm.UnixMicro())), nil
}

func (timePointType) FillEmpty(dst []byte) []byte { return appendUint(dst, 0, 8) }

func (timePointType) Format(r *wire.Reader) (string, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return "", err
	}
	return time.UnixMicro(int64(v)).UTC().Format(timeLayout), nil
}

func (t timePointType) Parse(dst []byte, s string) ([]byte, error) {
	tm, err := parseTime(t, s)
	if err != nil {
		return dst, err
	}
	return wire.AppendUint64(dst, uint64(tm.UnixMicro())), nil
}

// timePointSecType is seconds since the Unix epoch as an unsigned 32-bit
// integer.
type timePointSecType struct{}

func (timePointSecType) sealed()      {}
func (timePointSecType) Name() string { return "time_point_sec" }

func (timePointSecType) Skip(r *wire.Reader) error {
	_, err := r.Next(4, "time_point_sec")
	return err
}

func (timePointSecType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return dst, err
	}
	return binary.BigEndian.AppendUint32(dst, v), nil
}

func (timePointSecType) BinToNative(r *wire.Reader) (driver.Value, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return time.Unix(int64(v), 0).UTC(), nil
}

func (t timePointSecType) fromTime(dst []byte, tm time.Time) ([]byte, error) {
	sec := tm.Unix()
	if sec < 0 || sec > math.MaxUint32 {
		return dst, errTimeRange(t, tm)
	}
	return wire.AppendUint32(dst, uint32(sec)), nil
}

func (t timePointSecType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	tm, err := nativeTime(t, v)
	if err != nil {
		return dst, err
	}
	return t.fromTime(dst, tm)
}

func (timePointSecType) FillEmpty(dst []byte) []byte { return appendUint(dst, 0, 4) }

func (timePointSecType) Format(r *wire.Reader) (string, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	return time.Unix(int64(v), 0).UTC().Format(timeLayout), nil
}

func (t timePointSecType) Parse(dst []byte, s string) ([]byte, error) {
	tm, err := parseTime(t, s)
	if err != nil {
		return dst, err
	}
	return t.fromTime(dst, tm)
}

// blockTimestampType counts half-second slots since 2000-01-01 as an
// unsigned 32-bit integer.
type blockTimestampType struct{}

func (blockTimestampType) sealed()      {}
func (blockTimestampType) Name() string { return "block_timestamp_type" }

func (blockTimestampType) Skip(r *wire.Reader) error {
	_, err := r.Next(4, "block_timestamp_type")
	return err
}

func (blockTimestampType) BinToKey(dst []byte, r *wire.Reader) ([]byte, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return dst, err
	}
	return binary.BigEndian.AppendUint32(dst, v), nil
}

func slotTime(slot uint32) time.Time {
	return time.UnixMilli(blockEpochMs + int64(slot)*blockIntervalMs).UTC()
}

func (blockTimestampType) BinToNative(r *wire.Reader) (driver.Value, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return slotTime(v), nil
}

func (t blockTimestampType) fromTime(dst []byte, tm time.Time) ([]byte, error) {
	slot := (tm.UnixMilli() - blockEpochMs) / blockIntervalMs
	if tm.UnixMilli() < blockEpochMs || slot > math.MaxUint32 {
		return dst, errTimeRange(t, tm)
	}
	return wire.AppendUint32(dst, uint32(slot)), nil
}

func (t blockTimestampType) NativeToBin(dst []byte, v interface{}) ([]byte, error) {
	if v == nil {
		return t.FillEmpty(dst), nil
	}
	tm, err := nativeTime(t, v)
	if err != nil {
		return dst, err
	}
	return t.fromTime(dst, tm)
}

func (blockTimestampType) FillEmpty(dst []byte) []byte { return appendUint(dst, 0, 4) }

func (blockTimestampType) Format(r *wire.Reader) (string, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	return slotTime(v).Format(timeLayout), nil
}

func (t blockTimestampType) Parse(dst []byte, s string) ([]byte, error) {
	tm, err := parseTime(t, s)
	if err != nil {
		return dst, err
	}
	return t.fromTime(dst, tm)
}
