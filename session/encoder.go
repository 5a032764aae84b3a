package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	recordFormatVersion = 1

	flagHasUser byte = 1 << 0
)

var (
	// ErrRecordCorrupt is returned when a durable record cannot be decoded.
	ErrRecordCorrupt = errors.New("session record corrupt")
	// ErrFieldTooLong is returned when a record field exceeds the wire limit.
	ErrFieldTooLong = errors.New("session record field too long")
)

// Encode serializes r in the current record format.
//
// Layout (v1): version | flags | token | [user fields] | savedAt(int64 BE).
// Strings are uint16 big-endian length prefixed.
func Encode(r *Record, savedAt int64) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}

	var buf bytes.Buffer
	buf.WriteByte(recordFormatVersion)

	var flags byte
	if r.User != nil {
		flags |= flagHasUser
	}
	buf.WriteByte(flags)

	if err := writeString(&buf, r.Token); err != nil {
		return nil, err
	}

	if r.User != nil {
		fields := []string{
			r.User.ID,
			r.User.Email,
			r.User.FullName,
			r.User.OrganizationID,
			r.User.Role.ID,
			r.User.Role.Name,
			r.User.Role.Code,
		}
		for _, f := range fields {
			if err := writeString(&buf, f); err != nil {
				return nil, err
			}
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, savedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a record written by [Encode]. It returns the record and the
// time it was saved. Any other format version is corrupt.
func Decode(data []byte) (*Record, int64, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, 0, ErrRecordCorrupt
	}
	if version != recordFormatVersion {
		return nil, 0, ErrRecordCorrupt
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, 0, ErrRecordCorrupt
	}

	r := &Record{}
	if r.Token, err = readString(reader); err != nil {
		return nil, 0, err
	}

	if flags&flagHasUser != 0 {
		u := &User{}
		targets := []*string{
			&u.ID,
			&u.Email,
			&u.FullName,
			&u.OrganizationID,
			&u.Role.ID,
			&u.Role.Name,
			&u.Role.Code,
		}
		for _, t := range targets {
			if *t, err = readString(reader); err != nil {
				return nil, 0, err
			}
		}
		r.User = u
	}

	var savedAt int64
	if err := binary.Read(reader, binary.BigEndian, &savedAt); err != nil {
		return nil, 0, ErrRecordCorrupt
	}

	if reader.Len() != 0 {
		return nil, 0, ErrRecordCorrupt
	}

	return r, savedAt, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return ErrFieldTooLong
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", ErrRecordCorrupt
	}
	if int(n) > reader.Len() {
		return "", ErrRecordCorrupt
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", ErrRecordCorrupt
	}
	return string(b), nil
}
