package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

const sessionFormatVersionCurrent = 1

// ErrSessionCorrupt reports a stored session blob that does not decode.
var ErrSessionCorrupt = errors.New("session corrupt")

func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if len(s.Realm) > 255 {
		return nil, errors.New("realm too long")
	}
	buf.WriteByte(byte(len(s.Realm)))
	buf.WriteString(s.Realm)

	if len(s.Notes) > math.MaxUint16 {
		return nil, errors.New("too many notes")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.Notes))); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.Notes))
	for name := range s.Notes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := s.Notes[name]
		if len(name) > 255 {
			return nil, fmt.Errorf("note name %q too long", name[:16])
		}
		if len(value) > math.MaxUint16 {
			return nil, fmt.Errorf("note %q too large", name)
		}
		buf.WriteByte(byte(len(name)))
		buf.WriteString(name)
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(value))); err != nil {
			return nil, err
		}
		buf.WriteString(value)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Session, error) {
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return s, nil
}

func decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	s := &Session{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	s.UserID = string(userID)

	realmLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	realm := make([]byte, realmLen)
	if _, err := io.ReadFull(reader, realm); err != nil {
		return nil, err
	}
	s.Realm = string(realm)

	var noteCount uint16
	if err := binary.Read(reader, binary.BigEndian, &noteCount); err != nil {
		return nil, err
	}
	s.Notes = make(map[string]string, noteCount)
	for i := 0; i < int(noteCount); i++ {
		nameLen, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(reader, name); err != nil {
			return nil, err
		}
		var valueLen uint16
		if err := binary.Read(reader, binary.BigEndian, &valueLen); err != nil {
			return nil, err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, err
		}
		s.Notes[string(name)] = string(value)
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes")
	}

	return s, nil
}
