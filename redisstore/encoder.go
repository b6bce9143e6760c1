package redisstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	goSecretQ "github.com/MrEthical07/goSecretQ"
)

const (
	recordFormatVersionCurrent = 1
	deviceFormatVersionCurrent = 1
)

// ErrRecordCorrupt reports a stored blob that does not decode.
var ErrRecordCorrupt = errors.New("stored record corrupt")

// Device is one registered device.
type Device struct {
	UserID    string
	Name      string
	CPUID     string
	VisitorID string
	CreatedAt time.Time
}

func encodeRecord(rec goSecretQ.CredentialRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersionCurrent)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"userID", rec.UserID},
		{"type", rec.Type},
		{"userLabel", rec.UserLabel},
	} {
		if err := writeShort(&buf, field.name, field.value); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, rec.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := writeLong(&buf, "publicData", rec.PublicData); err != nil {
		return nil, err
	}
	if err := writeLong(&buf, "secretData", rec.SecretData); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeRecord(id string, data []byte) (goSecretQ.CredentialRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return goSecretQ.CredentialRecord{}, corrupt(err)
	}
	if version != recordFormatVersionCurrent {
		return goSecretQ.CredentialRecord{}, fmt.Errorf("%w: unsupported record version %d", ErrRecordCorrupt, version)
	}

	rec := goSecretQ.CredentialRecord{ID: id}
	if rec.UserID, err = readShort(reader); err != nil {
		return goSecretQ.CredentialRecord{}, corrupt(err)
	}
	if rec.Type, err = readShort(reader); err != nil {
		return goSecretQ.CredentialRecord{}, corrupt(err)
	}
	if rec.UserLabel, err = readShort(reader); err != nil {
		return goSecretQ.CredentialRecord{}, corrupt(err)
	}

	var createdAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return goSecretQ.CredentialRecord{}, corrupt(err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()

	if rec.PublicData, err = readLong(reader); err != nil {
		return goSecretQ.CredentialRecord{}, corrupt(err)
	}
	if rec.SecretData, err = readLong(reader); err != nil {
		return goSecretQ.CredentialRecord{}, corrupt(err)
	}
	if reader.Len() != 0 {
		return goSecretQ.CredentialRecord{}, fmt.Errorf("%w: trailing bytes", ErrRecordCorrupt)
	}

	return rec, nil
}

func encodeDevice(d Device) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(deviceFormatVersionCurrent)
	if err := writeShort(&buf, "cpuid", d.CPUID); err != nil {
		return nil, err
	}
	if err := writeShort(&buf, "visitorID", d.VisitorID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, d.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeDevice(userID, name string, data []byte) (Device, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Device{}, corrupt(err)
	}
	if version != deviceFormatVersionCurrent {
		return Device{}, fmt.Errorf("%w: unsupported device version %d", ErrRecordCorrupt, version)
	}

	d := Device{UserID: userID, Name: name}
	if d.CPUID, err = readShort(reader); err != nil {
		return Device{}, corrupt(err)
	}
	if d.VisitorID, err = readShort(reader); err != nil {
		return Device{}, corrupt(err)
	}
	var createdAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return Device{}, corrupt(err)
	}
	d.CreatedAt = time.Unix(0, createdAt).UTC()
	return d, nil
}

func writeShort(buf *bytes.Buffer, name, value string) error {
	if len(value) > 255 {
		return fmt.Errorf("%s too long", name)
	}
	buf.WriteByte(byte(len(value)))
	buf.WriteString(value)
	return nil
}

func writeLong(buf *bytes.Buffer, name string, value []byte) error {
	if uint64(len(value)) > math.MaxUint32 {
		return fmt.Errorf("%s too large", name)
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(value))); err != nil {
		return err
	}
	buf.Write(value)
	return nil
}

func readShort(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", err
	}
	return string(out), nil
}

func readLong(reader *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if int64(n) > int64(reader.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
}
