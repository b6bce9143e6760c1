package sqlstore

import (
	"time"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/uptrace/bun"
)

type credentialModel struct {
	bun.BaseModel `bun:"table:credentials"`

	ID         string `bun:"id,pk"`
	UserID     string `bun:"user_id,notnull"`
	Type       string `bun:"type,notnull"`
	UserLabel  string `bun:"user_label"`
	CreatedAt  int64  `bun:"created_at,notnull"`
	PublicData []byte `bun:"public_data"`
	SecretData []byte `bun:"secret_data"`
}

type deviceModel struct {
	bun.BaseModel `bun:"table:device_credentials"`

	ID        string `bun:"id,pk"`
	UserID    string `bun:"user_id,notnull"`
	Name      string `bun:"name,notnull"`
	CPUID     string `bun:"cpuid"`
	VisitorID string `bun:"visitor_id"`
	CreatedAt int64  `bun:"created_at,notnull"`
}

// Device is one registered device.
type Device struct {
	ID        string
	UserID    string
	Name      string
	CPUID     string
	VisitorID string
	CreatedAt time.Time
}

func credentialToModel(rec goSecretQ.CredentialRecord) credentialModel {
	return credentialModel{
		ID:         rec.ID,
		UserID:     rec.UserID,
		Type:       rec.Type,
		UserLabel:  rec.UserLabel,
		CreatedAt:  rec.CreatedAt.UnixNano(),
		PublicData: rec.PublicData,
		SecretData: rec.SecretData,
	}
}

func credentialFromModel(m credentialModel) goSecretQ.CredentialRecord {
	return goSecretQ.CredentialRecord{
		ID:         m.ID,
		UserID:     m.UserID,
		Type:       m.Type,
		UserLabel:  m.UserLabel,
		CreatedAt:  time.Unix(0, m.CreatedAt).UTC(),
		PublicData: m.PublicData,
		SecretData: m.SecretData,
	}
}

func deviceFromModel(m deviceModel) Device {
	return Device{
		ID:        m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		CPUID:     m.CPUID,
		VisitorID: m.VisitorID,
		CreatedAt: time.Unix(0, m.CreatedAt).UTC(),
	}
}
