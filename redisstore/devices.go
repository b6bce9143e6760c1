package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/redis/go-redis/v9"
)

// DeviceStore is a Redis-backed [goSecretQ.DeviceCredentialCreator]. Device
// names are unique per user.
type DeviceStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewDeviceStore creates a [DeviceStore] under prefix. An empty prefix uses
// the engine default.
func NewDeviceStore(rdb redis.UniversalClient, prefix string) *DeviceStore {
	if prefix == "" {
		prefix = goSecretQ.DefaultConfig().Store.DevicePrefix
	}
	return &DeviceStore{
		redis:  rdb,
		prefix: prefix,
		now:    time.Now,
	}
}

func (d *DeviceStore) key(userID string) string {
	return d.prefix + ":" + userID
}

// CreateDeviceCredential registers deviceName for userID.
//
//	Performance: 1 HSETNX.
func (d *DeviceStore) CreateDeviceCredential(ctx context.Context, userID, deviceName, cpuid, visitorID string) error {
	if userID == "" {
		return goSecretQ.ErrUserRequired
	}
	if deviceName == "" {
		return goSecretQ.ErrDeviceNameRequired
	}

	data, err := encodeDevice(Device{
		CPUID:     cpuid,
		VisitorID: visitorID,
		CreatedAt: d.now().UTC(),
	})
	if err != nil {
		return err
	}

	created, err := d.redis.HSetNX(ctx, d.key(userID), deviceName, data).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}
	if !created {
		return fmt.Errorf("%w: %q", goSecretQ.ErrDeviceNameTaken, deviceName)
	}
	return nil
}

// Devices lists userID's devices ordered by name.
func (d *DeviceStore) Devices(ctx context.Context, userID string) ([]Device, error) {
	fields, err := d.redis.HGetAll(ctx, d.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Device{}, nil
		}
		return nil, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}

	out := make([]Device, 0, len(fields))
	for name, raw := range fields {
		dev, err := decodeDevice(userID, name, []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RemoveDevice deletes deviceName for userID and reports whether it existed.
func (d *DeviceStore) RemoveDevice(ctx context.Context, userID, deviceName string) (bool, error) {
	n, err := d.redis.HDel(ctx, d.key(userID), deviceName).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", goSecretQ.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
