// Package store persists completed rides in a bbolt file. Rides are JSON values
// keyed by the bucket sequence in big-endian order, so a reverse cursor walk
// yields newest first.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/miradorstack/televator/internal/models"
)

var bucketRides = []byte("rides")

// RideStore is a bbolt-backed ride history.
type RideStore struct {
	db *bolt.DB
}

// Open opens (or creates) the ride database at path.
func Open(path string) (*RideStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRides)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create rides bucket: %w", err)
	}
	return &RideStore{db: db}, nil
}

// Close closes the underlying database.
func (s *RideStore) Close() error {
	return s.db.Close()
}

// SaveRide appends a ride and returns it with its assigned ID.
func (s *RideStore) SaveRide(ctx context.Context, ride models.Ride) (models.Ride, error) {
	if err := ctx.Err(); err != nil {
		return models.Ride{}, err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRides)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		ride.ID = id
		data, err := json.Marshal(ride)
		if err != nil {
			return fmt.Errorf("marshal ride: %w", err)
		}
		return b.Put(rideKey(id), data)
	})
	if err != nil {
		return models.Ride{}, err
	}
	return ride, nil
}

// ListRides returns up to limit rides, newest first. A non-positive limit returns all.
func (s *RideStore) ListRides(ctx context.Context, limit int) ([]models.Ride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rides []models.Ride
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRides).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(rides) >= limit {
				break
			}
			var ride models.Ride
			if err := json.Unmarshal(v, &ride); err != nil {
				return fmt.Errorf("unmarshal ride %x: %w", k, err)
			}
			rides = append(rides, ride)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rides, nil
}

func rideKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
