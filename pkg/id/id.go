// Package id generates the monotonic ULID identifiers used for synchronization runs.
package id

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mutex   sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

type ID struct {
	value ulid.ULID
}

func NewFromTime(t time.Time) (*ID, error) {
	mutex.Lock()
	defer mutex.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return nil, err
	}

	return &ID{id}, nil
}

func NewStringFromTime(t time.Time) (string, error) {
	id, err := NewFromTime(t)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func NewString() (string, error) {
	return NewStringFromTime(time.Now())
}

// MustNewString is like NewString but panics if the entropy source is exhausted,
// which only happens when more than 2^80 ids are requested within one millisecond.
func MustNewString() string {
	s, err := NewString()
	if err != nil {
		panic(err)
	}
	return s
}

func Parse(s string) (*ID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return nil, err
	}

	return &ID{id}, nil
}

func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (id *ID) String() string {
	return id.value.String()
}

// Time returns the creation time encoded in the id, useful for ordering runs.
func (id *ID) Time() time.Time {
	return ulid.Time(id.value.Time())
}
