package credstore

import (
	"encoding/json"
	"time"

	"github.com/wheelrent/authsession/internal"
)

// Record is the persisted credential record: the bearer token, the serialized
// application user, and the advisory expiration in milliseconds since epoch.
// A Record is written whole on every successful acquisition or refresh and
// removed whole on logout.
type Record struct {
	Token           string
	User            json.RawMessage
	TokenExpiration int64
}

// NewRecord builds a Record from session fields. A zero expiration time is
// persisted as 0 (absent).
func NewRecord(token string, user json.RawMessage, expiresAt time.Time) *Record {
	return &Record{
		Token:           token,
		User:            user,
		TokenExpiration: internal.TimeToMillis(expiresAt),
	}
}

// ExpiresAt returns the advisory expiration as a time.Time, zero when absent.
func (r *Record) ExpiresAt() time.Time {
	if r == nil {
		return time.Time{}
	}
	return internal.MillisToTime(r.TokenExpiration)
}

// LoadResult is the tagged outcome of Adapter.Load. Found with OriginGeneral
// and Migrated=true means the record was consolidated into the secure backend
// as a side effect of the read.
type LoadResult struct {
	Found    bool
	Origin   Origin
	Migrated bool
	Record   *Record
}
