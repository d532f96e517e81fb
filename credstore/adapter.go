package credstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/wheelrent/authsession/internal"
)

// Adapter composes the secure and general backends behind the
// save/load/clear contract. Callers never branch on which backend held the
// data; precedence and migration are internal.
type Adapter struct {
	secure  Backend
	general Backend
}

// NewAdapter creates an Adapter. Both backends are required.
func NewAdapter(secure, general Backend) (*Adapter, error) {
	if secure == nil {
		return nil, errors.New("secure backend required")
	}
	if general == nil {
		return nil, errors.New("general backend required")
	}
	return &Adapter{secure: secure, general: general}, nil
}

// Save writes the record to the secure backend. The general backend is a
// legacy location: it is only ever read from (and drained by migration),
// never written.
func (a *Adapter) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Token == "" {
		return errors.New("refusing to persist empty credential record")
	}
	return writeRecord(ctx, a.secure, rec)
}

// Load reads the persisted record, secure backend first, general backend as
// fallback. A record found only in the general backend is migrated to the
// secure backend and removed from the general one; migration failure degrades
// to Migrated=false without failing the load.
func (a *Adapter) Load(ctx context.Context) (LoadResult, error) {
	rec, err := readRecord(ctx, a.secure)
	if err == nil {
		return LoadResult{Found: true, Origin: OriginSecure, Record: rec}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return LoadResult{}, err
	}

	rec, err = readRecord(ctx, a.general)
	if errors.Is(err, ErrNotFound) {
		return LoadResult{Origin: OriginNone}, nil
	}
	if err != nil {
		return LoadResult{}, err
	}

	res := LoadResult{Found: true, Origin: OriginGeneral, Record: rec}
	if writeRecord(ctx, a.secure, rec) == nil {
		if a.general.Delete(ctx, KeyToken, KeyUser, KeyTokenExpiration) == nil {
			res.Migrated = true
		}
	}
	return res, nil
}

// Clear removes the record from both backends. Each backend is attempted
// independently; the joined error is informational — callers log it rather
// than fail logout over a stray persisted copy.
func (a *Adapter) Clear(ctx context.Context) error {
	errSecure := a.secure.Delete(ctx, KeyToken, KeyUser, KeyTokenExpiration)
	errGeneral := a.general.Delete(ctx, KeyToken, KeyUser, KeyTokenExpiration)
	return errors.Join(errSecure, errGeneral)
}

func writeRecord(ctx context.Context, b Backend, rec *Record) error {
	if err := b.Set(ctx, KeyToken, rec.Token); err != nil {
		return err
	}
	if err := b.Set(ctx, KeyUser, string(rec.User)); err != nil {
		return err
	}
	return b.Set(ctx, KeyTokenExpiration, internal.FormatMillis(rec.TokenExpiration))
}

// readRecord treats the token entry as the record's presence marker; user and
// expiration entries are tolerated missing (partial legacy writes).
func readRecord(ctx context.Context, b Backend) (*Record, error) {
	token, err := b.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotFound
	}

	rec := &Record{Token: token}

	if user, err := b.Get(ctx, KeyUser); err == nil && user != "" && json.Valid([]byte(user)) {
		rec.User = json.RawMessage(user)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if exp, err := b.Get(ctx, KeyTokenExpiration); err == nil {
		rec.TokenExpiration = internal.ParseMillis(exp)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return rec, nil
}
