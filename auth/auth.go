package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

var (
	ErrNoCredential  = errors.New("no credential found")
	ErrBadCredential = errors.New("bad credential")
	ErrTokenMismatch = errors.New("token not match")
)

// TokenQueryFunc returns the expected token of a dataset ("owner/name").
type TokenQueryFunc func(ctx context.Context, dataset string) (string, bool, error)

func MapTokenMatch(ud map[string]string) TokenQueryFunc {
	return func(ctx context.Context, dataset string) (string, bool, error) {
		tk, ok := ud[dataset]
		if !ok {
			return "", false, nil
		}
		return tk, true, nil
	}
}

// Verify checks cred against fn, a nil fn accepts every credential.
func Verify(ctx context.Context, cred *Credential, fn TokenQueryFunc) error {
	if fn == nil {
		return nil
	}
	tk, ok, err := fn(ctx, cred.DatasetID())
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(tk), []byte(cred.Token)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
