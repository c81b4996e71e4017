package dataset

import (
	"context"

	"github.com/xxxsen/dsdav/objstore"
)

// Factory binds a dataset for one request.
type Factory func(ctx context.Context, owner string, name string, token string) (*Dataset, error)

// StoreFactory binds every dataset to the same shared store, the token has
// already been checked by the caller.
func StoreFactory(store objstore.IObjectStore) Factory {
	return func(ctx context.Context, owner string, name string, token string) (*Dataset, error) {
		return New(store, owner, name), nil
	}
}

type datasetKeyType struct{}

var datasetKey = datasetKeyType{}

func WithContext(ctx context.Context, ds *Dataset) context.Context {
	return context.WithValue(ctx, datasetKey, ds)
}

func FromContext(ctx context.Context) (*Dataset, bool) {
	v := ctx.Value(datasetKey)
	if v == nil {
		return nil, false
	}
	ds, ok := v.(*Dataset)
	return ds, ok
}
