package chunks

import (
	"context"

	"github.com/helpdesk-cloud/ragdesk/internal/db"
)

// fakeStore implements the consumer interface for tests.
type fakeStore struct {
	hsetItems   []db.HashSetItem
	hsetErr     error
	knnResult   *db.SearchResult
	knnErr      error
	knnQuery    *db.KNNQuery
	countResult int
	countErr    error
	indexExists bool
	existsErr   error
	createdDef  *db.IndexDefinition
	createErr   error
}

func (f *fakeStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	f.hsetItems = append(f.hsetItems, items...)
	return f.hsetErr
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.knnQuery = q
	if f.knnErr != nil {
		return nil, f.knnErr
	}
	if f.knnResult == nil {
		return &db.SearchResult{}, nil
	}
	return f.knnResult, nil
}

func (f *fakeStore) SearchCount(_ context.Context, _, _ string) (int, error) {
	return f.countResult, f.countErr
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	f.createdDef = def
	return f.createErr
}

func (f *fakeStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return f.indexExists, f.existsErr
}
