package history

import "context"

// fakeStore implements the consumer interface for tests. Lists and hashes
// are held in memory with enough semantics for the repository paths.
type fakeStore struct {
	lists  map[string][]string
	hashes map[string]map[string]string

	rpushErr  error
	lrangeErr error
	ltrimErr  error
	hsetErr   error
	scanErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lists:  make(map[string][]string),
		hashes: make(map[string]map[string]string),
	}
}

func (f *fakeStore) RPush(_ context.Context, key string, values ...string) error {
	if f.rpushErr != nil {
		return f.rpushErr
	}
	f.lists[key] = append(f.lists[key], values...)
	return nil
}

func (f *fakeStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	if f.lrangeErr != nil {
		return nil, f.lrangeErr
	}
	items := f.lists[key]
	n := int64(len(items))
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if start > stop || start >= n {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}
	return items[start : stop+1], nil
}

func (f *fakeStore) LTrim(_ context.Context, key string, start, stop int64) error {
	if f.ltrimErr != nil {
		return f.ltrimErr
	}
	kept, err := f.LRange(context.Background(), key, start, stop)
	if err != nil {
		return err
	}
	f.lists[key] = kept
	return nil
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if f.hsetErr != nil {
		return f.hsetErr
	}
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	for k, v := range fields {
		f.hashes[key][k] = v
	}
	return nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return f.hashes[key], nil
}

func (f *fakeStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		out[i] = f.hashes[key]
	}
	return out, nil
}

func (f *fakeStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var keys []string
	for key := range f.hashes {
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	delete(f.lists, key)
	delete(f.hashes, key)
	return nil
}
