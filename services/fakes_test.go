package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"blood-bank/providers"
	"blood-bank/storage"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []providers.Message
	err  error
}

func (f *fakeMailer) Name() string { return "fake" }

func (f *fakeMailer) Send(_ context.Context, msg providers.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeStore struct {
	objects   map[string][]byte
	listed    []storage.Object
	deleted   []string
	putErr    error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(_ context.Context, key string, data []byte) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = data
	return "https://s3.example.com/bucket/" + key, nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	var out []storage.Object
	for _, o := range f.listed {
		if strings.HasPrefix(o.Key, prefix) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return fmt.Errorf("delete %s: %w", key, f.deleteErr)
	}
	f.deleted = append(f.deleted, key)
	return nil
}
