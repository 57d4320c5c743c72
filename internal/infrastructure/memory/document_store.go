package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oksasatya/organizer-billing/internal/domain/repository"
)

type storedObject struct {
	data        []byte
	contentType string
}

// DocumentStore is an in-memory object store. FailPutOn / FailDeleteOn inject
// errors for a given key.
type DocumentStore struct {
	mu          sync.Mutex
	objects     map[string]storedObject
	putErrs     map[string]error
	deleteErrs  map[string]error
	puts        []string
	deletes     []string
	failAllPuts error
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		objects:    map[string]storedObject{},
		putErrs:    map[string]error{},
		deleteErrs: map[string]error{},
	}
}

func (s *DocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failAllPuts != nil {
		return s.failAllPuts
	}
	if err := s.putErrs[key]; err != nil {
		return err
	}
	s.objects[key] = storedObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	if err := s.deleteErrs[key]; err != nil {
		return err
	}
	delete(s.objects, key)
	return nil
}

func (s *DocumentStore) FailPutOn(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErrs[key] = err
}

func (s *DocumentStore) FailAllPuts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAllPuts = err
}

func (s *DocumentStore) FailDeleteOn(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErrs[key] = err
}

// Keys lists the stored object keys, sorted.
func (s *DocumentStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Puts and Deletes return every attempted key in call order.
func (s *DocumentStore) Puts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.puts...)
}

func (s *DocumentStore) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

var _ repository.DocumentStore = (*DocumentStore)(nil)
