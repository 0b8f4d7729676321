package store

import (
	"errors"
	"sync"
	"time"

	"cineflow/console/internal/model"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)

type storyboardRecord struct {
	model.Storyboard
	seq        int64
	segmentIDs []string
}

type segmentRecord struct {
	model.Segment
	seq int64
}

type runRecord struct {
	model.Run
	seq    int64
	config model.RunCreateRequest
}

// TaskRecord is a task plus the bookkeeping the executor needs.
type TaskRecord struct {
	model.Task
	SegmentID    string
	VersionIndex int
	ProviderID   string
	Attempt      int
	seq          int64
}

type Upload struct {
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// APIKey is stored hashed; Fingerprint is the lookup key.
type APIKey struct {
	ID          string
	Name        string
	Fingerprint string
	Hash        []byte
	CreatedAt   time.Time
}

// MemoryStore is the mock backend's single source of truth. One instance is created
// per process; Reset returns it to the seeded state.
type MemoryStore struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	storyboards map[string]*storyboardRecord
	segments    map[string]*segmentRecord
	runs        map[string]*runRecord
	tasks       map[string]*TaskRecord
	models      map[string]*catalogModel
	providers   map[string]*catalogProvider
	uploads     map[string]Upload
	apiKeys     map[string]APIKey

	clientEvents []ClientEvent
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	s.reset()
	return s
}

// Reset drops every storyboard, run, upload and API key and restores the seeded
// model and provider catalog.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *MemoryStore) reset() {
	s.seq = 0
	s.storyboards = map[string]*storyboardRecord{}
	s.segments = map[string]*segmentRecord{}
	s.runs = map[string]*runRecord{}
	s.tasks = map[string]*TaskRecord{}
	s.uploads = map[string]Upload{}
	s.apiKeys = map[string]APIKey{}
	s.clientEvents = nil
	s.models = seedModels()
	s.providers = seedProviders()
}

func (s *MemoryStore) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *MemoryStore) SaveUpload(u Upload) Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.uploads[u.Name] = u
	return u
}

func (s *MemoryStore) GetUpload(name string) (Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.uploads[name]
	if !ok {
		return Upload{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) SaveAPIKey(key APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[key.Fingerprint] = key
}

func (s *MemoryStore) GetAPIKeyByFingerprint(fp string) (APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.apiKeys[fp]
	if !ok {
		return APIKey{}, ErrNotFound
	}
	return key, nil
}
