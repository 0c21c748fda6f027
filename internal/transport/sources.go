package transport

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/soneri/appcanvas/internal/cache"
	"github.com/soneri/appcanvas/model"
)

// DocumentSource loads variant documents, serving a fresh-enough snapshot
// before revalidating against the upstream.
type DocumentSource interface {
	Load(ctx context.Context, distroName string) (*model.ConfigurationDocument, cache.Source, error)
}

// DistroSource lists the available distribution variants.
type DistroSource interface {
	List(ctx context.Context) ([]model.DistroDescriptor, cache.Source, error)
}

// documentFetcher is the slice of the remote client document sources need.
type documentFetcher interface {
	FetchDocument(ctx context.Context, distroName string) (model.ConfigurationDocument, error)
}

// distroLister is the slice of the remote client distro sources need.
type distroLister interface {
	ListDistros(ctx context.Context) ([]model.DistroDescriptor, error)
}

// CachedDocumentSource serves per-variant documents through the snapshot
// cache, one revalidator per distro name.
type CachedDocumentSource struct {
	fetcher documentFetcher
	store   cache.SnapshotStore
	maxAge  time.Duration

	mu           sync.Mutex
	revalidators map[string]*cache.Revalidator[*model.ConfigurationDocument]
}

// NewCachedDocumentSource creates a document source over the given fetcher
// and snapshot store.
func NewCachedDocumentSource(fetcher documentFetcher, store cache.SnapshotStore, maxAge time.Duration) *CachedDocumentSource {
	return &CachedDocumentSource{
		fetcher:      fetcher,
		store:        store,
		maxAge:       maxAge,
		revalidators: make(map[string]*cache.Revalidator[*model.ConfigurationDocument]),
	}
}

// Load returns the document for one variant and where it was served from.
func (s *CachedDocumentSource) Load(ctx context.Context, distroName string) (*model.ConfigurationDocument, cache.Source, error) {
	return s.revalidator(distroName).Read(ctx)
}

func (s *CachedDocumentSource) revalidator(distroName string) *cache.Revalidator[*model.ConfigurationDocument] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.revalidators[distroName]; ok {
		return r
	}
	r := cache.NewRevalidator(
		s.store,
		cache.FormatSnapshotKey("document", distroName),
		s.maxAge,
		func(ctx context.Context) (*model.ConfigurationDocument, error) {
			doc, err := s.fetcher.FetchDocument(ctx, distroName)
			if err != nil {
				return nil, err
			}
			return &doc, nil
		},
		mergeValueEqual[*model.ConfigurationDocument],
	)
	s.revalidators[distroName] = r
	return r
}

// CachedDistroSource serves the distro list through the snapshot cache.
type CachedDistroSource struct {
	revalidator *cache.Revalidator[*[]model.DistroDescriptor]
}

// NewCachedDistroSource creates a distro source over the given lister and
// snapshot store.
func NewCachedDistroSource(lister distroLister, store cache.SnapshotStore, maxAge time.Duration) *CachedDistroSource {
	return &CachedDistroSource{
		revalidator: cache.NewRevalidator(
			store,
			cache.FormatSnapshotKey("distros", "all"),
			maxAge,
			func(ctx context.Context) (*[]model.DistroDescriptor, error) {
				descriptors, err := lister.ListDistros(ctx)
				if err != nil {
					return nil, err
				}
				return &descriptors, nil
			},
			mergeValueEqual[*[]model.DistroDescriptor],
		),
	}
}

// List returns the distro list and where it was served from.
func (s *CachedDistroSource) List(ctx context.Context) ([]model.DistroDescriptor, cache.Source, error) {
	descriptors, source, err := s.revalidator.Read(ctx)
	if err != nil {
		return nil, source, err
	}
	return *descriptors, source, nil
}

// mergeValueEqual keeps the previous reference whenever the refreshed state
// is value-equal to it, so unchanged entities keep their identity.
func mergeValueEqual[T comparable](prev, fresh T) T {
	if reflect.DeepEqual(prev, fresh) {
		return prev
	}
	return fresh
}
