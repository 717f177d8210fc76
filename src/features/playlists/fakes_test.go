package playlists

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/contre95/m3ushelf/src/music"
)

type memoryRepo struct {
	mu        sync.Mutex
	playlists map[string]*music.Playlist
	creates   int
	failWith  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{playlists: make(map[string]*music.Playlist)}
}

func (r *memoryRepo) Create(ctx context.Context, playlist *music.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.creates++
	stored := *playlist
	r.playlists[playlist.ID] = &stored
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*music.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", music.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]music.PlaylistSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]music.PlaylistSummary, 0, len(r.playlists))
	for _, p := range r.playlists {
		all = append(all, p.Summary())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []music.PlaylistSummary{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r *memoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.playlists), nil
}

func (r *memoryRepo) Update(ctx context.Context, id string, patch music.PlaylistPatch) (*music.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", music.ErrNotFound, id)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.SourceURL != nil {
		p.SourceURL = *patch.SourceURL
	}
	if patch.Ingest != nil {
		p.Apply(*patch.Ingest)
	}
	p.UpdatedAt = patch.UpdatedAt
	copied := *p
	return &copied, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playlists[id]; !ok {
		return fmt.Errorf("%w: %s", music.ErrNotFound, id)
	}
	delete(r.playlists, id)
	return nil
}

type fakeFetcher struct {
	bodies map[string]string
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	body, ok := f.bodies[url]
	if !ok {
		return "", fmt.Errorf("%w: status 404", music.ErrUpstreamFetch)
	}
	return body, nil
}

func testConfig(retention, maxBytes, maxJSON int64) *config.Manager {
	return config.NewManager(&config.Config{
		Upload: config.Upload{
			RetentionBytes: retention,
			MaxBytes:       maxBytes,
			MaxJSONBytes:   maxJSON,
		},
	})
}

func newTestService(retention, maxBytes, maxJSON int64) (*Service, *memoryRepo, *fakeFetcher) {
	repo := newMemoryRepo()
	fetcher := &fakeFetcher{bodies: map[string]string{}}
	return NewService(repo, fetcher, testConfig(retention, maxBytes, maxJSON)), repo, fetcher
}
