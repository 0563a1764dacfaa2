package orgsite

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/eringen/orgsite/backend"
	"github.com/eringen/orgsite/content"
)

// ReadCache holds the public collections for a short TTL. Every successful
// admin write flushes it so this process always reads its own writes.
// Membership settings are deliberately not cached.
type ReadCache struct {
	store *content.Store
	items *gocache.Cache
}

// NewReadCache creates a ReadCache in front of s.
func NewReadCache(s *content.Store, ttl time.Duration) *ReadCache {
	return &ReadCache{store: s, items: gocache.New(ttl, 2*ttl)}
}

// Flush drops everything so the next read goes to the backend.
func (c *ReadCache) Flush() {
	c.items.Flush()
}

func cached[T any](c *ReadCache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.items.Get(key); ok {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.items.SetDefault(key, v)
	return v, nil
}

// Blogs returns published posts, newest first.
func (c *ReadCache) Blogs(ctx context.Context) ([]content.BlogPost, error) {
	return cached(c, "blogs", func() ([]content.BlogPost, error) {
		return c.store.ListBlogs(ctx, true)
	})
}

// Blog returns one published post from the cached list.
func (c *ReadCache) Blog(ctx context.Context, id string) (content.BlogPost, error) {
	posts, err := c.Blogs(ctx)
	if err != nil {
		return content.BlogPost{}, err
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return content.BlogPost{}, backend.ErrNotFound
}

// Events returns published events in date order.
func (c *ReadCache) Events(ctx context.Context) ([]content.Event, error) {
	return cached(c, "events", func() ([]content.Event, error) {
		return c.store.ListEvents(ctx, true)
	})
}

// Gallery returns every gallery item, newest first.
func (c *ReadCache) Gallery(ctx context.Context) ([]content.GalleryItem, error) {
	return cached(c, "gallery", func() ([]content.GalleryItem, error) {
		return c.store.ListGallery(ctx)
	})
}

// Forum returns every forum post, newest first.
func (c *ReadCache) Forum(ctx context.Context) ([]content.ForumPost, error) {
	return cached(c, "forum", func() ([]content.ForumPost, error) {
		return c.store.ListForum(ctx)
	})
}

// Team returns the team, oldest member first.
func (c *ReadCache) Team(ctx context.Context) ([]content.TeamMember, error) {
	return cached(c, "team", func() ([]content.TeamMember, error) {
		return c.store.ListTeam(ctx)
	})
}

// About returns the about page sections in page order.
func (c *ReadCache) About(ctx context.Context) ([]content.AboutSection, error) {
	return cached(c, "about", func() ([]content.AboutSection, error) {
		return c.store.AboutSections(ctx)
	})
}

// Hero returns the home banner.
func (c *ReadCache) Hero(ctx context.Context) (content.HomeHero, error) {
	return cached(c, "hero", func() (content.HomeHero, error) {
		return c.store.Hero(ctx)
	})
}
