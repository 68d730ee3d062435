package outline

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vkrlab/briefbot/internal/clients/notion"
	"github.com/vkrlab/briefbot/internal/pkg/logger"
	"github.com/vkrlab/briefbot/internal/types"
)

// Catalog memoizes the parsed brief list and per-page content for the
// lifetime of the process. Fetch+parse runs once per key; concurrent cold
// callers are collapsed through singleflight. Upstream failures are returned
// to the caller and never cached, so the next interaction retries.
type Catalog struct {
	log          *logger.Logger
	source       notion.Client
	briefsPageID string

	mu      sync.RWMutex
	briefs  []types.Brief
	content map[string]types.BriefContent

	group singleflight.Group
}

func NewCatalog(log *logger.Logger, source notion.Client, briefsPageID string) *Catalog {
	return &Catalog{
		log:          log.With("component", "Catalog"),
		source:       source,
		briefsPageID: briefsPageID,
		content:      map[string]types.BriefContent{},
	}
}

// Briefs returns the memoized brief list, fetching it on first use. An empty
// parse result is not cached, mirroring "no content available" semantics.
func (c *Catalog) Briefs(ctx context.Context) ([]types.Brief, error) {
	c.mu.RLock()
	cached := c.briefs
	c.mu.RUnlock()
	if len(cached) > 0 {
		return cached, nil
	}

	v, err, _ := c.group.Do("briefs", func() (interface{}, error) {
		blocks, err := c.source.FetchTopLevelBlocks(ctx, c.briefsPageID)
		if err != nil {
			c.log.Warn("Brief list fetch failed", "page_id", c.briefsPageID, "error", err)
			return []types.Brief{}, err
		}
		briefs := ParseBriefList(ctx, blocks, c.resolveTitle)
		if len(briefs) > 0 {
			c.mu.Lock()
			c.briefs = briefs
			c.mu.Unlock()
		}
		return briefs, nil
	})
	briefs, _ := v.([]types.Brief)
	return briefs, err
}

// BriefContent returns the memoized parsed content for one brief page.
func (c *Catalog) BriefContent(ctx context.Context, pageID string) (types.BriefContent, error) {
	c.mu.RLock()
	cached, ok := c.content[pageID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := c.group.Do("content:"+pageID, func() (interface{}, error) {
		blocks, err := c.source.FetchTopLevelBlocks(ctx, pageID)
		if err != nil {
			c.log.Warn("Brief content fetch failed", "page_id", pageID, "error", err)
			return emptyContent(), err
		}
		parsed := ParseBriefContent(blocks)
		c.mu.Lock()
		c.content[pageID] = parsed
		c.mu.Unlock()
		return parsed, nil
	})
	parsed, _ := v.(types.BriefContent)
	return parsed, err
}

// PublicURL resolves the browser link for a page.
func (c *Catalog) PublicURL(pageID string) string {
	return c.source.PublicURL(pageID)
}

func (c *Catalog) resolveTitle(ctx context.Context, pageID string) (string, error) {
	return c.source.FetchPageTitle(ctx, pageID)
}

func emptyContent() types.BriefContent {
	return types.BriefContent{
		Steps:     []types.Step{},
		Checklist: []types.ChecklistItem{},
		Sections:  map[types.SectionKey]types.Section{},
	}
}
