package cache

import (
	"slices"
	"time"
)

// Collection names.
const (
	Tasks     = "tasks"
	Projects  = "projects"
	Tags      = "tags"
	Folders   = "folders"
	Reviews   = "reviews"
	Analytics = "analytics"
)

// DefaultTTLs are the per-collection lifetimes. Review schedules change
// with the clock, analytics are expensive to recompute.
var DefaultTTLs = map[string]time.Duration{
	Tasks:     60 * time.Second,
	Projects:  5 * time.Minute,
	Tags:      10 * time.Minute,
	Folders:   10 * time.Minute,
	Reviews:   30 * time.Second,
	Analytics: time.Hour,
}

// fallbackTTL applies to collections missing from the TTL table.
const fallbackTTL = time.Minute

// invalidation maps the entity a mutation touched to every collection
// whose cached results it can change. Task records carry project and tag
// derived fields, so writes to those entities clear tasks too.
var invalidation = map[string][]string{
	"task":    {Tasks, Analytics},
	"project": {Projects, Tasks, Analytics, Reviews},
	"tag":     {Tags, Tasks},
	"folder":  {Folders, Projects, Tasks},
}

// CollectionsFor returns the collections a mutation of entity invalidates.
// Unknown entities invalidate every collection.
func CollectionsFor(entity string) []string {
	if cols, ok := invalidation[entity]; ok {
		return slices.Clone(cols)
	}
	return AllCollections()
}

// AllCollections returns every known collection, sorted.
func AllCollections() []string {
	out := make([]string, 0, len(DefaultTTLs))
	for c := range DefaultTTLs {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
