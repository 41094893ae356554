package compiler

import (
	"fmt"

	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/filter"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/script"
	"github.com/roach88/focusql/internal/strategy"
)

// Plan is a compiled request that has not been executed.
type Plan struct {
	Operation string             `json:"operation"`
	Entity    string             `json:"entity,omitempty"`
	Strategy  strategy.Strategy  `json:"strategy"`
	Filter    string             `json:"filter,omitempty"`
	CacheKey  string             `json:"cacheKey,omitempty"`
	Scripts   []*script.Artifact `json:"-"`
}

// Compile validates req and renders its scripts without running them.
// Errors are *engine.Error.
func (c *Compiler) Compile(req query.Request) (*Plan, error) {
	switch r := req.(type) {
	case *query.QueryRequest:
		p, verr := c.planQuery(r)
		if verr != nil {
			return nil, verr
		}
		art, augmented, verr := c.buildRead(p, c.newID(), c.now())
		if verr != nil {
			return nil, verr
		}
		return &Plan{
			Operation: "query",
			Entity:    p.entity.Name,
			Strategy:  art.Strategy,
			Filter:    filter.String(augmented),
			CacheKey:  p.key,
			Scripts:   []*script.Artifact{art},
		}, nil

	case *query.MutationRequest:
		if verr := c.validateMutation(r, false, false); verr != nil {
			return nil, verr
		}
		plan := &Plan{
			Operation: string(r.Operation),
			Entity:    r.EntityType,
			Strategy:  strategy.Select(r, c.reg),
		}
		items := []*query.MutationRequest{r}
		if r.Operation == query.OpBatch {
			items = r.Items
		}
		requestID := c.newID()
		for i, item := range items {
			id := requestID
			if r.Operation == query.OpBatch {
				id = fmt.Sprintf("%s.%d", requestID, i)
			}
			art, err := c.gen.Mutation(id, item, strategy.Select(item, c.reg))
			if err != nil {
				return nil, validationf("%v", err)
			}
			plan.Scripts = append(plan.Scripts, art)
		}
		return plan, nil
	}
	return nil, engine.NewError(engine.KindInternal, fmt.Sprintf("unsupported request type %T", req), "")
}
