package script

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/strategy"
)

//go:embed templates/*.js
var templateFS embed.FS

// Placeholder marks the one position where the serialized parameter block
// is spliced into a template. Only the prelude contains it.
const Placeholder = "__FOCUSQL_PARAMS__"

// OpRead names the read template family alongside the mutation operations.
const OpRead = "read"

// Template names a composed script.
type Template string

const (
	TemplateRead         Template = "read"
	TemplateCreateDirect Template = "create_direct"
	TemplateCreateHybrid Template = "create_hybrid"
	TemplateUpdateDirect Template = "update_direct"
	TemplateUpdateBridge Template = "update_bridge"
	TemplateComplete     Template = "complete"
	TemplateDelete       Template = "delete"
)

// libraries each template body depends on, in inclusion order.
var libraries = map[Template][]string{
	TemplateRead:         {"lib_read", "lib_filter"},
	TemplateCreateDirect: {"lib_write"},
	TemplateCreateHybrid: {"lib_write", "lib_bridge"},
	TemplateUpdateDirect: {"lib_write"},
	TemplateUpdateBridge: {"lib_bridge"},
	TemplateComplete:     {"lib_write"},
	TemplateDelete:       {"lib_write"},
}

// Lookup returns the template for an operation executed under a strategy.
// The pairs not listed have no template: a batch is executed item by item,
// and reads never write.
func Lookup(op string, s strategy.Strategy) (Template, error) {
	switch op {
	case OpRead:
		if s == strategy.DirectRead {
			return TemplateRead, nil
		}
	case string(query.OpCreate):
		switch s {
		case strategy.DirectWrite:
			return TemplateCreateDirect, nil
		case strategy.Hybrid:
			return TemplateCreateHybrid, nil
		}
	case string(query.OpUpdate):
		switch s {
		case strategy.DirectWrite:
			return TemplateUpdateDirect, nil
		case strategy.BridgeEvaluation:
			return TemplateUpdateBridge, nil
		}
	case string(query.OpComplete):
		if s == strategy.DirectWrite {
			return TemplateComplete, nil
		}
	case string(query.OpDelete):
		if s == strategy.DirectWrite {
			return TemplateDelete, nil
		}
	}
	return "", fmt.Errorf("no script template for operation %q under %s", op, s)
}

var (
	composeOnce sync.Once
	composed    map[Template]string
	composeErr  error
)

// Source returns the composed template text with the placeholder intact.
func Source(t Template) (string, error) {
	composeOnce.Do(func() {
		composed, composeErr = composeAll()
	})
	if composeErr != nil {
		return "", composeErr
	}
	src, ok := composed[t]
	if !ok {
		return "", fmt.Errorf("unknown template %q", t)
	}
	return src, nil
}

func composeAll() (map[Template]string, error) {
	read := func(name string) (string, error) {
		data, err := templateFS.ReadFile("templates/" + name + ".js")
		if err != nil {
			return "", fmt.Errorf("read template %s: %w", name, err)
		}
		return string(data), nil
	}
	prelude, err := read("prelude")
	if err != nil {
		return nil, err
	}
	epilogue, err := read("epilogue")
	if err != nil {
		return nil, err
	}

	out := make(map[Template]string, len(libraries))
	for t, libs := range libraries {
		var b strings.Builder
		b.WriteString(prelude)
		for _, lib := range libs {
			text, err := read(lib)
			if err != nil {
				return nil, err
			}
			b.WriteString(text)
		}
		body, err := read(string(t))
		if err != nil {
			return nil, err
		}
		b.WriteString(body)
		b.WriteString(epilogue)

		src := b.String()
		if n := strings.Count(src, Placeholder); n != 1 {
			return nil, fmt.Errorf("template %s: placeholder appears %d times, want 1", t, n)
		}
		out[t] = src
	}
	return out, nil
}
