package include

import "github.com/eltwork/eltctl/internal/document"

// Top-level keys whose sequences concatenate across documents instead of
// being replaced.
var concatKeys = map[string]struct{}{
	"schedules":    {},
	"jobs":         {},
	"environments": {},
}

// Merge combines an incoming document into the base and returns a new
// tree; neither input is modified. Top-level sequence collections
// concatenate base-first, the plugins mapping merges kind by kind, and
// every other key is replaced wholesale by the incoming document.
func Merge(base, incoming *document.Node) *document.Node {
	out := base.Clone()
	if !incoming.IsMapping() {
		return out
	}

	for _, key := range incoming.Keys() {
		inc, _ := incoming.Get(key)
		cur, exists := out.Get(key)

		if _, concat := concatKeys[key]; concat && exists && cur.IsSequence() && inc.IsSequence() {
			out.Set(key, concatSequences(cur, inc))
			continue
		}
		if key == "plugins" && exists && cur.IsMapping() && inc.IsMapping() {
			out.Set(key, mergePlugins(cur, inc))
			continue
		}
		out.Set(key, inc.Clone())
	}
	return out
}

// mergePlugins merges the plugins mapping kind by kind: per-kind sequences
// concatenate, kinds only present in the incoming document are appended.
func mergePlugins(base, incoming *document.Node) *document.Node {
	out := base.Clone()
	for _, kind := range incoming.Keys() {
		inc, _ := incoming.Get(kind)
		cur, exists := out.Get(kind)
		if exists && cur.IsSequence() && inc.IsSequence() {
			out.Set(kind, concatSequences(cur, inc))
			continue
		}
		out.Set(kind, inc.Clone())
	}
	return out
}

func concatSequences(base, incoming *document.Node) *document.Node {
	out := document.NewSequence()
	out.Items = make([]*document.Node, 0, len(base.Items)+len(incoming.Items))
	for _, item := range base.Items {
		out.Items = append(out.Items, item.Clone())
	}
	for _, item := range incoming.Items {
		out.Items = append(out.Items, item.Clone())
	}
	return out
}
