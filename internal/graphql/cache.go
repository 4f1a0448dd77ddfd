package graphql

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/gqlparser/v2/ast"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
)

const rootQueryID = "ROOT_QUERY"

// store is the normalized entity cache. Objects with an identity are kept
// once under their id; everything else is stored under a generated id
// derived from its path. Links between records are reference objects.
type store struct {
	mu   sync.RWMutex
	data core.CacheMap
	idOf IDFunc
}

func newStore(idOf IDFunc) *store {
	return &store{
		data: core.CacheMap{},
		idOf: idOf,
	}
}

func reference(id string, generated bool) map[string]any {
	return map[string]any{"type": "id", "id": id, "generated": generated}
}

func asReference(v map[string]any) (string, bool) {
	if v["type"] != "id" {
		return "", false
	}
	id, ok := v["id"].(string)
	return id, ok
}

func (s *store) write(op *Operation, vars map[string]any, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSelection(op.rootID(), op.def.SelectionSet, op.doc, vars, data)
}

func (s *store) writeSelection(id string, set ast.SelectionSet, doc *ast.QueryDocument, vars, obj map[string]any) error {
	record, ok := s.data[id]
	if !ok {
		record = make(map[string]any)
		s.data[id] = record
	}

	for _, f := range collectFields(set, doc) {
		value, ok := obj[responseKey(f)]
		if !ok {
			continue
		}
		key, err := storageKey(f, vars)
		if err != nil {
			return err
		}
		normalized, err := s.normalize(id+"."+key, f.SelectionSet, doc, vars, value)
		if err != nil {
			return err
		}
		record[key] = normalized
	}
	return nil
}

func (s *store) normalize(path string, set ast.SelectionSet, doc *ast.QueryDocument, vars map[string]any, value any) (any, error) {
	if len(set) == 0 {
		return value, nil
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			n, err := s.normalize(fmt.Sprintf("%s.%d", path, i), set, doc, vars, item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		id := s.idOf(v)
		generated := false
		if id == "" {
			id = "$" + strings.TrimPrefix(path, "$")
			generated = true
		}
		if err := s.writeSelection(id, set, doc, vars, v); err != nil {
			return nil, err
		}
		return reference(id, generated), nil
	default:
		return nil, fmt.Errorf("field %s: expected object, got %T", path, value)
	}
}

// read rebuilds the operation's response from the cache. It reports false
// when any selected field is missing.
func (s *store) read(op *Operation, vars map[string]any) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readSelection(op.rootID(), op.def.SelectionSet, op.doc, vars)
}

func (s *store) readSelection(id string, set ast.SelectionSet, doc *ast.QueryDocument, vars map[string]any) (map[string]any, bool) {
	record, ok := s.data[id]
	if !ok {
		return nil, false
	}

	out := make(map[string]any)
	for _, f := range collectFields(set, doc) {
		key, err := storageKey(f, vars)
		if err != nil {
			return nil, false
		}
		raw, ok := record[key]
		if !ok {
			return nil, false
		}
		value, ok := s.denormalize(raw, f.SelectionSet, doc, vars)
		if !ok {
			return nil, false
		}
		out[responseKey(f)] = value
	}
	return out, true
}

func (s *store) denormalize(raw any, set ast.SelectionSet, doc *ast.QueryDocument, vars map[string]any) (any, bool) {
	if len(set) == 0 {
		return raw, true
	}

	switch v := raw.(type) {
	case nil:
		return nil, true
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			value, ok := s.denormalize(item, set, doc, vars)
			if !ok {
				return nil, false
			}
			out[i] = value
		}
		return out, true
	case map[string]any:
		id, ok := asReference(v)
		if !ok {
			return nil, false
		}
		obj, ok := s.readSelection(id, set, doc, vars)
		if !ok {
			return nil, false
		}
		return obj, true
	}
	return nil, false
}

// extract copies the cache. Records are copied; field values are never
// mutated in place once written, so they are shared.
func (s *store) extract() core.CacheMap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(core.CacheMap, len(s.data))
	for id, record := range s.data {
		cp := make(map[string]any, len(record))
		for k, v := range record {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

// restore merges a snapshot field by field.
func (s *store) restore(data core.CacheMap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, record := range data {
		dst, ok := s.data[id]
		if !ok {
			dst = make(map[string]any, len(record))
			s.data[id] = dst
		}
		for k, v := range record {
			dst[k] = v
		}
	}
}

// entities lists identified and generated record ids, without roots.
func (s *store) entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		if strings.HasPrefix(id, "ROOT_") {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
