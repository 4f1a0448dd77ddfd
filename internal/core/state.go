package core

import (
	"encoding/json"
	"fmt"
)

const (
	PropInitialState = "initialState"
	PropURL          = "url"
)

// Props are the values handed to a page and embedded in the rendered HTML.
type Props = map[string]any

// CacheMap is a normalized cache: entity id to field values.
type CacheMap map[string]map[string]any

type ApolloState struct {
	Data CacheMap `json:"data"`
}

// InitialState is the snapshot embedded in a server response and used to
// seed the browser-side client. Store keys are written next to "apollo".
type InitialState struct {
	Apollo ApolloState
	Store  map[string]any
}

func (s InitialState) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Store)+1)
	for k, v := range s.Store {
		out[k] = v
	}
	data := s.Apollo.Data
	if data == nil {
		data = CacheMap{}
	}
	out["apollo"] = ApolloState{Data: data}
	return json.Marshal(out)
}

func (s *InitialState) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	s.Apollo = ApolloState{}
	s.Store = nil
	for k, v := range raw {
		if k == "apollo" {
			if err := json.Unmarshal(v, &s.Apollo); err != nil {
				return fmt.Errorf("apollo: %w", err)
			}
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		if s.Store == nil {
			s.Store = make(map[string]any)
		}
		s.Store[k] = value
	}
	if s.Apollo.Data == nil {
		s.Apollo.Data = CacheMap{}
	}
	return nil
}

// InitialStateFromProps returns the snapshot carried by props. Props built
// in-process carry it typed; props decoded from a page carry plain JSON.
func InitialStateFromProps(props Props) (*InitialState, error) {
	raw, ok := props[PropInitialState]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case *InitialState:
		return v, nil
	case InitialState:
		return &v, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, &SerializationError{Op: "encode initial state", Err: err}
	}
	var state InitialState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &SerializationError{Op: "decode initial state", Err: err}
	}
	return &state, nil
}
