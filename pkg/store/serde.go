package store

import "encoding/json"

// Serde encodes keys and values for tables backed by external storage.
type Serde[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

type JSONSerde[T any] struct{}

var _ = Serde[int](JSONSerde[int]{})

func (s JSONSerde[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (s JSONSerde[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
