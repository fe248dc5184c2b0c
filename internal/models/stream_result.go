package models

// StreamResult carries one item of a result stream: either Value or Err.
type StreamResult[T any] struct {
	Value T
	Err   error
}
