package api

import (
	"context"
	"net/url"
)

// Page is one slice of a collection.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Resource is a typed CRUD helper over one collection path such as AppointmentsPath.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](client *Client, path string) *Resource[T] {
	return &Resource[T]{client: client, path: path}
}

func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) List(ctx context.Context, query url.Values) (*Page[T], error) {
	path := r.path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var page Page[T]
	if err := r.client.Get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if err := r.client.Get(ctx, ItemPath(r.path, id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	var item T
	if err := r.client.Post(ctx, r.path, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, body any) (*T, error) {
	var item T
	if err := r.client.Put(ctx, ItemPath(r.path, id), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Resource[T]) Patch(ctx context.Context, id string, body any) (*T, error) {
	var item T
	if err := r.client.Patch(ctx, ItemPath(r.path, id), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, ItemPath(r.path, id), nil)
}

// Action posts to a sub-resource verb such as /appointments/{id}/cancel.
func (r *Resource[T]) Action(ctx context.Context, id, action string, body any) (*T, error) {
	var item T
	if err := r.client.Post(ctx, ItemPath(r.path, id, action), body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
