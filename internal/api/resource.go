package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"railctl/internal/errors"
)

// Resource is the REST surface of one collection:
//
//	GET    /R?filters      list
//	GET    /R/count?filters {count}
//	GET    /R/names        projection
//	POST   /R              create
//	PUT    /R/{id}         update
//	DELETE /R/{id}         delete (204)
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path such as "employees".
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) item(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

// List fetches the records matching query.
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	var items []T
	if err := r.client.Get(ctx, r.path, query, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

type countBody struct {
	Count *int `json:"count"`
}

// Count fetches the number of records matching query. Callers pass the
// same query they pass to List.
func (r *Resource[T]) Count(ctx context.Context, query url.Values) (int, error) {
	var body countBody
	if err := r.client.Get(ctx, r.path+"/count", query, &body); err != nil {
		return 0, err
	}
	if body.Count == nil {
		return 0, errors.Newf("count response for %s has no count", r.path)
	}
	return *body.Count, nil
}

// Names fetches the collection's name projection.
func (r *Resource[T]) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.client.Get(ctx, r.path+"/names", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	err := r.client.Get(ctx, r.item(id), nil, &out)
	return out, err
}

// Create posts payload and returns the stored record.
func (r *Resource[T]) Create(ctx context.Context, payload interface{}) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodPost, r.path, nil, payload, &out)
	return out, mutationError(err)
}

// Update replaces record id with payload.
func (r *Resource[T]) Update(ctx context.Context, id int64, payload interface{}) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodPut, r.item(id), nil, payload, &out)
	return out, mutationError(err)
}

// Delete removes record id.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return mutationError(r.client.Do(ctx, http.MethodDelete, r.item(id), nil, nil, nil))
}

// mutationError reports a backend rejection of a mutation's input as a
// ValidationError wrapping the APIError.
func mutationError(err error) error {
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Status() {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.NewValidationError("", apiErr.Error(), apiErr)
	}
	return err
}
