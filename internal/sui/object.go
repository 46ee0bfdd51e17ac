package sui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mtlprog/swapkit/internal/domain"
)

// ErrObjectNotFound means the node has no live object with the requested id.
var ErrObjectNotFound = errors.New("object not found")

// Object is a ledger object with its Move fields.
type Object struct {
	Ref                  domain.ObjectRef
	Type                 string
	Owner                string
	Shared               bool
	InitialSharedVersion uint64
	Fields               map[string]json.RawMessage
}

var objectOptions = map[string]bool{
	"showType":    true,
	"showOwner":   true,
	"showContent": true,
}

// GetObject fetches an object's current version and fields.
func (c *Client) GetObject(ctx context.Context, id string) (Object, error) {
	var resp objectResponse
	if err := c.call(ctx, "sui_getObject", []any{id, objectOptions}, &resp); err != nil {
		return Object{}, fmt.Errorf("fetching object %s: %w", id, err)
	}
	return decodeObject(id, resp)
}

// MultiGetObjects fetches several objects in one request, in the order of ids.
func (c *Client) MultiGetObjects(ctx context.Context, ids []string) ([]Object, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resp []objectResponse
	if err := c.call(ctx, "sui_multiGetObjects", []any{ids, objectOptions}, &resp); err != nil {
		return nil, fmt.Errorf("fetching %d objects: %w", len(ids), err)
	}
	if len(resp) != len(ids) {
		return nil, fmt.Errorf("fetching %d objects: node returned %d", len(ids), len(resp))
	}
	objects := make([]Object, len(ids))
	for i, r := range resp {
		obj, err := decodeObject(ids[i], r)
		if err != nil {
			return nil, err
		}
		objects[i] = obj
	}
	return objects, nil
}

func decodeObject(id string, resp objectResponse) (Object, error) {
	if resp.Data == nil {
		return Object{}, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	version, err := strconv.ParseUint(resp.Data.Version, 10, 64)
	if err != nil {
		return Object{}, fmt.Errorf("parsing version of %s: %w", id, err)
	}
	owner, err := parseOwner(resp.Data.Owner)
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", id, err)
	}

	obj := Object{
		Ref:                  domain.ObjectRef{ID: resp.Data.ObjectID, Version: version, Digest: resp.Data.Digest},
		Type:                 resp.Data.Type,
		Owner:                owner.Address,
		Shared:               owner.Shared,
		InitialSharedVersion: owner.InitialSharedVersion,
	}
	if resp.Data.Content != nil {
		obj.Fields = resp.Data.Content.Fields
	}
	return obj, nil
}

// StringField returns a field holding a JSON string or number as text.
func (o Object) StringField(name string) (string, bool) {
	raw, ok := o.Fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
