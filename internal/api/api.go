// Package api defines the wire types and JSON helpers shared by the
// catalog server and its CLI client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/coordinator"
)

// SignInRequest starts the server session for a resolved identity.
// Resolving credentials into a role is the job of the auth collaborator
// in front of the API; the server takes the resolved identity as given.
type SignInRequest struct {
	CallerID string       `json:"caller_id"`
	Label    string       `json:"label"`
	Role     catalog.Role `json:"role"`
}

// CreateProductRequest is the body for POST /products.
type CreateProductRequest struct {
	Product coordinator.NewProduct `json:"product"`
}

// UpdateProductRequest is the body for PATCH /products/{id}.
type UpdateProductRequest struct {
	ShardID string        `json:"shard_id"`
	Patch   catalog.Patch `json:"patch"`
}

// ReassignOwnerRequest is the body for POST /products/{id}/owner.
type ReassignOwnerRequest struct {
	ShardID    string `json:"shard_id"`
	OwnerID    string `json:"owner_id"`
	OwnerLabel string `json:"owner_label"`
}

// ProductResponse wraps a single record.
type ProductResponse struct {
	Product catalog.Product `json:"product"`
}

// ViewResponse is the aggregated view as served to clients.
type ViewResponse struct {
	Products []catalog.Product `json:"products"`
	Filtered []catalog.Product `json:"filtered"`
	Term     string            `json:"term"`
}

// ErrorResponse carries the taxonomy kind alongside the message so
// clients can branch without parsing text.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorKind maps a coordinator error onto its wire kind.
func ErrorKind(err error) string {
	switch {
	case catalog.ErrUnauthorized.Has(err):
		return "unauthorized"
	case catalog.ErrDuplicateCode.Has(err):
		return "duplicate_code"
	case catalog.ErrShardUnavailable.Has(err):
		return "shard_unavailable"
	case catalog.ErrPartialCommit.Has(err):
		return "partial_commit"
	case catalog.ErrInvalidProduct.Has(err):
		return "invalid_product"
	default:
		return "internal"
	}
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// PostJSON posts body as JSON and decodes the response into out when
// out is non-nil. Non-2xx responses are returned as errors carrying
// the server's error kind when one was sent.
func PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, out)
}

// GetJSON fetches url and decodes the JSON response into out.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return do(req, out)
}

// PatchJSON sends body as JSON with the PATCH method.
func PatchJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, out)
}

// DeleteJSON issues a DELETE and decodes any JSON response into out.
func DeleteJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	return do(req, out)
}

func do(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Kind != "" {
			return fmt.Errorf("http %s: %d %s: %s", req.URL, resp.StatusCode, apiErr.Kind, apiErr.Message)
		}
		return fmt.Errorf("http %s: %d", req.URL, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
