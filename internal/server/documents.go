package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stagehub/internal/engine"
)

func registerDocuments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "upload-document",
		Method:        http.MethodPost,
		Path:          "/documents",
		Summary:       "Upload a lifecycle document",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusRequestEntityTooLarge,
			http.StatusUnsupportedMediaType,
		},
	}, func(ctx context.Context, input *struct {
		RawBody []byte
	}) (*struct {
		Body struct {
			Path string `json:"path"`
		} `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		if e.Blobs == nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "document store not configured", nil)
		}
		name, err := e.Blobs.Put(input.RawBody)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Path string `json:"path"`
			} `json:"body"`
		}{}
		out.Body.Path = name
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "download-document",
		Method:      http.MethodGet,
		Path:        "/documents/{name}",
		Summary:     "Download a lifecycle document",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Name string `path:"name"`
	}) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		if e.Blobs == nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "document store not configured", nil)
		}
		data, mime, err := e.Blobs.Get(input.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: mime, Body: data}, nil
	})
}
