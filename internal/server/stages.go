package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stagehub/internal/engine"
	"stagehub/internal/repo"
)

func registerStages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-stages",
		Method:      http.MethodGet,
		Path:        "/stages",
		Summary:     "List stages",
	}, func(ctx context.Context, input *struct {
		Status       string `query:"status" enum:"pending,active,completed,cancelled,extended,"`
		SupervisorID int64  `query:"supervisor_id"`
		Limit        int    `query:"limit"`
	}) (*struct {
		Body []StageResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListStages(ctx, repo.StageFilters{
			Status:       input.Status,
			SupervisorID: input.SupervisorID,
			Limit:        input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []StageResponse `json:"body"`
		}{Body: mapStages(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage",
		Method:      http.MethodGet,
		Path:        "/stages/{stage_id}",
		Summary:     "Get stage",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StageID int64 `path:"stage_id"`
	}) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		s, err := e.Repo.GetStage(ctx, input.StageID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-stage-status",
		Method:      http.MethodPost,
		Path:        "/stages/{stage_id}/status",
		Summary:     "Move a stage along its lifecycle",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		StageID int64 `path:"stage_id"`
		Body    struct {
			Status string `json:"status" enum:"pending,active,completed,cancelled,extended"`
		} `json:"body"`
	}) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.SetStageStatus(ctx, actor, input.StageID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "extend-stage",
		Method:      http.MethodPost,
		Path:        "/stages/{stage_id}/extend",
		Summary:     "Extend a running stage",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		StageID int64 `path:"stage_id"`
		Body    struct {
			EndDate string `json:"end_date"`
		} `json:"body"`
	}) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.ExtendStage(ctx, actor, input.StageID, input.Body.EndDate)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "attach-convention",
		Method:        http.MethodPut,
		Path:          "/stages/{stage_id}/convention",
		Summary:       "File or replace the convention document for a stage",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		StageID int64 `path:"stage_id"`
		Body    struct {
			DocumentPath string `json:"document_path"`
		} `json:"body"`
	}) (*struct {
		Body ConventionResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AttachConvention(ctx, actor, input.StageID, input.Body.DocumentPath)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConventionResponse `json:"body"`
		}{Body: conventionResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage-convention",
		Method:      http.MethodGet,
		Path:        "/stages/{stage_id}/convention",
		Summary:     "Get the convention filed for a stage",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StageID int64 `path:"stage_id"`
	}) (*struct {
		Body ConventionResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		c, err := e.Repo.GetConventionByStage(ctx, input.StageID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConventionResponse `json:"body"`
		}{Body: conventionResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-conventions",
		Method:      http.MethodGet,
		Path:        "/conventions",
		Summary:     "List conventions",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"pending,accepted,rejected,"`
	}) (*struct {
		Body []ConventionResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListConventions(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]ConventionResponse, 0, len(items))
		for _, c := range items {
			out = append(out, conventionResponse(c))
		}
		return &struct {
			Body []ConventionResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decide-convention",
		Method:      http.MethodPost,
		Path:        "/conventions/{convention_id}/decision",
		Summary:     "Accept or reject a convention",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ConventionID int64 `path:"convention_id"`
		Body         struct {
			Accept  bool    `json:"accept"`
			Comment *string `json:"comment,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body ConventionResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.DecideConvention(ctx, actor, input.ConventionID, input.Body.Accept, input.Body.Comment)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConventionResponse `json:"body"`
		}{Body: conventionResponse(c)}, nil
	})
}
