package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stagehub/internal/engine"
	"stagehub/internal/repo"
)

func registerDeposits(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-deposit",
		Method:        http.MethodPost,
		Path:          "/deposits",
		Summary:       "Submit a dissertation deposit for a completed stage",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body struct {
			StageID    int64    `json:"stage_id"`
			ThemeLines []string `json:"theme_lines,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body DepositResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDeposit(ctx, actor, engine.DepositCreateOptions{
			StageID:    input.Body.StageID,
			ThemeLines: input.Body.ThemeLines,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DepositResponse `json:"body"`
		}{Body: depositResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deposits",
		Method:      http.MethodGet,
		Path:        "/deposits",
		Summary:     "List dissertation deposits",
	}, func(ctx context.Context, input *struct {
		Status  string `query:"status" enum:"pending,approved,rejected,archived,"`
		StageID int64  `query:"stage_id"`
		Limit   int    `query:"limit"`
	}) (*struct {
		Body []DepositResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListDeposits(ctx, repo.DepositFilters{
			Status:  input.Status,
			StageID: input.StageID,
			Limit:   input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []DepositResponse `json:"body"`
		}{Body: mapDeposits(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deposit",
		Method:      http.MethodGet,
		Path:        "/deposits/{deposit_id}",
		Summary:     "Get dissertation deposit",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DepositID int64 `path:"deposit_id"`
	}) (*struct {
		Body DepositResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		d, err := e.Repo.GetDeposit(ctx, input.DepositID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DepositResponse `json:"body"`
		}{Body: depositResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decide-deposit",
		Method:      http.MethodPost,
		Path:        "/deposits/{deposit_id}/decision",
		Summary:     "Approve or reject a deposit",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		DepositID int64 `path:"deposit_id"`
		Body      struct {
			Approve bool `json:"approve"`
		} `json:"body"`
	}) (*struct {
		Body DepositResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.DecideDeposit(ctx, actor, input.DepositID, input.Body.Approve)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DepositResponse `json:"body"`
		}{Body: depositResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-deposit",
		Method:      http.MethodPost,
		Path:        "/deposits/{deposit_id}/archive",
		Summary:     "Archive a decided deposit",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		DepositID int64 `path:"deposit_id"`
	}) (*struct {
		Body DepositResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.ArchiveDeposit(ctx, actor, input.DepositID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DepositResponse `json:"body"`
		}{Body: depositResponse(d)}, nil
	})
}
