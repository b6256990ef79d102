package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stagehub/internal/engine"
	"stagehub/internal/repo"
)

func registerAgreements(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agreements",
		Method:      http.MethodGet,
		Path:        "/agreements",
		Summary:     "List agreement requests",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"in_progress,pending,accepted,rejected,"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []AgreementResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListAgreements(ctx, repo.AgreementFilters{Status: input.Status, Limit: input.Limit})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AgreementResponse `json:"body"`
		}{Body: mapAgreements(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-agreement",
		Method:      http.MethodGet,
		Path:        "/agreements/{agreement_id}",
		Summary:     "Get agreement request",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AgreementID int64 `path:"agreement_id"`
	}) (*struct {
		Body AgreementResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		a, err := e.Repo.GetAgreement(ctx, input.AgreementID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgreementResponse `json:"body"`
		}{Body: agreementResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-agreement-direction",
		Method:      http.MethodPatch,
		Path:        "/agreements/{agreement_id}/direction",
		Summary:     "Fill the direction member's section",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		AgreementID int64 `path:"agreement_id"`
		Body        struct {
			ThemeName          *string `json:"theme_name,omitempty"`
			DepartmentID       *int64  `json:"department_id,omitempty"`
			DomainID           *int64  `json:"domain_id,omitempty"`
			NatureOfInternship *string `json:"nature_of_internship,omitempty"`
			Institution        *string `json:"institution,omitempty"`
			Specialty          *string `json:"specialty,omitempty"`
			DegreeSought       *string `json:"degree_sought,omitempty"`
			DepartmentHeadID   *int64  `json:"department_head_id,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body AgreementResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAgreementDirection(ctx, actor, input.AgreementID, engine.DirectionSectionOptions{
			ThemeName:          input.Body.ThemeName,
			DepartmentID:       input.Body.DepartmentID,
			DomainID:           input.Body.DomainID,
			NatureOfInternship: input.Body.NatureOfInternship,
			Institution:        input.Body.Institution,
			Specialty:          input.Body.Specialty,
			DegreeSought:       input.Body.DegreeSought,
			DepartmentHeadID:   input.Body.DepartmentHeadID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgreementResponse `json:"body"`
		}{Body: agreementResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-agreement-head",
		Method:      http.MethodPatch,
		Path:        "/agreements/{agreement_id}/head",
		Summary:     "Fill the department head's section",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		AgreementID int64 `path:"agreement_id"`
		Body        struct {
			HostService          *string `json:"host_service,omitempty"`
			StartDate            *string `json:"start_date,omitempty"`
			EndDate              *string `json:"end_date,omitempty"`
			SessionsPerWeek      *int    `json:"sessions_per_week,omitempty"`
			SessionDurationHours *int    `json:"session_duration_hours,omitempty"`
			SupervisorID         *int64  `json:"supervisor_id,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body AgreementResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAgreementHead(ctx, actor, input.AgreementID, engine.HeadSectionOptions{
			HostService:          input.Body.HostService,
			StartDate:            input.Body.StartDate,
			EndDate:              input.Body.EndDate,
			SessionsPerWeek:      input.Body.SessionsPerWeek,
			SessionDurationHours: input.Body.SessionDurationHours,
			SupervisorID:         input.Body.SupervisorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgreementResponse `json:"body"`
		}{Body: agreementResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "decide-agreement",
		Method:      http.MethodPost,
		Path:        "/agreements/{agreement_id}/decision",
		Summary:     "Accept or reject an agreement request",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		AgreementID int64 `path:"agreement_id"`
		Body        struct {
			Accept bool `json:"accept"`
		} `json:"body"`
	}) (*struct {
		Body AgreementResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.DecideAgreement(ctx, actor, input.AgreementID, input.Body.Accept)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AgreementResponse `json:"body"`
		}{Body: agreementResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-agreement",
		Method:      http.MethodDelete,
		Path:        "/agreements/{agreement_id}",
		Summary:     "Hard-delete an agreement request",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		AgreementID int64 `path:"agreement_id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAgreement(ctx, actor, input.AgreementID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
