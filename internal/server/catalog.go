package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stagehub/internal/domain"
	"stagehub/internal/engine"
	"stagehub/internal/repo"
)

func registerPeople(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-person",
		Method:        http.MethodPost,
		Path:          "/people",
		Summary:       "Add a person to the directory",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name string `json:"name"`
			Role string `json:"role" enum:"admin,direction_member,department_head,supervisor,intern"`
		} `json:"body"`
	}) (*struct {
		Body PersonResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreatePerson(ctx, actor, input.Body.Name, input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PersonResponse `json:"body"`
		}{Body: personResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-people",
		Method:      http.MethodGet,
		Path:        "/people",
		Summary:     "List the people directory",
	}, func(ctx context.Context, input *struct {
		Role      string `query:"role" enum:"admin,direction_member,department_head,supervisor,intern,"`
		Available string `query:"available" enum:"true,false,"`
	}) (*struct {
		Body []PersonResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		// the listing feeds assignment pickers: inactive people never
		// appear, and supervisor lists are narrowed to available ones
		// unless the caller asks otherwise
		on := true
		var available *bool
		if input.Available != "" {
			v := input.Available == "true"
			available = &v
		}
		filters := repo.PersonFilters{Role: input.Role, Active: &on, Available: available}
		if input.Role == domain.RoleSupervisor && filters.Available == nil {
			filters.Available = &on
		}
		items, err := e.Repo.ListPeople(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []PersonResponse `json:"body"`
		}{Body: mapPeople(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-person",
		Method:      http.MethodGet,
		Path:        "/people/{person_id}",
		Summary:     "Get a person",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PersonID int64 `path:"person_id"`
	}) (*struct {
		Body PersonResponse `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		p, err := e.Repo.GetPerson(ctx, input.PersonID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PersonResponse `json:"body"`
		}{Body: personResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-person",
		Method:      http.MethodPatch,
		Path:        "/people/{person_id}",
		Summary:     "Toggle a person's active and available flags",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		PersonID int64 `path:"person_id"`
		Body     struct {
			Active    *bool `json:"active,omitempty"`
			Available *bool `json:"available,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body PersonResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetPersonFlags(ctx, actor, input.PersonID, input.Body.Active, input.Body.Available)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PersonResponse `json:"body"`
		}{Body: personResponse(p)}, nil
	})
}

func registerCatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-department",
		Method:        http.MethodPost,
		Path:          "/departments",
		Summary:       "Add a department",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name string `json:"name"`
		} `json:"body"`
	}) (*struct {
		Body domain.Department `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDepartment(ctx, actor, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Department `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-departments",
		Method:      http.MethodGet,
		Path:        "/departments",
		Summary:     "List departments",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Department `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListDepartments(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Department `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-domain",
		Method:        http.MethodPost,
		Path:          "/domains",
		Summary:       "Add a domain under a department",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name         string `json:"name"`
			DepartmentID int64  `json:"department_id"`
		} `json:"body"`
	}) (*struct {
		Body domain.Domain `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDomain(ctx, actor, input.Body.Name, input.Body.DepartmentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Domain `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-domains",
		Method:      http.MethodGet,
		Path:        "/domains",
		Summary:     "List domains",
	}, func(ctx context.Context, input *struct {
		DepartmentID int64 `query:"department_id"`
	}) (*struct {
		Body []domain.Domain `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx, e.Repo); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListDomains(ctx, input.DepartmentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Domain `json:"body"`
		}{Body: items}, nil
	})
}
