package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"stagehub/internal/domain"
	"stagehub/internal/engine"
	"stagehub/internal/repo"
)

type APIKeyResponse struct {
	ID        string `json:"id"`
	PersonID  int64  `json:"person_id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at"`
}

func registerKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/keys",
		Summary:       "Issue an API key for a person",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		Body struct {
			PersonID int64  `json:"person_id"`
			Name     string `json:"name,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body struct {
			APIKeyResponse
			Key string `json:"key"`
		} `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		if actor.Role != domain.RoleAdmin {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "role admin required", nil)
		}
		if _, err := e.Repo.GetPerson(ctx, input.Body.PersonID); err != nil {
			return nil, handleError(err)
		}
		// The plaintext key is returned exactly once; only its hash is
		// stored.
		plaintext := "shk_" + uuid.NewString()
		key := domain.APIKey{
			ID:        uuid.NewString(),
			PersonID:  input.Body.PersonID,
			Name:      input.Body.Name,
			KeyHash:   repo.HashAPIKey(plaintext),
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				APIKeyResponse
				Key string `json:"key"`
			} `json:"body"`
		}{}
		out.Body.APIKeyResponse = APIKeyResponse{ID: key.ID, PersonID: key.PersonID, Name: key.Name, CreatedAt: key.CreatedAt}
		out.Body.Key = plaintext
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/keys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		PersonID int64 `query:"person_id"`
	}) (*struct {
		Body []APIKeyResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		if actor.Role != domain.RoleAdmin {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "role admin required", nil)
		}
		keys, err := e.Repo.ListAPIKeys(ctx, input.PersonID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]APIKeyResponse, 0, len(keys))
		for _, k := range keys {
			out = append(out, APIKeyResponse{ID: k.ID, PersonID: k.PersonID, Name: k.Name, CreatedAt: k.CreatedAt})
		}
		return &struct {
			Body []APIKeyResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/keys/{key_id}",
		Summary:     "Revoke an API key",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx, e.Repo)
		if authErr != nil {
			return nil, authErr
		}
		if actor.Role != domain.RoleAdmin {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "role admin required", nil)
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDevAuth(api huma.API, e engine.Engine, cfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "Issue a short-lived JWT for local development",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		Body struct {
			PersonID int64 `json:"person_id"`
		} `json:"body"`
	}) (*struct {
		Body struct {
			Token     string `json:"token"`
			ExpiresAt string `json:"expires_at"`
		} `json:"body"`
	}, error) {
		if !cfg.EnableDevLogin || cfg.JWTSecret == "" {
			return nil, newAPIError(http.StatusNotFound, "not_found", "dev login disabled", nil)
		}
		person, err := e.Repo.GetPerson(ctx, input.Body.PersonID)
		if err != nil {
			return nil, handleError(err)
		}
		ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = time.Hour
		}
		expires := time.Now().Add(ttl)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   strconv.FormatInt(person.ID, 10),
				ExpiresAt: jwt.NewNumericDate(expires),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
			Role: person.Role,
		})
		signed, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Token     string `json:"token"`
				ExpiresAt string `json:"expires_at"`
			} `json:"body"`
		}{}
		out.Body.Token = signed
		out.Body.ExpiresAt = expires.UTC().Format(time.RFC3339)
		return out, nil
	})
}
