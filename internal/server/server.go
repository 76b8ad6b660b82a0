package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pulsepact/internal/currency"
	"pulsepact/internal/domain"
	"pulsepact/internal/engine"
	"pulsepact/internal/notify"
	"pulsepact/internal/pact"
	"pulsepact/internal/repo"
	"pulsepact/internal/stats"
	"pulsepact/internal/wallet"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"insufficient_funds"`
	Message string         `json:"message" example:"insufficient funds"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"required\":\"500\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the PulsePact API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// request schema failures are client errors
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	hcfg := huma.DefaultConfig("PulsePact API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerState(group, cfg.Engine)
	registerPacts(group, cfg.Engine)
	registerWallet(group, cfg.Engine)
	registerNotifications(group, cfg.Engine)
	registerStreak(group, cfg.Engine)
	registerStats(group, cfg.Engine)
	registerCurrency(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerReminders(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var ve *pact.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", msg, map[string]any{"fields": ve.Fields})
	}
	switch {
	case errors.Is(err, pact.ErrNotFound), errors.Is(err, notify.ErrNotFound), errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, engine.ErrInsufficientFunds):
		return newAPIError(http.StatusConflict, "insufficient_funds", msg, nil)
	case errors.Is(err, pact.ErrOverstake):
		return newAPIError(http.StatusUnprocessableEntity, "overstake", msg, nil)
	case errors.Is(err, pact.ErrTargetNotReached):
		return newAPIError(http.StatusUnprocessableEntity, "target_not_reached", msg, nil)
	case errors.Is(err, pact.ErrInvalidAmount),
		errors.Is(err, pact.ErrIncompleteDraft),
		errors.Is(err, stats.ErrInvalidQuery),
		errors.Is(err, currency.ErrInvalidRate),
		errors.Is(err, currency.ErrInvalidUnit),
		errors.Is(err, wallet.ErrNegativeAmount):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>PulsePact API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerState(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/state",
		Summary:     "Full application state",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StateResponse `json:"body"`
	}, error) {
		s, err := e.State(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StateResponse `json:"body"`
		}{Body: stateResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "visit",
		Method:      http.MethodPost,
		Path:        "/visit",
		Summary:     "Record a visit: check the streak and seed empty collections",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StateResponse `json:"body"`
	}, error) {
		s, err := e.Visit(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StateResponse `json:"body"`
		}{Body: stateResponse(s)}, nil
	})
}

func registerPacts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-pacts",
		Method:      http.MethodGet,
		Path:        "/pacts",
		Summary:     "List pacts",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Search string `query:"search"`
		Type   string `query:"type" enum:"all,solo,duo,cause,borrow"`
		Status string `query:"status" enum:"all,active,completed,failed"`
		Sort   string `query:"sort" enum:"newest,oldest,amount-high,amount-low,progress-high,progress-low"`
	}) (*struct {
		Body []PactResponse `json:"body"`
	}, error) {
		items, err := e.ListPacts(ctx, stats.Query{
			Search:  input.Search,
			Variant: domain.Variant(input.Type),
			Status:  input.Status,
			Sort:    stats.SortOrder(input.Sort),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []PactResponse `json:"body"`
		}{Body: mapPacts(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-pact",
		Method:        http.MethodPost,
		Path:          "/pacts",
		Summary:       "Create pact",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreatePactRequest `json:"body"`
	}) (*struct {
		Body PactResponse `json:"body"`
	}, error) {
		p, err := e.CreatePact(ctx, input.Body.draft())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PactResponse `json:"body"`
		}{Body: pactResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-pacts",
		Method:      http.MethodPost,
		Path:        "/pacts/reset",
		Summary:     "Replace all pacts with the demo set",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []PactResponse `json:"body"`
	}, error) {
		items, err := e.ResetPacts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []PactResponse `json:"body"`
		}{Body: mapPacts(items)}, nil
	})

	type pactPath struct {
		ID string `path:"id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-pact",
		Method:      http.MethodGet,
		Path:        "/pacts/{id}",
		Summary:     "Get pact with countdown",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *pactPath) (*struct {
		Body PactDetailResponse `json:"body"`
	}, error) {
		d, err := e.GetPact(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PactDetailResponse `json:"body"`
		}{Body: PactDetailResponse{Pact: pactResponse(d.Pact), TimeLeft: d.TimeLeft}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stake-pact",
		Method:      http.MethodPost,
		Path:        "/pacts/{id}/stake",
		Summary:     "Stake funds on a pact",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body AmountRequest `json:"body"`
	}) (*struct {
		Body StakeResponse `json:"body"`
	}, error) {
		res, err := e.Stake(ctx, input.ID, decimal.NewFromFloat(input.Body.Amount))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StakeResponse `json:"body"`
		}{Body: StakeResponse{
			Pact:    pactResponse(res.Pact),
			Applied: res.Applied.String(),
			Balance: res.Balance.String(),
			Streak:  res.Streak,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-pact",
		Method:      http.MethodPost,
		Path:        "/pacts/{id}/complete",
		Summary:     "Mark pact completed and pay the reward",
		Errors: []int{
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *pactPath) (*struct {
		Body CompleteResponse `json:"body"`
	}, error) {
		res, err := e.Complete(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CompleteResponse `json:"body"`
		}{Body: CompleteResponse{
			Pact:    pactResponse(res.Pact),
			Reward:  res.Reward.String(),
			Balance: res.Balance.String(),
			Streak:  res.Streak,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "fail-pact",
		Method:      http.MethodPost,
		Path:        "/pacts/{id}/fail",
		Summary:     "Mark pact failed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *pactPath) (*struct {
		Body PactResponse `json:"body"`
	}, error) {
		p, err := e.Fail(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PactResponse `json:"body"`
		}{Body: pactResponse(p)}, nil
	})
}

func registerWallet(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-wallet",
		Method:      http.MethodGet,
		Path:        "/wallet",
		Summary:     "Wallet balance",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WalletResponse `json:"body"`
	}, error) {
		w, err := e.Wallet(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WalletResponse `json:"body"`
		}{Body: WalletResponse{Balance: w.Balance.String()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-funds",
		Method:      http.MethodPost,
		Path:        "/wallet/funds",
		Summary:     "Add demo funds; the configured amount when none is given",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body *OptionalAmountRequest `json:"body" required:"false"`
	}) (*struct {
		Body WalletResponse `json:"body"`
	}, error) {
		amount := decimal.Zero
		if input.Body != nil {
			amount = decimal.NewFromFloat(input.Body.Amount)
		}
		w, err := e.AddFunds(ctx, amount)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WalletResponse `json:"body"`
		}{Body: WalletResponse{Balance: w.Balance.String()}}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List notifications, newest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body NotificationsResponse `json:"body"`
	}, error) {
		items, unread, err := e.Notifications(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NotificationsResponse `json:"body"`
		}{Body: NotificationsResponse{Items: notificationsOrEmpty(items), Unread: unread}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "read-notification",
		Method:        http.MethodPost,
		Path:          "/notifications/{id}/read",
		Summary:       "Mark one notification read",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.MarkNotificationRead(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "read-all-notifications",
		Method:        http.MethodPost,
		Path:          "/notifications/read-all",
		Summary:       "Mark every notification read",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		if err := e.MarkAllNotificationsRead(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "clear-notifications",
		Method:        http.MethodDelete,
		Path:          "/notifications",
		Summary:       "Remove every notification",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		if err := e.ClearNotifications(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerStreak(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-streak",
		Method:      http.MethodGet,
		Path:        "/streak",
		Summary:     "Current streak",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Streak `json:"body"`
	}, error) {
		s, err := e.Streak(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Streak `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-streak",
		Method:      http.MethodPost,
		Path:        "/streak/check",
		Summary:     "Run the daily streak check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Streak `json:"body"`
	}, error) {
		s, err := e.CheckStreak(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Streak `json:"body"`
		}{Body: s}, nil
	})
}

func registerStats(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Portfolio statistics and achievements",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatsResponse `json:"body"`
	}, error) {
		r, err := e.Stats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatsResponse `json:"body"`
		}{Body: statsResponse(r)}, nil
	})
}

func registerCurrency(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-currency",
		Method:      http.MethodGet,
		Path:        "/currency",
		Summary:     "Display currency preference",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CurrencyResponse `json:"body"`
	}, error) {
		c, err := e.Currency(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CurrencyResponse `json:"body"`
		}{Body: currencyResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-currency",
		Method:      http.MethodPost,
		Path:        "/currency/toggle",
		Summary:     "Switch between ADA and NGN",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CurrencyResponse `json:"body"`
	}, error) {
		c, err := e.ToggleCurrency(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CurrencyResponse `json:"body"`
		}{Body: currencyResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-exchange-rate",
		Method:      http.MethodPut,
		Path:        "/currency/rate",
		Summary:     "Set the NGN per ADA rate",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ExchangeRateRequest `json:"body"`
	}) (*struct {
		Body CurrencyResponse `json:"body"`
	}, error) {
		c, err := e.SetExchangeRate(ctx, decimal.NewFromFloat(input.Body.Rate))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CurrencyResponse `json:"body"`
		}{Body: currencyResponse(c)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"pact,wallet,notification,streak,currency"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.ListEvents(ctx, limit+1, cursorID, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerReminders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "run-reminders",
		Method:      http.MethodPost,
		Path:        "/reminders/run",
		Summary:     "Add deadline reminders for pacts due soon",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body RemindersResponse `json:"body"`
	}, error) {
		items, err := e.RemindDeadlines(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []engine.Reminder{}
		}
		return &struct {
			Body RemindersResponse `json:"body"`
		}{Body: RemindersResponse{Items: items}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
