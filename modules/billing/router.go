// Package billing mounts the checkout and payment webhook endpoints.
package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mealsub/handler"
	"github.com/dmitrymomot/mealsub/pkg/binder"
	"github.com/dmitrymomot/mealsub/svc/auth"
	"github.com/dmitrymomot/mealsub/svc/billing"
)

// maxWebhookBody bounds webhook payloads read into memory.
const maxWebhookBody = 1 << 20

type Module struct {
	checkout        *billing.CheckoutService
	reconciler      *billing.Reconciler
	webhookPath     string
	signatureHeader string
	errorHandler    handler.ErrorHandler
	log             *slog.Logger
}

// New builds the module. The webhook route is named after provider, for
// example /stripe-webhook-handler.
func New(checkout *billing.CheckoutService, reconciler *billing.Reconciler, provider billing.Provider, log *slog.Logger) *Module {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Module{
		checkout:        checkout,
		reconciler:      reconciler,
		webhookPath:     "/" + provider.Name() + "-webhook-handler",
		signatureHeader: provider.SignatureHeader(),
		errorHandler:    handler.DefaultErrorHandler(log, MapError),
		log:             log,
	}
}

// Routes registers the module's endpoints on r.
func (m *Module) Routes(r chi.Router) {
	r.Post("/create-checkout-session", handler.Wrap[checkoutRequest](m.createCheckoutSession,
		handler.WithBinder[checkoutRequest](binder.JSON()),
		handler.WithErrorHandler[checkoutRequest](m.errorHandler),
	))
	r.HandleFunc(m.webhookPath, m.webhook)
}

type checkoutRequest struct {
	MealPlanID string `json:"meal_plan_id" validate:"required"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

func (m *Module) createCheckoutSession(ctx handler.Context, req checkoutRequest) handler.Response {
	token, err := auth.BearerToken(ctx.Request())
	if err != nil {
		return handler.Error(err)
	}

	session, err := m.checkout.CreateSession(ctx, token, req.MealPlanID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(http.StatusOK, checkoutResponse{SessionID: session.ID, URL: session.URL})
}

// webhook reads the raw body unmodified; signature verification depends on
// the exact bytes.
func (m *Module) webhook(w http.ResponseWriter, r *http.Request) {
	ctx := handler.NewContext(w, r)

	if r.Method != http.MethodPost {
		m.errorHandler(ctx, handler.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed", nil))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			m.errorHandler(ctx, handler.NewHTTPError(http.StatusRequestEntityTooLarge, "Payload too large", err))
			return
		}
		m.errorHandler(ctx, handler.NewHTTPError(http.StatusBadRequest, "Failed to read request body", err))
		return
	}

	signature := r.Header.Get(m.signatureHeader)
	if signature == "" {
		m.errorHandler(ctx, handler.NewHTTPError(http.StatusBadRequest, m.signatureHeader+" header missing", nil))
		return
	}

	if err := m.reconciler.HandleWebhook(ctx, payload, signature); err != nil {
		m.errorHandler(ctx, err)
		return
	}
	_ = handler.JSON(http.StatusOK, map[string]bool{"received": true}).Render(w, r)
}
