package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/posthoot/sailhook"
	"github.com/posthoot/sailhook/catalog"
	"github.com/posthoot/sailhook/delivery"
	"github.com/posthoot/sailhook/event"
	"github.com/posthoot/sailhook/id"
	"github.com/posthoot/sailhook/scope"
	"github.com/posthoot/sailhook/webhook"
)

// ForgeAPI registers the webhook API on a Forge router with OpenAPI metadata.
// The team is read from the request context, as with Handler.
type ForgeAPI struct {
	hub *sailhook.Hub
	log forge.Logger
}

// NewForgeAPI creates a ForgeAPI over hub.
func NewForgeAPI(hub *sailhook.Hub, log forge.Logger) *ForgeAPI {
	return &ForgeAPI{hub: hub, log: log}
}

// RegisterRoutes registers all routes into the given Forge router.
func (a *ForgeAPI) RegisterRoutes(router forge.Router) {
	a.registerEventTypeRoutes(router)
	a.registerWebhookRoutes(router)
	a.registerDeliveryRoutes(router)
	a.registerEventRoutes(router)
}

func teamFrom(ctx forge.Context) (string, error) {
	teamID := scope.TeamID(ctx.Context())
	if teamID == "" {
		return "", forge.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return teamID, nil
}

func parseWebhookID(s string) (id.ID, error) {
	whID, err := webhookID(s)
	if err != nil {
		return id.Nil, mapError(err)
	}
	return whID, nil
}

// ---------------------------------------------------------------------------
// Event type routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEventTypeRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("event-types"))

	if err := g.GET("/event-types", a.listEventTypes,
		forge.WithSummary("List event types"),
		forge.WithDescription("Returns every event type a webhook can subscribe to, with its data schema and an example."),
		forge.WithOperationID("listEventTypes"),
		forge.WithListResponse(catalog.Definition{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listEventTypes route", forge.Error(err))
	}
}

func (a *ForgeAPI) listEventTypes(ctx forge.Context, _ *ListEventTypesForgeRequest) ([]*catalog.Definition, error) {
	if _, err := teamFrom(ctx); err != nil {
		return nil, err
	}
	return a.hub.Catalog().List(), nil
}

// ---------------------------------------------------------------------------
// Webhook routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerWebhookRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("webhooks"))

	if err := g.POST("/webhooks", a.createWebhook,
		forge.WithSummary("Create webhook"),
		forge.WithDescription("Registers a webhook for the caller's team. The signing secret is only returned here and on rotation."),
		forge.WithOperationID("createWebhook"),
		forge.WithRequestSchema(CreateWebhookForgeRequest{}),
		forge.WithCreatedResponse(WebhookSecretForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register createWebhook route", forge.Error(err))
	}

	if err := g.GET("/webhooks", a.listWebhooks,
		forge.WithSummary("List webhooks"),
		forge.WithDescription("Returns the team's webhooks, newest first."),
		forge.WithOperationID("listWebhooks"),
		forge.WithRequestSchema(ListWebhooksForgeRequest{}),
		forge.WithListResponse(webhook.Webhook{}, http.StatusOK),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listWebhooks route", forge.Error(err))
	}

	if err := g.GET("/webhooks/:webhookId", a.getWebhook,
		forge.WithSummary("Get webhook"),
		forge.WithDescription("Returns one of the team's webhooks."),
		forge.WithOperationID("getWebhook"),
		forge.WithResponseSchema(http.StatusOK, "Webhook details", webhook.Webhook{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getWebhook route", forge.Error(err))
	}

	if err := g.PATCH("/webhooks/:webhookId", a.updateWebhook,
		forge.WithSummary("Update webhook"),
		forge.WithDescription("Changes only the fields present in the body."),
		forge.WithOperationID("updateWebhook"),
		forge.WithRequestSchema(UpdateWebhookForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated webhook", webhook.Webhook{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register updateWebhook route", forge.Error(err))
	}

	if err := g.DELETE("/webhooks/:webhookId", a.deleteWebhook,
		forge.WithSummary("Delete webhook"),
		forge.WithDescription("Permanently deletes a webhook."),
		forge.WithOperationID("deleteWebhook"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register deleteWebhook route", forge.Error(err))
	}

	if err := g.POST("/webhooks/:webhookId/rotate-secret", a.rotateSecret,
		forge.WithSummary("Rotate secret"),
		forge.WithDescription("Generates a new signing secret for the webhook."),
		forge.WithOperationID("rotateWebhookSecret"),
		forge.WithResponseSchema(http.StatusOK, "New signing secret", SecretForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register rotateSecret route", forge.Error(err))
	}

	if err := g.POST("/webhooks/:webhookId/test", a.testWebhook,
		forge.WithSummary("Send test event"),
		forge.WithDescription("Delivers a sample event synchronously and returns the ledger row."),
		forge.WithOperationID("testWebhook"),
		forge.WithRequestSchema(TestWebhookForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Delivery attempt", delivery.Delivery{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register testWebhook route", forge.Error(err))
	}
}

func (a *ForgeAPI) createWebhook(ctx forge.Context, req *CreateWebhookForgeRequest) (*WebhookSecretForgeResponse, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}

	wh, err := a.hub.Webhooks().Create(ctx.Context(), teamID, webhook.Input{
		Name:   req.Name,
		URL:    req.URL,
		Events: req.Events,
	})
	if err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusCreated, webhookWithSecret{Webhook: wh, Secret: wh.Secret})
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

func (a *ForgeAPI) listWebhooks(ctx forge.Context, req *ListWebhooksForgeRequest) ([]*webhook.Webhook, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.Offset < 0 || req.Limit < 0 {
		return nil, forge.BadRequest("offset and limit must be non-negative")
	}

	hooks, err := a.hub.Webhooks().List(ctx.Context(), teamID, webhook.ListOpts{Offset: req.Offset, Limit: req.Limit})
	if err != nil {
		return nil, mapError(err)
	}
	if hooks == nil {
		hooks = []*webhook.Webhook{}
	}

	return hooks, nil
}

func (a *ForgeAPI) getWebhook(ctx forge.Context, req *WebhookForgeRequest) (*webhook.Webhook, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}
	whID, err := parseWebhookID(req.WebhookID)
	if err != nil {
		return nil, err
	}

	wh, err := a.hub.Webhooks().Get(ctx.Context(), teamID, whID)
	if err != nil {
		return nil, mapError(err)
	}

	return wh, nil
}

func (a *ForgeAPI) updateWebhook(ctx forge.Context, req *UpdateWebhookForgeRequest) (*webhook.Webhook, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}
	whID, err := parseWebhookID(req.WebhookID)
	if err != nil {
		return nil, err
	}

	wh, err := a.hub.Webhooks().Update(ctx.Context(), teamID, whID, webhook.Patch{
		Name:     req.Name,
		URL:      req.URL,
		IsActive: req.IsActive,
		Events:   req.Events,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return wh, nil
}

func (a *ForgeAPI) deleteWebhook(ctx forge.Context, req *WebhookForgeRequest) (*webhook.Webhook, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}
	whID, err := parseWebhookID(req.WebhookID)
	if err != nil {
		return nil, err
	}

	if deleteErr := a.hub.Webhooks().Delete(ctx.Context(), teamID, whID); deleteErr != nil {
		return nil, mapError(deleteErr)
	}

	err = ctx.NoContent(http.StatusNoContent)
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.NoContent.
	return nil, nil
}

func (a *ForgeAPI) rotateSecret(ctx forge.Context, req *WebhookForgeRequest) (*SecretForgeResponse, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}
	whID, err := parseWebhookID(req.WebhookID)
	if err != nil {
		return nil, err
	}

	secret, err := a.hub.Webhooks().RotateSecret(ctx.Context(), teamID, whID)
	if err != nil {
		return nil, mapError(err)
	}

	return &SecretForgeResponse{Secret: secret}, nil
}

func (a *ForgeAPI) testWebhook(ctx forge.Context, req *TestWebhookForgeRequest) (*delivery.Delivery, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}
	whID, err := parseWebhookID(req.WebhookID)
	if err != nil {
		return nil, err
	}
	eventType, err := event.Parse(req.Event)
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}

	d, err := a.hub.SendTest(ctx.Context(), teamID, whID, eventType, req.Data)
	if err != nil {
		return nil, mapError(err)
	}

	return d, nil
}

// ---------------------------------------------------------------------------
// Delivery routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerDeliveryRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("deliveries"))

	if err := g.GET("/webhooks/:webhookId/deliveries", a.listDeliveries,
		forge.WithSummary("List deliveries"),
		forge.WithDescription("Returns the webhook's delivery attempts, newest first, with pagination."),
		forge.WithOperationID("listDeliveries"),
		forge.WithRequestSchema(ListDeliveriesForgeRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Delivery page", DeliveryPageForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register listDeliveries route", forge.Error(err))
	}

	if err := g.GET("/webhooks/:webhookId/deliveries/:deliveryId", a.getDelivery,
		forge.WithSummary("Get delivery"),
		forge.WithDescription("Returns one delivery attempt."),
		forge.WithOperationID("getDelivery"),
		forge.WithResponseSchema(http.StatusOK, "Delivery attempt", delivery.Delivery{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register getDelivery route", forge.Error(err))
	}

	if err := g.POST("/webhooks/:webhookId/deliveries/:deliveryId/redeliver", a.redeliver,
		forge.WithSummary("Redeliver"),
		forge.WithDescription("Resends the recorded payload to the webhook's current URL in the background."),
		forge.WithOperationID("redeliver"),
		forge.WithResponseSchema(http.StatusAccepted, "Redelivery scheduled", AcceptedForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register redeliver route", forge.Error(err))
	}
}

func (a *ForgeAPI) listDeliveries(ctx forge.Context, req *ListDeliveriesForgeRequest) (*delivery.Page, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}

	page, err := listDeliveries(ctx.Context(), a.hub, teamID, req.WebhookID, deliveryQuery{
		Limit:  req.Limit,
		Offset: req.Offset,
		Status: req.Status,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return page, nil
}

func (a *ForgeAPI) getDelivery(ctx forge.Context, req *DeliveryForgeRequest) (*delivery.Delivery, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}

	d, err := getDelivery(ctx.Context(), a.hub, teamID, req.WebhookID, req.DeliveryID)
	if err != nil {
		return nil, mapError(err)
	}

	return d, nil
}

func (a *ForgeAPI) redeliver(ctx forge.Context, req *DeliveryForgeRequest) (*AcceptedForgeResponse, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := redeliver(ctx.Context(), a.hub, teamID, req.WebhookID, req.DeliveryID); err != nil {
		return nil, mapError(err)
	}

	err = ctx.JSON(http.StatusAccepted, AcceptedForgeResponse{Status: "scheduled"})
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}

// ---------------------------------------------------------------------------
// Event routes
// ---------------------------------------------------------------------------

func (a *ForgeAPI) registerEventRoutes(router forge.Router) {
	g := router.Group("", forge.WithGroupTags("events"))

	if err := g.POST("/events", a.triggerEvent,
		forge.WithSummary("Trigger event"),
		forge.WithDescription("Fans a domain event out to the team's subscribed webhooks. Delivery happens in the background."),
		forge.WithOperationID("triggerEvent"),
		forge.WithRequestSchema(TriggerEventForgeRequest{}),
		forge.WithResponseSchema(http.StatusAccepted, "Event accepted", AcceptedForgeResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		a.log.Error("Failed to register triggerEvent route", forge.Error(err))
	}
}

func (a *ForgeAPI) triggerEvent(ctx forge.Context, req *TriggerEventForgeRequest) (*AcceptedForgeResponse, error) {
	teamID, err := teamFrom(ctx)
	if err != nil {
		return nil, err
	}
	eventType, err := event.Parse(req.Event)
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}

	a.hub.Trigger(ctx.Context(), eventType, teamID, req.Data)

	err = ctx.JSON(http.StatusAccepted, AcceptedForgeResponse{Status: "accepted"})
	if err != nil {
		return nil, mapError(err)
	}

	//nolint:nilnil // response already written via ctx.JSON.
	return nil, nil
}
