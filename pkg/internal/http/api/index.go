package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/voxlink/voxlink/pkg/internal/services"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		calls := api.Group("/calls").Name("Calls API")
		{
			calls.Get("/", listCalls)
			calls.Get("/:callId", getCall)
			calls.Get("/:callId/events", listCallEvents)
			calls.Post("/:callId/move_to_history", authMiddleware, moveCallToHistory)
			calls.Put("/:callId/notes", authMiddleware, setCallNotes)
			calls.Post("/originate", authMiddleware, originateCall)
			calls.Post("/:callId/listen", authMiddleware, spyCall(services.Listen))
			calls.Post("/:callId/whisper", authMiddleware, spyCall(services.Whisper))
			calls.Post("/:callId/barge", authMiddleware, spyCall(services.Barge))
		}

		channels := api.Group("/channels").Name("Channels API")
		{
			channels.Get("/", listChannels)
			channels.Get("/:channelId/linked", getLinkedChannel)
			channels.Delete("/", authMiddleware, vacuumChannels)
		}

		api.Get("/feed", authMiddleware, listFeed)

		// Dialplan-facing helpers, guarded by the permit list instead
		// of user auth.
		lookup := api.Group("/lookup").Use(permitMiddleware).Name("Lookup API")
		{
			lookup.Get("/caller_name", getCallerName)
			lookup.Get("/partner_manager", getPartnerManager)
			lookup.Get("/caller_tags", getCallerTags)
		}

		api.Get("/ws", authMiddleware, websocket.New(wsGateway))
	}
}
