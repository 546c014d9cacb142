package handlers

import (
	"competition-system/middleware"
	"competition-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupCompetitionRoutes registers the competition and participant endpoints.
// Everything sits behind the gateway user context: the bot gateway is the only
// caller and always forwards the acting user.
func SetupCompetitionRoutes(app *fiber.App, competitions *services.CompetitionService, participants *services.ParticipantService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Competition lifecycle
	secured.Post("/competitions", competitions.CreateCompetition)
	secured.Get("/competitions", competitions.ListCompetitions)
	secured.Get("/competitions/:id", competitions.GetCompetition)
	secured.Get("/competitions/:id/status", competitions.GetCompetitionStatus)
	secured.Post("/competitions/:id/cancel", competitions.CancelCompetition)

	// Participant state machine
	secured.Post("/competitions/:id/join", participants.JoinCompetition)
	secured.Post("/competitions/:id/invite", participants.InviteParticipant)
	secured.Post("/competitions/:id/invites/accept", participants.AcceptInvitationEndpoint)
	secured.Post("/competitions/:id/leave", participants.LeaveCompetition)
	secured.Post("/competitions/:id/enroll", participants.BulkEnrollEndpoint)
	secured.Get("/competitions/:id/participants", participants.GetParticipants)
	secured.Get("/competitions/:id/participants/:player_id", participants.GetParticipant)
}
