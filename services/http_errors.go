package services

import (
	"errors"

	"competition-system/models"

	"github.com/gofiber/fiber/v2"
)

// respondError maps the core error taxonomy onto HTTP statuses. Anything not
// named is an infrastructure failure and comes back as a 500 without detail.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrCompetitionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrAlreadyParticipant), errors.Is(err, ErrCannotRejoin):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrOwnerCompetitionLimit),
		errors.Is(err, ErrServerCompetitionLimit),
		errors.Is(err, ErrMaximumParticipantsReached),
		errors.Is(err, ErrInactiveCompetition),
		errors.Is(err, ErrInviteOnly),
		errors.Is(err, ErrNotInvited),
		errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrNotOwner),
		errors.Is(err, ErrBulkNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
