package rest

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"hqbot/internal/game"
	"hqbot/internal/models"
)

type createRequest struct {
	OpponentID  string `json:"opponent_id"`
	BetAmount   int64  `json:"bet_amount"`
	TotalRounds int    `json:"total_rounds"`
}

type choiceRequest struct {
	Choice string `json:"choice"`
	Round  int    `json:"round"`
}

type matchResponse struct {
	Match      *models.Match      `json:"game"`
	Settlement *models.Settlement `json:"settlement,omitempty"`
}

type choiceResponse struct {
	Match      *models.Match      `json:"game"`
	Round      *models.Round      `json:"round,omitempty"`
	Events     []models.Event     `json:"events"`
	Settlement *models.Settlement `json:"settlement,omitempty"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.health != nil {
		if err := s.health.Ping(c.UserContext()); err != nil {
			s.logger.Warn("health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handlePending(c *fiber.Ctx) error {
	matches, err := s.services.Chifumi.ListPending(c.UserContext(), actorOf(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"games": nonNil(matches)})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	matches, err := s.services.Chifumi.History(c.UserContext(), actorOf(c), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"games": nonNil(matches)})
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	ctx := c.UserContext()
	m, err := s.services.Chifumi.GetMatch(ctx, matchID(c))
	if err != nil {
		return err
	}
	settlement, err := s.services.Chifumi.GetSettlement(ctx, m.ID)
	if err != nil {
		return err
	}
	return c.JSON(matchResponse{Match: m, Settlement: settlement})
}

func (s *Server) handleCreate(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	m, err := s.services.Chifumi.CreateChallenge(c.UserContext(), actorOf(c), req.OpponentID, req.BetAmount, req.TotalRounds)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(matchResponse{Match: m})
}

func (s *Server) handleAccept(c *fiber.Ctx) error {
	m, err := s.services.Chifumi.Accept(c.UserContext(), matchID(c), actorOf(c))
	if err != nil {
		return err
	}
	return c.JSON(matchResponse{Match: m})
}

func (s *Server) handleDecline(c *fiber.Ctx) error {
	m, err := s.services.Chifumi.Decline(c.UserContext(), matchID(c), actorOf(c))
	if err != nil {
		return err
	}
	return c.JSON(matchResponse{Match: m})
}

func (s *Server) handleChoice(c *fiber.Ctx) error {
	var req choiceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	choice, err := game.ParseChoice(req.Choice)
	if err != nil {
		return err
	}
	res, err := s.services.Chifumi.SubmitChoiceInRound(c.UserContext(), matchID(c), actorOf(c), choice, req.Round)
	if err != nil {
		return err
	}
	return c.JSON(choiceResponse{
		Match:      res.Match,
		Round:      res.Round,
		Events:     res.Events,
		Settlement: res.Settlement,
	})
}

// matchID normalises the path parameter; codes are stored upper-case.
func matchID(c *fiber.Ctx) string {
	return utils.CopyString(strings.ToUpper(strings.TrimSpace(c.Params("id"))))
}

func nonNil(matches []models.Match) []models.Match {
	if matches == nil {
		return []models.Match{}
	}
	return matches
}
