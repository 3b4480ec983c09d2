package api

import (
	"govassist/app/service/catalog"
	"govassist/app/service/linker"

	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2"
)

type messageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type chainResponse struct {
	Service string        `json:"service"`
	Steps   []linker.Step `json:"steps"`
}

type serviceResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	URL        string `json:"url"`
}

func (s *Service) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Service) createSession(c *fiber.Ctx) error {
	info, err := s.sessions.Create()
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(info)
}

func (s *Service) postMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "text is required and must be at most 2000 characters")
	}

	result, err := s.sessions.Turn(c.UserContext(), c.Params("id"), req.Text)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func (s *Service) listMessages(c *fiber.Ctx) error {
	messages, err := s.sessions.Messages(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(messages)
}

func (s *Service) summary(c *fiber.Ctx) error {
	summary, err := s.sessions.Summary(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(summary)
}

func (s *Service) deleteSession(c *fiber.Ctx) error {
	if err := s.sessions.Delete(c.Params("id")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) serviceChain(c *fiber.Ctx) error {
	id := c.Params("id")

	steps, err := s.linker.GenerateServiceChain(id)
	if err != nil {
		return err
	}

	return c.JSON(chainResponse{
		Service: id,
		Steps:   steps,
	})
}

func (s *Service) relatedServices(c *fiber.Ctx) error {
	related, err := s.linker.SuggestRelatedServices(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(pie.Map(related, func(svc *catalog.Service) serviceResponse {
		return serviceResponse{
			ID:         svc.ID,
			Name:       svc.Name,
			Department: svc.Department,
			URL:        svc.URL,
		}
	}))
}
