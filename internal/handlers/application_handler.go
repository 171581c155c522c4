package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/enerva/utility-backoffice/internal/config"
	"github.com/enerva/utility-backoffice/internal/dto"
	"github.com/enerva/utility-backoffice/internal/identity"
	"github.com/enerva/utility-backoffice/internal/kind"
	"github.com/enerva/utility-backoffice/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ApplicationHandler serves all three kinds; each route is bound to its kind
// descriptor at registration time.
type ApplicationHandler struct {
	service *services.ApplicationService
	cfg     *config.Config
}

func NewApplicationHandler(service *services.ApplicationService, cfg *config.Config) *ApplicationHandler {
	return &ApplicationHandler{service: service, cfg: cfg}
}

type submitRequest struct {
	ApplicantName string          `json:"applicant_name"`
	Details       json.RawMessage `json:"details"`
}

// Submit accepts a public application submission, as multipart form data
// (file parts named after the kind's document slots) or as a plain JSON body
// without attachments.
func (h *ApplicationHandler) Submit(k kind.Spec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := services.SubmitInput{
			UserID:    h.optionalUserID(c),
			Documents: map[string][]byte{},
		}

		if form, err := c.MultipartForm(); err == nil && form != nil {
			in.ApplicantName = c.FormValue("applicant_name")
			in.Details = []byte(c.FormValue("details"))
			for name, headers := range form.File {
				if len(headers) == 0 {
					continue
				}
				f, err := headers[0].Open()
				if err != nil {
					return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
						Error: true, Message: "Unreadable file part: " + name,
					})
				}
				data, err := io.ReadAll(f)
				f.Close()
				if err != nil {
					return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
						Error: true, Message: "Unreadable file part: " + name,
					})
				}
				in.Documents[name] = data
			}
		} else {
			var req submitRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
					Error: true, Message: "Invalid request body",
				})
			}
			in.ApplicantName = req.ApplicantName
			in.Details = req.Details
		}

		app, err := h.service.Submit(k, &in)
		if err != nil {
			if errors.Is(err, services.ErrInvalidDocumentType) {
				return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
					Error: true, Message: "Invalid file type",
				})
			}
			if errors.Is(err, services.ErrMissingApplicant) ||
				errors.Is(err, services.ErrInvalidDetails) ||
				errors.Is(err, services.ErrEmptyDocument) {
				return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
					Error: true, Message: err.Error(),
				})
			}
			return h.fail(c, err, "submit application")
		}

		return c.Status(fiber.StatusCreated).JSON(app)
	}
}

func (h *ApplicationHandler) List(k kind.Spec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apps, err := h.service.List(k)
		if err != nil {
			return h.fail(c, err, "list applications")
		}
		return c.JSON(apps)
	}
}

func (h *ApplicationHandler) Get(k kind.Spec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid application id",
			})
		}

		app, err := h.service.Get(k, id)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
					Error: true, Message: "Application not found",
				})
			}
			return h.fail(c, err, "fetch application")
		}
		return c.JSON(app)
	}
}

func (h *ApplicationHandler) GetDocument(k kind.Spec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid application id",
			})
		}

		data, err := h.service.GetDocument(k, id, c.Params("fileType"))
		if err != nil {
			if errors.Is(err, services.ErrInvalidDocumentType) {
				return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
					Error: true, Message: "Invalid file type",
				})
			}
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
					Error: true, Message: "File not found",
				})
			}
			return h.fail(c, err, "fetch document")
		}

		c.Set(fiber.HeaderContentType, "application/pdf")
		return c.Send(data)
	}
}

func (h *ApplicationHandler) UpdateStatus(k kind.Spec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := identity.FromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		id, err := parseID(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid application id",
			})
		}

		var req dto.UpdateStatusRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid request body",
			})
		}

		app, err := h.service.UpdateStatus(k, id, req.Status, actor)
		if err != nil {
			if errors.Is(err, services.ErrInvalidStatus) {
				return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
					Error: true, Message: "Invalid status value",
				})
			}
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
					Error: true, Message: "Application not found",
				})
			}
			return h.fail(c, err, "update status")
		}
		return c.JSON(app)
	}
}

// fail logs the underlying cause and returns a generic message; storage
// detail never reaches the caller.
func (h *ApplicationHandler) fail(c *fiber.Ctx, err error, action string) error {
	slog.Error("application request failed",
		"action", action,
		"path", c.Path(),
		"error", err.Error(),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// optionalUserID records the submitter when a valid credential accompanies an
// otherwise-public submission. Anything less than a valid token means
// anonymous; it never rejects the request.
func (h *ApplicationHandler) optionalUserID(c *fiber.Ctx) *uint {
	auth := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil
	}

	token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return nil
	}
	uid := uint(id)
	return &uid
}
