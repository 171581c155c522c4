package middleware

import (
	"strconv"
	"strings"

	"github.com/enerva/utility-backoffice/internal/config"
	"github.com/enerva/utility-backoffice/internal/dto"
	"github.com/enerva/utility-backoffice/internal/identity"
	"github.com/enerva/utility-backoffice/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminRequired gates administrative routes. A caller passes when any of:
// 1. the X-Admin-Token header matches the configured token
// 2. their email or user id is on a configured admin list (bootstrap path,
//    needed because the first admin cannot be escalated by another admin)
// 3. their user row carries the admin role
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" {
			if c.Get("X-Admin-Token") == cfg.AdminToken {
				return c.Next()
			}
		}

		claims, err := identity.FromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if contains(adminEmails, claims.Email) ||
			contains(adminUserIDs, strconv.FormatUint(uint64(claims.UserID), 10)) {
			return c.Next()
		}

		// The role claim may be stale after a demotion; the row is authoritative.
		var user models.User
		if err := db.First(&user, claims.UserID).Error; err == nil {
			if user.Role == models.RoleAdmin {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
