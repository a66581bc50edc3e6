package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assignment-engine/internal/domain"
	apperrors "github.com/spec-kit/assignment-engine/pkg/util/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Agent.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff ensures the caller can hold assignments.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.StaffRoles...)
}

// RequireSupervisor ensures the caller is a manager or admin.
func RequireSupervisor() fiber.Handler {
	return RequireRole(domain.SupervisorRoles...)
}

// CanManageAgent reports whether principal may edit agentID's settings.
func CanManageAgent(principal *Principal, agentID string) bool {
	if principal == nil || principal.Agent == nil {
		return false
	}
	return principal.Agent.ID == agentID || principal.Agent.Role.IsSupervisor()
}
