package middleware

import (
	"errors"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const actorKey = "actor"

var errNoActor = errors.New("request is not authenticated")

// Protected verifies the bearer token and stores the caller as a workflow.Actor.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		SigningMethod:  "HS256",
		ErrorHandler:   jwtError,
		SuccessHandler: storeActor,
	})
}

// ProtectedSocket is Protected with a ?token= fallback for websocket clients that cannot set headers.
func ProtectedSocket(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		SigningMethod:  "HS256",
		TokenLookup:    "header:Authorization,query:token",
		ErrorHandler:   jwtError,
		SuccessHandler: storeActor,
	})
}

// Optional behaves like Protected when a bearer token is sent and lets anonymous requests through.
func Optional(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter:         func(c *fiber.Ctx) bool { return c.Get(fiber.HeaderAuthorization) == "" },
		SigningKey:     []byte(secret),
		SigningMethod:  "HS256",
		ErrorHandler:   jwtError,
		SuccessHandler: storeActor,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing or malformed JWT"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
}

func storeActor(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return jwtError(c, errNoActor)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return jwtError(c, errNoActor)
	}
	rawID, _ := claims["user_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return jwtError(c, err)
	}
	rawRole, _ := claims["role"].(string)
	role, err := models.ParseRole(rawRole)
	if err != nil {
		return jwtError(c, err)
	}
	c.Locals(actorKey, workflow.Actor{ID: id, Role: role})
	return c.Next()
}

// ActorFrom returns the authenticated caller stored by Protected.
func ActorFrom(c *fiber.Ctx) (workflow.Actor, bool) {
	a, ok := c.Locals(actorKey).(workflow.Actor)
	return a, ok
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, ok := ActorFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": errNoActor.Error()})
		}
		for _, r := range roles {
			if a.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: " + string(roles[0]) + " access required",
		})
	}
}

func AdminRequired() fiber.Handler     { return RequireRole(models.RoleAdmin) }
func TalentRequired() fiber.Handler    { return RequireRole(models.RoleTalent) }
func OrganizerRequired() fiber.Handler { return RequireRole(models.RoleOrganizer) }
