package api

import (
	"github.com/Ibraz94/fleetbold-expenses/internal/api/handlers"
	"github.com/Ibraz94/fleetbold-expenses/internal/storage"
	"github.com/Ibraz94/fleetbold-expenses/pkg/auth"
	"github.com/Ibraz94/fleetbold-expenses/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func SetupRouter(
	uploadHandler *handlers.UploadHandler,
	expenseHandler *handlers.ExpenseHandler,
	reservationHandler *handlers.ReservationHandler,
	store *storage.ReceiptStore,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"ok":      false,
				"message": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Stored receipts
	app.Static("/uploads", store.Dir())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Protected routes
	protected := app.Group("/api/v1", middleware.ActorMiddleware(jwtManager, appLogger))

	expenses := protected.Group("/expenses")
	expenses.Post("/uploads", uploadHandler.Upload)
	expenses.Post("", expenseHandler.Create)
	expenses.Get("", expenseHandler.List)
	expenses.Get("/export", expenseHandler.Export)
	expenses.Get("/:id", expenseHandler.Get)
	expenses.Patch("/:id", expenseHandler.Edit)
	expenses.Delete("/:id", expenseHandler.Delete)
	expenses.Get("/:id/receipt", expenseHandler.Receipt)
	expenses.Get("/:id/matches", expenseHandler.Matches)
	expenses.Post("/:id/assign", expenseHandler.Assign)
	expenses.Post("/:id/approve", expenseHandler.Approve)
	expenses.Post("/:id/reject", expenseHandler.Reject)
	expenses.Post("/:id/unbillable", expenseHandler.MarkUnbillable)
	expenses.Post("/:id/invoiced", expenseHandler.MarkInvoiced)
	expenses.Post("/:id/paid", expenseHandler.MarkPaid)
	expenses.Post("/:id/notes", expenseHandler.AppendNote)
	expenses.Get("/:id/events", expenseHandler.Events)

	reservations := protected.Group("/reservations")
	reservations.Get("", reservationHandler.List)

	return app
}
