package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/cinetix/ticketing/internal/handler"    // import the handlers that implement business logic
	"github.com/cinetix/ticketing/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/cinetix/ticketing/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth     *handler.AuthHandler
	Booking  *handler.BookingHandler
	Browse   *handler.BrowseHandler
	Movies   *handler.MovieHandler
	Screens  *handler.ScreenHandler
	Shows    *handler.ShowHandler
	Tickets  *handler.TicketHandler
	Requests *handler.MovieRequestHandler
}

// RegisterRoutes registers every route of the service on the provided
// Echo instance.  Three tiers exist: public browse endpoints with no
// auth, customer endpoints behind JWT, and staff endpoints behind JWT
// plus the ADMIN role.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Unauthenticated session endpoints.
	authGroup := e.Group("/v1/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)

	// Public browse: guests can inspect the catalog and the live seat
	// map before signing in.  The upcoming route must be registered
	// before /v1/shows/:id so Echo does not swallow it as an id.
	e.GET("/v1/movies", h.Browse.ListMovies)
	e.GET("/v1/movies/:id", h.Browse.GetMovie)
	e.GET("/v1/shows", h.Browse.ListShows)
	e.GET("/v1/shows/upcoming", h.Browse.UpcomingShows)
	e.GET("/v1/shows/:id", h.Browse.GetShow)
	e.GET("/v1/shows/:id/seats", h.Browse.GetShowSeats)

	// Authenticated endpoints: any signed-in user.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleCustomer))
	auth.GET("/me", h.Auth.Me)
	auth.GET("/me/tickets", h.Tickets.MyTickets)
	auth.GET("/me/requests", h.Requests.MyRequests)
	auth.POST("/requests", h.Requests.Create)
	auth.POST("/shows/:id/seats/hold", h.Booking.HoldSeat)
	auth.DELETE("/shows/:id/seats/hold", h.Booking.ReleaseSeats)
	auth.POST("/shows/:id/book", h.Booking.BookSeats)

	// Staff endpoints: catalog management, the reservation workflow and
	// ticket validation at the entrance.
	admin := e.Group("/v1")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/movies", h.Movies.Create)
	admin.PUT("/movies/:id", h.Movies.Update)
	admin.DELETE("/movies/:id", h.Movies.Delete)
	admin.POST("/screens", h.Screens.Create)
	admin.GET("/screens", h.Screens.List)
	admin.GET("/screens/:id", h.Screens.Get)
	admin.DELETE("/screens/:id", h.Screens.Delete)
	admin.POST("/shows", h.Shows.Create)
	admin.PUT("/shows/:id", h.Shows.Update)
	admin.DELETE("/shows/:id", h.Shows.Delete)
	admin.POST("/shows/:id/reserve", h.Booking.ReserveSeats)
	admin.GET("/seats/reserved", h.Booking.ListReserved)
	admin.POST("/seats/:id/approve", h.Booking.ApproveSeat)
	admin.POST("/seats/:id/reject", h.Booking.RejectSeat)
	admin.POST("/tickets/validate", h.Tickets.Validate)
	admin.GET("/requests", h.Requests.List)
	admin.PUT("/requests/:id/status", h.Requests.Decide)
}
