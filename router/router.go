package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-reservations/config"
	"github.com/yeremiapane/restaurant-reservations/controllers"
	"github.com/yeremiapane/restaurant-reservations/middlewares"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/realtime"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/storage"
	"github.com/yeremiapane/restaurant-reservations/utils"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer needs. Notifier, Images and Clock
// may be nil.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Tokens    *utils.TokenManager
	Blacklist *utils.TokenBlacklist
	Hub       *realtime.Hub
	Notifier  services.Notifier
	Images    storage.Store
	Clock     func() time.Time
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if deps.Notifier == nil {
		deps.Notifier = services.NopNotifier{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Blacklist == nil {
		deps.Blacklist = utils.NewTokenBlacklist()
	}
	if deps.Hub == nil {
		deps.Hub = realtime.NewHub()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders(cfg.IsProduction()))
	r.Use(middlewares.CORSMiddlewares(cfg.CORSAllowedOrigins))
	r.Use(middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).RateLimit())

	if cfg.StorageBackend == "local" && cfg.UploadDir != "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	reservationSvc := services.NewReservationService(deps.DB, deps.Notifier,
		services.WithClock(deps.Clock),
		services.WithDefaultDuration(cfg.DefaultReservationDuration),
	)
	restaurantSvc := services.NewRestaurantService(deps.DB, deps.Clock)

	authCtrl := controllers.NewAuthController(services.NewAuthService(deps.DB, deps.Tokens), deps.Blacklist)
	restaurantCtrl := controllers.NewRestaurantController(restaurantSvc)
	tableCtrl := controllers.NewTableController(restaurantSvc)
	menuCtrl := controllers.NewMenuController(services.NewMenuService(deps.DB, deps.Images))
	reservationCtrl := controllers.NewReservationController(reservationSvc)
	dashboardCtrl := controllers.NewDashboardController(services.NewDashboardService(deps.DB, deps.Clock))
	notificationCtrl := controllers.NewNotificationController(services.NewNotificationService(deps.DB))
	feedCtrl := controllers.NewFeedController(deps.Hub, allowOrigin(cfg.CORSAllowedOrigins))

	auth := middlewares.AuthMiddleware(deps.Tokens, deps.Blacklist)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authCtrl.Register)
		authGroup.POST("/login", authCtrl.Login)
		authGroup.GET("/me", auth, authCtrl.Me)
		authGroup.POST("/logout", auth, authCtrl.Logout)
	}

	public := r.Group("/restaurants")
	{
		public.GET("", restaurantCtrl.ListRestaurants)
		public.GET("/:id", restaurantCtrl.GetRestaurant)
		public.GET("/:id/tables", tableCtrl.ListTables)
		public.GET("/:id/menu", menuCtrl.GetMenu)
	}

	reservations := r.Group("/reservations", auth, middlewares.AuditLogger("reservation"))
	{
		reservations.POST("", reservationCtrl.CreateReservation)
		reservations.GET("/me", reservationCtrl.MyReservations)
		reservations.GET("/:id", reservationCtrl.GetReservation)
		reservations.PATCH("/:id", reservationCtrl.UpdateReservation)
		reservations.DELETE("/:id", reservationCtrl.CancelReservation)
	}

	r.GET("/notifications", auth, notificationCtrl.ListNotifications)

	// role checks for these live in the services
	admin := r.Group("/admin", auth, middlewares.AuditLogger("admin"))
	{
		admin.POST("/restaurants", restaurantCtrl.CreateRestaurant)
		admin.PUT("/restaurants/:id", restaurantCtrl.UpdateRestaurant)
		admin.DELETE("/restaurants/:id", restaurantCtrl.DeleteRestaurant)

		admin.POST("/restaurants/:id/tables", tableCtrl.CreateTable)
		admin.PUT("/tables/:table_id", tableCtrl.UpdateTable)
		admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		admin.POST("/restaurants/:id/menu", menuCtrl.CreateMenuItem)
		admin.PUT("/menu/:item_id", menuCtrl.UpdateMenuItem)
		admin.DELETE("/menu/:item_id", menuCtrl.DeleteMenuItem)
		admin.POST("/menu/:item_id/image", menuCtrl.UploadImage)

		admin.GET("/reservations", reservationCtrl.FilterReservations)

		admin.GET("/dashboard/reservations", dashboardCtrl.ReservationStats)
		admin.GET("/dashboard/dishes", dashboardCtrl.TopDishes)
		admin.GET("/dashboard/occupancy", dashboardCtrl.Occupancy)

		admin.GET("/notifications", notificationCtrl.ListNotifications)
	}

	r.GET("/admin/ws",
		middlewares.WebSocketAuthMiddleware(deps.Tokens, deps.Blacklist),
		middlewares.RequireRole(models.RoleAdmin),
		feedCtrl.HandleWebSocket,
	)

	return r
}

func allowOrigin(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(allowed) == 0 || allowed[origin]
	}
}
