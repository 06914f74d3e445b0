package handler

import "github.com/gin-gonic/gin"

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Organizations *OrganizationHandler
	Classes       *ClassHandler
	Users         *UserHandler
	Auth          *AuthHandler
	Requests      *SubstituteRequestHandler
	Notifications *NotificationHandler
	Settings      *SettingHandler
}

// Register mounts the command surface on api.
func Register(api *gin.RouterGroup, h Handlers) {
	orgs := api.Group("/organizations")
	orgs.GET("", h.Organizations.List)
	orgs.POST("", h.Organizations.Create)
	orgs.GET("/:id", h.Organizations.Get)
	orgs.PUT("/:id", h.Organizations.Update)
	orgs.DELETE("/:id", h.Organizations.Delete)
	orgs.GET("/:id/classes", h.Classes.ListByOrganization)

	classes := api.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", h.Classes.Create)
	classes.GET("/:id", h.Classes.Get)
	classes.PUT("/:id", h.Classes.Update)
	classes.DELETE("/:id", h.Classes.Delete)

	users := api.Group("/users")
	users.GET("", h.Users.List)
	users.POST("", h.Users.Create)
	users.GET("/:id", h.Users.Get)
	users.PUT("/:id", h.Users.Update)
	users.PUT("/:id/password", h.Users.SetPassword)
	users.DELETE("/:id", h.Users.Delete)
	users.GET("/:id/substitute-requests", h.Requests.ListForUser)

	api.POST("/auth/login", h.Auth.Login)

	requests := api.Group("/substitute-requests")
	requests.GET("", h.Requests.List)
	requests.POST("", h.Requests.Create)
	requests.GET("/export", h.Requests.Export)
	requests.GET("/:id", h.Requests.Get)
	requests.PUT("/:id", h.Requests.Update)
	requests.DELETE("/:id", h.Requests.Delete)
	requests.POST("/:id/transitions", h.Requests.Transition)
	requests.PUT("/:id/status", h.Requests.UpdateStatus)
	requests.POST("/:id/responses", h.Requests.Respond)
	requests.GET("/:id/responses", h.Requests.ListResponses)

	notifications := api.Group("/notifications")
	notifications.POST("/send", h.Notifications.Send)
	notifications.POST("/logs", h.Notifications.Log)
	notifications.GET("/logs", h.Notifications.ListLogs)
	notifications.POST("/notify-candidates", h.Notifications.NotifyCandidates)

	settings := api.Group("/settings")
	settings.GET("", h.Settings.List)
	settings.GET("/:key", h.Settings.Get)
	settings.PUT("/:key", h.Settings.Upsert)
}
