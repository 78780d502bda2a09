package routes

import (
	"net/http"

	"github.com/CUknot/grammable/controllers"
	_ "github.com/CUknot/grammable/docs"
	"github.com/CUknot/grammable/metrics"
	"github.com/CUknot/grammable/middleware"
	"github.com/CUknot/grammable/sessions"
	"github.com/CUknot/grammable/storage"
	"github.com/CUknot/grammable/views"
	"github.com/CUknot/grammable/websocket"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps are the services the router hands to its controllers
type Deps struct {
	DB        *gorm.DB
	Store     storage.Store
	UploadDir string
	Secret    string
	Revoker   sessions.Revoker

	// Feed receives gram events. Hub, when set, also serves /ws.
	Feed controllers.Publisher
	Hub  *websocket.Hub
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d Deps) (*gin.Engine, error) {
	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	feed := d.Feed
	if feed == nil && d.Hub != nil {
		feed = d.Hub
	}

	auth := &middleware.Auth{DB: d.DB, Secret: d.Secret, Revoker: d.Revoker}
	grams := &controllers.GramController{DB: d.DB, Store: d.Store, Feed: feed}
	users := &controllers.AuthController{DB: d.DB, Secret: d.Secret, Revoker: d.Revoker}

	router := gin.New()
	router.HTMLRender = renderer
	router.Use(gin.Recovery(), middleware.RequestLogger(), metrics.Middleware(), auth.CurrentUser())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if d.UploadDir != "" {
		router.Static("/uploads", d.UploadDir)
	}
	if d.Hub != nil {
		router.GET("/ws", d.Hub.HandleConnection)
	}

	// Pages
	router.GET("/", grams.Index)
	router.GET("/grams/new", middleware.RequireUser(), grams.New)
	router.POST("/grams", middleware.RequireUser(), grams.Create)
	router.GET("/grams/:id", grams.Show)
	router.GET("/grams/:id/edit", grams.Edit)
	router.PATCH("/grams/:id", grams.Update)
	router.PUT("/grams/:id", grams.Update)
	router.DELETE("/grams/:id", grams.Destroy)

	// Sessions
	router.GET("/users/sign_up", users.SignUpForm)
	router.POST("/users", users.SignUp)
	router.GET("/users/sign_in", users.SignInForm)
	router.POST("/users/sign_in", users.SignIn)
	router.DELETE("/users/sign_out", users.SignOut)

	// JSON API
	api := router.Group("/api")
	{
		api.POST("/register", users.Register)
		api.POST("/login", users.Login)

		api.GET("/grams", grams.ListGrams)
		api.GET("/grams/:id", grams.GetGram)
		api.POST("/grams", middleware.JWTAuth(), grams.CreateGram)
		api.PATCH("/grams/:id", grams.UpdateGram)
		api.DELETE("/grams/:id", grams.DeleteGram)
	}

	return router, nil
}

// formOverhead leaves room for the text fields and multipart framing around a picture
const formOverhead = 1 << 20

// Handler wraps the router with the middleware that must run before routing.
// Request bodies are capped just above maxUpload.
func Handler(router *gin.Engine, maxUpload int64) http.Handler {
	return middleware.LimitBody(maxUpload+formOverhead, middleware.MethodOverride(router))
}
