package app

import (
	"campus_market/handlers"
	"campus_market/internal/storage"
	"campus_market/middleware"
	"campus_market/models"

	"github.com/gofiber/fiber/v2"
)

func (a *App) routes() {
	app := a.Fiber
	auth := a.Tokens.AuthMiddleware()
	backOffice := middleware.RequireRole(a.DB, models.RoleAdmin, models.RoleStaff)
	adminOnly := middleware.RequireRole(a.DB, models.RoleAdmin)

	authH := handlers.NewAuthHandler(a.DB, a.Tokens, a.Log.Named("auth"))
	userH := handlers.NewUserHandler(a.DB)
	categoryH := handlers.NewCategoryHandler(a.DB)
	productH := handlers.NewProductHandler(a.Catalog)
	searchH := handlers.NewSearchHandler(a.Search)
	uploadH := handlers.NewUploadHandler(a.Store, int64(a.Config.MaxUploadBytes), a.Log.Named("upload"))
	chatH := handlers.NewChatHandler(a.Hub, a.Chat, a.Log.Named("chat"))
	cartH := handlers.NewCartHandler(a.Cart)
	wishlistH := handlers.NewWishlistHandler(a.DB)
	orderH := handlers.NewOrderHandler(a.Orders)
	feedH := handlers.NewFeedHandler(a.Feed)
	verificationH := handlers.NewVerificationHandler(a.Verification)
	adminH := handlers.NewAdminHandler(a.DB, a.Catalog, a.Verification, a.Log.Named("admin"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(models.SuccessResponse("API is healthy", nil, nil))
	})
	app.Get("/metrics", a.Metrics.Handler())
	if local, ok := a.Store.(*storage.LocalStore); ok {
		app.Static(local.BaseURL, local.Dir)
	}

	// WebSocket; browsers pass the token as ?token=.
	app.Get("/ws", auth, chatH.WebSocketUpgradeMiddleware, chatH.Handler())

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", authH.Register)
	authGroup.Post("/login", authH.Login)

	api.Get("/categories", categoryH.GetCategories)
	api.Get("/search", searchH.SearchProducts)
	api.Get("/featured", adminH.GetFeatured)
	api.Get("/feed", feedH.GetFeed)
	api.Get("/files/:id", uploadH.ServeFile)

	api.Get("/me", auth, userH.Me)
	api.Put("/me", auth, userH.UpdateProfile)
	api.Get("/users/search", auth, userH.SearchUsers)

	products := api.Group("/products")
	products.Get("/", productH.GetAllProducts)
	products.Get("/:id", productH.GetProduct)
	products.Post("/", auth, productH.CreateProduct)
	products.Put("/:id", auth, productH.UpdateProduct)
	products.Delete("/:id", auth, middleware.SessionRole(a.DB), productH.DeleteProduct)
	api.Get("/my-products", auth, productH.GetMyProducts)

	api.Post("/upload", auth, uploadH.UploadImage)

	cartGroup := api.Group("/cart", auth)
	cartGroup.Get("/", cartH.GetCart)
	cartGroup.Post("/", cartH.AddToCart)
	cartGroup.Delete("/", cartH.ClearCart)
	cartGroup.Put("/:productID", cartH.UpdateCartItem)
	cartGroup.Delete("/:productID", cartH.RemoveFromCart)

	wishlist := api.Group("/wishlist", auth)
	wishlist.Get("/", wishlistH.GetWishlist)
	wishlist.Put("/:productID", wishlistH.AddToWishlist)
	wishlist.Delete("/:productID", wishlistH.RemoveFromWishlist)

	api.Post("/checkout", auth, orderH.Checkout)
	ordersGroup := api.Group("/orders", auth)
	ordersGroup.Get("/", orderH.GetMyOrders)
	ordersGroup.Get("/:id", orderH.GetOrder)
	ordersGroup.Delete("/:id", orderH.DeleteOrder)

	seller := api.Group("/seller", auth)
	seller.Get("/orders", orderH.GetSellerOrders)
	seller.Post("/orders/:id/approve", orderH.ApproveOrder)
	seller.Post("/orders/:id/decline", orderH.DeclineOrder)

	verificationGroup := api.Group("/verification", auth)
	verificationGroup.Get("/", verificationH.Mine)
	verificationGroup.Post("/", verificationH.Submit)

	posts := api.Group("/posts")
	posts.Get("/:id/comments", feedH.GetComments)
	posts.Post("/", auth, feedH.CreatePost)
	posts.Delete("/:id", auth, feedH.DeletePost)
	posts.Post("/:id/comments", auth, feedH.AddComment)
	posts.Put("/:id/like", auth, feedH.LikePost)
	posts.Delete("/:id/like", auth, feedH.UnlikePost)
	api.Delete("/comments/:id", auth, feedH.DeleteComment)

	chats := api.Group("/chats", auth)
	chats.Get("/", chatH.GetMyChats)
	chats.Post("/private", chatH.InitPrivateChat)
	chats.Get("/:roomID/messages", chatH.GetChatMessages)
	chats.Post("/:roomID/read", chatH.MarkRoomRead)
	chats.Get("/:roomID/status", chatH.GetRoomStatus)
	chats.Delete("/:roomID", chatH.DeleteChat)

	admin := api.Group("/admin", auth, backOffice)
	admin.Get("/dashboard", adminH.GetDashboard)
	admin.Get("/products", adminH.ListProducts)
	admin.Post("/products/:id/approve", adminH.ApproveProduct)
	admin.Post("/products/:id/reject", adminH.RejectProduct)
	admin.Post("/dropship", adminH.CreateDropship)
	admin.Get("/verifications", adminH.ListVerifications)
	admin.Post("/verifications/:id/approve", adminH.ApproveVerification)
	admin.Post("/verifications/:id/reject", adminH.RejectVerification)
	admin.Get("/featured", adminH.ListSections)
	admin.Post("/featured", adminH.CreateSection)
	admin.Put("/featured/:id", adminH.UpdateSection)
	admin.Delete("/featured/:id", adminH.DeleteSection)
	admin.Post("/featured/:id/items", adminH.AddSectionItem)
	admin.Delete("/featured/:id/items/:itemID", adminH.RemoveSectionItem)
	admin.Get("/staff", adminH.ListStaff)
	admin.Put("/users/:id/role", adminOnly, adminH.UpdateUserRole)

	app.Use(middleware.NotFound)
}
