package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/handlers"
	"github.com/medstore/api/internal/handlers/cart"
	"github.com/medstore/api/internal/handlers/order"
	"github.com/medstore/api/internal/handlers/prescription"
	"github.com/medstore/api/internal/service"
)

type Deps struct {
	DB                  *gorm.DB
	AuthHandler         *handlers.AuthHandler
	ProductHandler      *handlers.ProductHandler
	CartHandler         *cart.CartHandler
	OrderHandler        *order.OrderHandler
	PrescriptionHandler *prescription.ReviewHandler
	ServiceHandler      *service.TokenService
	SearchHandler       *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := v1.Group("/admin", d.ServiceHandler.AutoRefreshMiddlewareAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/products/:id/image", d.ProductHandler.UploadProductImage)

	buyer := v1.Group("", d.ServiceHandler.AutoRefreshMiddleware)

	buyer.GET("/cart", d.CartHandler.GetCart)
	buyer.POST("/cart", d.CartHandler.AddToCart)
	buyer.PATCH("/cart/:id", d.CartHandler.SetQuantity)
	buyer.DELETE("/cart/:id", d.CartHandler.RemoveFromCart)
	buyer.DELETE("/cart", d.CartHandler.ClearCart)

	buyer.POST("/orders/checkout", d.OrderHandler.Checkout)
	buyer.POST("/orders/:id/payment/initiate", d.OrderHandler.InitiatePayment)
	buyer.POST("/orders/:id/payment/callback", d.OrderHandler.PaymentCallback)
	buyer.GET("/orders", d.OrderHandler.ListOrders)
	buyer.GET("/orders/:id", d.OrderHandler.GetOrder)
	buyer.GET("/prescriptions", d.PrescriptionHandler.ListMine)

	staff := v1.Group("/staff", d.ServiceHandler.AutoRefreshMiddlewareStaff)
	staff.GET("/prescriptions", d.PrescriptionHandler.ListPending)
	staff.GET("/prescriptions/metrics", d.PrescriptionHandler.Metrics)
	staff.GET("/prescriptions/:id/file", d.PrescriptionHandler.FileURL)
	staff.POST("/prescriptions/:id/review", d.PrescriptionHandler.Review)
	staff.GET("/orders", d.OrderHandler.StaffListOrders)
	staff.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)
	staff.PATCH("/products/:id/stock", d.ProductHandler.UpdateStock)
}
