package marketserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers mounted by NewRouter.
type ApiHandleFunctions struct {
	PaymentsAPI PaymentsAPI
	HealthAPI   HealthAPI
}

// NewRouter returns a new router with request IDs and recovery installed.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID())
	return NewRouterWithGinEngine(router, handleFunctions)
}

// NewRouterWithGinEngine adds routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes without a handler.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{
			"CreateInvoice",
			http.MethodPost,
			"/api/create-invoice",
			handleFunctions.PaymentsAPI.CreateInvoice,
		},
		{
			"CheckPayment",
			http.MethodGet,
			"/api/check-payment/:payment_hash",
			handleFunctions.PaymentsAPI.CheckPayment,
		},
		{
			"GetOrder",
			http.MethodGet,
			"/api/orders/:payment_hash",
			handleFunctions.PaymentsAPI.GetOrder,
		},
		{
			"GetNodeInfo",
			http.MethodGet,
			"/api/node-info",
			handleFunctions.PaymentsAPI.GetNodeInfo,
		},
		{
			"Healthz",
			http.MethodGet,
			"/healthz",
			handleFunctions.HealthAPI.Healthz,
		},
	}
}
