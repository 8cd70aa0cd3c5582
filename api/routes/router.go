package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/larder-backend/api/controllers"
	"github.com/angelmondragon/larder-backend/api/middleware"
	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	"github.com/angelmondragon/larder-backend/internal/replenishment"
	"github.com/angelmondragon/larder-backend/pkg/config"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/larder-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Idempotency and the
// redis readiness check are skipped when Idempotency is nil.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   pkgredis.IdempotencyStore
	Gatherer      prometheus.Gatherer
	Catalog       catalog.Service
	Ledger        ledger.Service
	Recipes       recipes.Service
	Purchasing    purchasing.Service
	Replenishment replenishment.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.ListSuppliers(deps.Catalog, logg))
			r.Post("/", controllers.CreateSupplier(deps.Catalog, logg))
			r.Get("/{supplierId}", controllers.GetSupplier(deps.Catalog, logg))
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", controllers.ListIngredients(deps.Catalog, deps.Ledger, logg))
			r.Post("/", controllers.CreateIngredient(deps.Catalog, logg))
			r.Get("/{ingredientId}", controllers.GetIngredient(deps.Catalog, deps.Ledger, logg))
			r.Patch("/{ingredientId}", controllers.UpdateIngredient(deps.Catalog, logg))
			r.Get("/{ingredientId}/stock", controllers.GetStock(deps.Ledger, logg))
			r.Get("/{ingredientId}/movements", controllers.ListMovements(deps.Ledger, logg))
			r.Post("/{ingredientId}/movements", controllers.RecordMovement(deps.Ledger, logg))
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", controllers.ListRecipes(deps.Recipes, logg))
			r.Post("/", controllers.CreateRecipe(deps.Recipes, logg))
			r.Get("/{recipeId}", controllers.GetRecipe(deps.Recipes, logg))
			r.Get("/{recipeId}/consumption", controllers.GetConsumption(deps.Recipes, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", controllers.ListPurchaseOrders(deps.Purchasing, logg))
			r.Post("/", controllers.CreatePurchaseOrder(deps.Purchasing, logg))
			r.Get("/{orderId}", controllers.GetPurchaseOrder(deps.Purchasing, logg))
			r.Post("/{orderId}/transition", controllers.TransitionPurchaseOrder(deps.Purchasing, logg))
			r.Post("/{orderId}/deliveries", controllers.RecordDelivery(deps.Purchasing, logg))
		})

		r.Route("/replenishment", func(r chi.Router) {
			r.Get("/deficits", controllers.ListDeficits(deps.Replenishment, logg))
			r.Post("/generate", controllers.GenerateDrafts(deps.Replenishment, logg))
			r.Post("/plan", controllers.PlanProduction(deps.Replenishment, logg))
		})
	})

	return r
}
