package rest

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
	"github.com/vladislavdragonenkov/ims/internal/service/movement"
	"github.com/vladislavdragonenkov/ims/internal/service/order"
)

// Deps перечисляет обязательные зависимости HTTP API.
type Deps struct {
	Products   domain.ProductRepository
	Categories domain.CategoryRepository
	Customers  domain.CustomerRepository
	Users      domain.UserRepository
	Orders     *order.Workflow
	Movements  *movement.Recorder
}

// Options задаёт необязательные параметры сервера.
type Options struct {
	Logger      *log.Entry
	Metrics     *metrics.HTTPMetrics
	Idempotency domain.IdempotencyRepository
}

// Option настраивает Server.
type Option func(*Options)

// WithLogger задаёт logger для HTTP API.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики HTTP API.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithIdempotency включает поддержку заголовка Idempotency-Key на
// изменяющих заказ/журнал операциях.
func WithIdempotency(repo domain.IdempotencyRepository) Option {
	return func(opts *Options) {
		opts.Idempotency = repo
	}
}

// Server обслуживает JSON API склада: каталог, стороны, заказы, журнал движений.
type Server struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	customers  domain.CustomerRepository
	users      domain.UserRepository
	orders     *order.Workflow
	movements  *movement.Recorder

	idempotency domain.IdempotencyRepository
	logger      *log.Entry
	metrics     *metrics.HTTPMetrics
}

// NewServer конструирует HTTP API с зависимостями.
func NewServer(deps Deps, options ...Option) *Server {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return &Server{
		products:    deps.Products,
		categories:  deps.Categories,
		customers:   deps.Customers,
		users:       deps.Users,
		orders:      deps.Orders,
		movements:   deps.Movements,
		idempotency: opts.Idempotency,
		logger:      logger.WithField("component", "rest"),
		metrics:     opts.Metrics,
	}
}

// Handler собирает маршруты API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/products", s.instrument("/api/products", s.listProducts))
	mux.Handle("POST /api/products", s.instrument("/api/products", s.createProduct))
	mux.Handle("GET /api/products/{id}", s.instrument("/api/products/{id}", s.getProduct))
	mux.Handle("PUT /api/products/{id}", s.instrument("/api/products/{id}", s.updateProduct))
	mux.Handle("DELETE /api/products/{id}", s.instrument("/api/products/{id}", s.deleteProduct))
	mux.Handle("GET /api/products/{id}/movements", s.instrument("/api/products/{id}/movements", s.listProductMovements))

	mux.Handle("GET /api/categories", s.instrument("/api/categories", s.listCategories))
	mux.Handle("POST /api/categories", s.instrument("/api/categories", s.createCategory))
	mux.Handle("GET /api/categories/{id}", s.instrument("/api/categories/{id}", s.getCategory))
	mux.Handle("PUT /api/categories/{id}", s.instrument("/api/categories/{id}", s.updateCategory))
	mux.Handle("DELETE /api/categories/{id}", s.instrument("/api/categories/{id}", s.deleteCategory))

	mux.Handle("GET /api/customers", s.instrument("/api/customers", s.listCustomers))
	mux.Handle("POST /api/customers", s.instrument("/api/customers", s.createCustomer))
	mux.Handle("GET /api/customers/{id}", s.instrument("/api/customers/{id}", s.getCustomer))
	mux.Handle("PUT /api/customers/{id}", s.instrument("/api/customers/{id}", s.updateCustomer))
	mux.Handle("DELETE /api/customers/{id}", s.instrument("/api/customers/{id}", s.deleteCustomer))

	mux.Handle("GET /api/users", s.instrument("/api/users", s.listUsers))
	mux.Handle("POST /api/users", s.instrument("/api/users", s.createUser))
	mux.Handle("GET /api/users/{id}", s.instrument("/api/users/{id}", s.getUser))
	mux.Handle("PUT /api/users/{id}", s.instrument("/api/users/{id}", s.updateUser))
	mux.Handle("DELETE /api/users/{id}", s.instrument("/api/users/{id}", s.deleteUser))

	mux.Handle("GET /api/orders", s.instrument("/api/orders", s.listOrders))
	mux.Handle("POST /api/orders", s.instrument("/api/orders", s.createOrder))
	mux.Handle("GET /api/orders/{id}", s.instrument("/api/orders/{id}", s.getOrder))
	mux.Handle("DELETE /api/orders/{id}", s.instrument("/api/orders/{id}", s.deleteOrder))
	mux.Handle("PUT /api/orders/{id}/status", s.instrument("/api/orders/{id}/status", s.updateOrderStatus))

	mux.Handle("GET /api/movements", s.instrument("/api/movements", s.listMovements))
	mux.Handle("POST /api/movements", s.instrument("/api/movements", s.createMovement))
	mux.Handle("GET /api/movements/{id}", s.instrument("/api/movements/{id}", s.getMovement))

	return mux
}
