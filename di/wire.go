//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"voyago/config"
	"voyago/infras/jwt"
	"voyago/infras/kafka"
	"voyago/infras/otel"
	"voyago/infras/paystack"
	"voyago/infras/postgres"
	"voyago/infras/redis"
	"voyago/permissions"
	"voyago/shared/cache"
	"voyago/transport/http"
	"voyago/transport/http/middleware"
	"voyago/transport/http/router"

	authService "voyago/internal/domains/auth/service"
	bookingRepository "voyago/internal/domains/booking/repository"
	bookingService "voyago/internal/domains/booking/service"
	paymentRepository "voyago/internal/domains/payment/repository"
	paymentService "voyago/internal/domains/payment/service"
	pkgRepository "voyago/internal/domains/pkg/repository"
	userRepository "voyago/internal/domains/user/repository"

	authHandler "voyago/internal/handlers/auth"
	bookingHandler "voyago/internal/handlers/booking"
	paymentHandler "voyago/internal/handlers/payment"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	paystack.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	provideReferenceGenerator,
)

var authDomain = wire.NewSet(
	userRepository.New,
	authService.New,
)

var bookingDomain = wire.NewSet(
	pkgRepository.New,
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentRepository.New,
	paymentService.New,
)

var domains = wire.NewSet(
	authDomain,
	bookingDomain,
	paymentDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	authHandler.New,
	bookingHandler.New,
	paymentHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
