package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"voyago/config"
	"voyago/infras/kafka"
	"voyago/infras/otel"
	"voyago/internal/domains/booking/event"
	"voyago/internal/domains/booking/model"
	"voyago/internal/domains/booking/model/dto"
	"voyago/internal/domains/booking/repository"
	pkgModel "voyago/internal/domains/pkg/model"
	pkgRepository "voyago/internal/domains/pkg/repository"
	userModel "voyago/internal/domains/user/model"
	userRepository "voyago/internal/domains/user/repository"
	"voyago/shared"
	"voyago/shared/cache"
	"voyago/shared/constant"
	gDto "voyago/shared/dto"
	"voyago/shared/failure"
	"voyago/shared/refgen"
	"voyago/shared/timezone"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:get_all"
	cacheCountBooking  = "booking:count"
)

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	Update(ctx context.Context, req dto.UpdateBookingRequest, id string) (dto.BookingResponse, error)
	Cancel(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo     repository.Booking
	pkgRepo  pkgRepository.TravelPackage
	userRepo userRepository.User
	refgen   refgen.Generator
	kafka    kafka.Client
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
}

func New(
	repo repository.Booking,
	pkgRepo pkgRepository.TravelPackage,
	userRepo userRepository.User,
	refgen refgen.Generator,
	kafka kafka.Client,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:     repo,
		pkgRepo:  pkgRepo,
		userRepo: userRepo,
		refgen:   refgen,
		kafka:    kafka,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err = req.ValidatePricing(); err != nil {
		return res, err
	}

	if req.TravelerCount > s.cfg.Booking.MaxTravelersPerLeader {
		return res, failure.BadRequestFromString(fmt.Sprintf("a booking may hold at most %d travelers", s.cfg.Booking.MaxTravelersPerLeader)) // nolint:wrapcheck
	}

	totalPrice, err := s.resolvePrice(ctx, req)
	if err != nil {
		return res, err
	}

	booking, err := s.insertWithFreshReference(ctx, req, user, totalPrice)
	if err != nil {
		return res, err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		s.publishEvent(c, event.New(event.TypeCreated, booking))

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()

	res.FromModel(booking)

	return res, nil
}

// resolvePrice computes the total from the catalog when a package is
// referenced, and trusts the caller-supplied price otherwise.
func (s *serviceImpl) resolvePrice(ctx context.Context, req dto.CreateBookingRequest) (float64, error) {
	if req.PackageID == nil {
		return *req.CustomPrice, nil
	}

	pkg, err := s.pkgRepo.Get(ctx, shared.FilterByID(*req.PackageID, pkgModel.FieldID, pkgModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get travel package")

		return 0, fmt.Errorf("failed to get travel package: %w", err)
	}

	if pkg.ID == constant.Empty {
		return 0, failure.NotFound("travel package not found") // nolint:wrapcheck
	}

	if !pkg.Active {
		return 0, failure.BadRequestFromString("travel package is no longer available") // nolint:wrapcheck
	}

	if req.TravelerCount > pkg.MaxTravelers {
		return 0, failure.BadRequestFromString(fmt.Sprintf("travel package allows at most %d travelers", pkg.MaxTravelers)) // nolint:wrapcheck
	}

	return pkg.UnitPrice * float64(req.TravelerCount), nil
}

// insertWithFreshReference allocates a reference and inserts the booking,
// retrying with a new reference when the unique constraint fires. The
// generator already checks the store, so a constraint hit means two bookings
// raced the same candidate in the same millisecond.
func (s *serviceImpl) insertWithFreshReference(ctx context.Context, req dto.CreateBookingRequest, user string, totalPrice float64) (model.Booking, error) {
	for attempt := 0; attempt < s.cfg.Booking.ReferenceMaxAttempts; attempt++ {
		reference, err := s.refgen.Generate(ctx, s.referenceTaken)
		if err != nil {
			return model.Booking{}, err
		}

		booking, err := req.ToModel(user, reference, totalPrice)
		if err != nil {
			log.Error().Err(err).Msg("failed to build booking from request")

			return model.Booking{}, failure.BadRequestFromString("travel_date must be formatted as YYYY-MM-DD") // nolint:wrapcheck
		}

		err = s.repo.Insert(ctx, booking)
		if errors.Is(err, repository.ErrDuplicateReference) {
			log.Warn().Str("reference", reference).Int("attempt", attempt+1).Msg("booking reference raced, retrying with a new one")

			continue
		}

		if err != nil {
			log.Error().Err(err).Msg("failed to create booking")

			return model.Booking{}, fmt.Errorf("failed to create booking: %w", err)
		}

		return booking, nil
	}

	log.Error().Int("attempts", s.cfg.Booking.ReferenceMaxAttempts).Msg("exhausted booking reference attempts on insert")

	return model.Booking{}, failure.InternalErrorFromString("unable to allocate a unique booking reference") // nolint:wrapcheck
}

func (s *serviceImpl) referenceTaken(ctx context.Context, reference string) (bool, error) {
	return s.repo.Exist(ctx, shared.FilterByID(reference, model.FieldReference, model.TableName)) // nolint:wrapcheck
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter, err = s.scopeToOwner(ctx, filter)
	if err != nil {
		return res, err
	}

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, err
	}

	bookings, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, err
	}

	res.FromModels(bookings, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (total int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &total)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking count")

		return total, nil
	}

	total, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return total, err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, total, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return total, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, s.authorize(ctx, res.UserID)
	}

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	if err = s.authorize(ctx, booking.UserID); err != nil {
		return dto.BookingResponse{}, err
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateBookingRequest, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	if req == (dto.UpdateBookingRequest{}) {
		return res, failure.BadRequestFromString("update request cannot be empty") // nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	if err = s.authorize(ctx, booking.UserID); err != nil {
		return res, err
	}

	if req.Status != constant.Empty {
		if err = s.applyTransition(ctx, booking, req.Status, user); err != nil {
			return res, err
		}
	}

	if req.TravelDate != constant.Empty {
		if err = s.rescheduleTravelDate(ctx, booking, req.TravelDate, user); err != nil {
			return res, err
		}
	}

	updated, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to reload booking")

		return res, fmt.Errorf("failed to reload booking: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		s.invalidateBooking(c, id)
	}()

	res.FromModel(updated)

	return res, nil
}

// applyTransition moves the booking along the lifecycle graph. Confirming and
// completing are administrative actions; owners only ever cancel, and that
// goes through Cancel.
func (s *serviceImpl) applyTransition(ctx context.Context, booking model.Booking, status, user string) error {
	admin, err := s.isAdmin(ctx)
	if err != nil {
		return err
	}

	if !admin {
		return failure.Forbidden("only an administrator may confirm or complete a booking") // nolint:wrapcheck
	}

	if !model.CanTransition(booking.Status, status) {
		return failure.Conflict(fmt.Sprintf("booking cannot move from %s to %s", booking.Status, status)) // nolint:wrapcheck
	}

	applied, err := s.repo.UpdateStatusIf(ctx, booking.ID, booking.Status, status, user)
	if err != nil {
		log.Error().Err(err).Msg("failed to update booking status")

		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if !applied {
		return failure.Conflict("booking status changed concurrently, please retry") // nolint:wrapcheck
	}

	booking.Status = status

	go func() {
		c := context.WithoutCancel(ctx)

		switch status {
		case model.StatusConfirmed:
			s.publishEvent(c, event.New(event.TypeConfirmed, booking))
		case model.StatusCompleted:
			s.publishEvent(c, event.New(event.TypeCompleted, booking))
		}
	}()

	return nil
}

// rescheduleTravelDate is only sensible while nothing has been paid for yet.
func (s *serviceImpl) rescheduleTravelDate(ctx context.Context, booking model.Booking, travelDate, user string) error {
	if booking.Status != model.StatusPending {
		return failure.Conflict("travel date can only be changed while the booking is pending") // nolint:wrapcheck
	}

	parsed, err := time.Parse(constant.TravelDateFormat, travelDate)
	if err != nil {
		return failure.BadRequestFromString("travel_date must be formatted as YYYY-MM-DD") // nolint:wrapcheck
	}

	updatedFields := map[string]any{
		model.FieldTravelDate:    parsed,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}

	if err := s.repo.Update(ctx, updatedFields, shared.FilterByID(booking.ID, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Msg("failed to update travel date")

		return fmt.Errorf("failed to update travel date: %w", err)
	}

	return nil
}

func (s *serviceImpl) Cancel(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return failure.NotFound("booking not found") // nolint:wrapcheck
	}

	if err = s.authorize(ctx, booking.UserID); err != nil {
		return err
	}

	if !model.IsCancellable(booking.Status) {
		return failure.Conflict(fmt.Sprintf("booking cannot be cancelled while %s", booking.Status)) // nolint:wrapcheck
	}

	applied, err := s.repo.UpdateStatusIf(ctx, id, booking.Status, model.StatusCancelled, user)
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel booking")

		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	if !applied {
		return failure.Conflict("booking status changed concurrently, please retry") // nolint:wrapcheck
	}

	booking.Status = model.StatusCancelled

	go func() {
		c := context.WithoutCancel(ctx)

		s.publishEvent(c, event.New(event.TypeCancelled, booking))

		s.invalidateBooking(c, id)
	}()

	return nil
}

// authorize allows the owner and administrators through. The role comes from
// the store, not from token claims.
func (s *serviceImpl) authorize(ctx context.Context, ownerID string) error {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	if user == ownerID {
		return nil
	}

	admin, err := s.isAdmin(ctx)
	if err != nil {
		return err
	}

	if !admin {
		return failure.Forbidden("you do not have access to this booking") // nolint:wrapcheck
	}

	return nil
}

func (s *serviceImpl) isAdmin(ctx context.Context) (bool, error) {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	requester, err := s.userRepo.Get(ctx, shared.FilterByID(user, userModel.FieldID, userModel.TableName), userModel.FieldID, userModel.FieldRole)
	if err != nil {
		log.Error().Err(err).Msg("failed to get requester")

		return false, fmt.Errorf("failed to get requester: %w", err)
	}

	return requester.Role == constant.RoleAdmin, nil
}

// scopeToOwner restricts list queries to the requester's own bookings unless
// the requester is an administrator.
func (s *serviceImpl) scopeToOwner(ctx context.Context, filter gDto.FilterGroup) (gDto.FilterGroup, error) {
	admin, err := s.isAdmin(ctx)
	if err != nil {
		return filter, err
	}

	if admin {
		return filter, nil
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if filter.Operator == constant.Empty {
		filter.Operator = gDto.FilterGroupOperatorAnd
	}

	filter.Filters = append(filter.Filters, gDto.Filter{
		Field:    model.FieldUserID,
		Value:    user,
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	})

	return filter, nil
}

func (s *serviceImpl) publishEvent(ctx context.Context, evt event.BookingEvent) {
	topic := s.cfg.Kafka.Topics.BookingEvents

	message := kafka.Message{
		Key:   evt.BookingID,
		Value: evt,
	}

	if err := s.kafka.SendMessages(ctx, topic, message); err != nil {
		log.Error().Err(err).Str("type", evt.Type).Str("booking", evt.BookingID).Msg("failed to publish booking event")
	}
}

func (s *serviceImpl) invalidateBooking(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking cache")
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(ctx, s.cache, cacheCountBooking)
}
