package di

import (
	"voyago/config"
	"voyago/shared/refgen"
)

func provideReferenceGenerator(cfg *config.Config) refgen.Generator {
	return refgen.New(cfg.Booking.ReferencePrefix, cfg.Booking.ReferenceMaxAttempts)
}
