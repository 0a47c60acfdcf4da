package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"

	"voyago/infras/otel"
	"voyago/infras/postgres"
	"voyago/internal/domains/payment/model"
	"voyago/shared/constant"
	gDto "voyago/shared/dto"
	gRepo "voyago/shared/repository"
	"voyago/shared/timezone"
)

type Payment interface {
	Insert(ctx context.Context, model model.Payment) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Payment, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Payment, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	MarkTerminal(ctx context.Context, id string, update model.TerminalUpdate, modifiedBy string) (bool, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Payment]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Payment {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Payment](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// MarkTerminal settles the payment only while it is still pending. It reports
// whether this call won the transition; losing simply means another signal
// settled the payment first.
func (r *repositoryImpl) MarkTerminal(ctx context.Context, id string, update model.TerminalUpdate, modifiedBy string) (bool, error) {
	mod := map[string]any{
		model.FieldStatus:        update.Status,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: modifiedBy,
	}

	if update.GatewayReference != nil {
		mod[model.FieldGatewayReference] = *update.GatewayReference
	}

	if update.Channel != nil {
		mod[model.FieldChannel] = *update.Channel
	}

	if update.PaidAt != nil {
		mod[model.FieldPaidAt] = *update.PaidAt
	}

	if len(update.RawMetadata) > 0 {
		mod[model.FieldRawMetadata] = update.RawMetadata
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			// ArgName keeps the pending guard distinct from the status value
			// being written.
			gDto.Filter{ArgName: "status_from", Field: model.FieldStatus, Value: model.StatusPending, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}

	affected, err := r.UpdateConditional(ctx, mod, filter)
	if err != nil {
		return false, err //nolint:wrapcheck
	}

	return affected > 0, nil
}
