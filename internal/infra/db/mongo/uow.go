package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

const writeConflictCode = 112

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	PropertiesRepo domainproperty.Repository
	RulesRepo      domainpricing.RuleRepository
	BlocksRepo     domainavailability.BlockRepository
	BookingsRepo   domainbooking.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// NewFactory builds a factory with the default repositories of db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:             db,
		PropertiesRepo: NewPropertyRepository(db),
		RulesRepo:      NewSeasonalRuleRepository(db),
		BlocksRepo:     NewBlockRepository(db),
		BookingsRepo:   NewBookingRepository(db),
	}
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:         f.DB,
		session:    session,
		properties: f.PropertiesRepo,
		rules:      f.RulesRepo,
		blocks:     f.BlocksRepo,
		bookings:   f.BookingsRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

	properties domainproperty.Repository
	rules      domainpricing.RuleRepository
	blocks     domainavailability.BlockRepository
	bookings   domainbooking.Repository
}

func (u *Unit) Properties() domainproperty.Repository       { return u.properties }
func (u *Unit) SeasonalRules() domainpricing.RuleRepository { return u.rules }
func (u *Unit) Blocks() domainavailability.BlockRepository  { return u.blocks }
func (u *Unit) Bookings() domainbooking.Repository          { return u.bookings }

// TouchCalendar bumps the per-property calendar version inside the
// transaction. Two transactions touching the same property collide with a
// write conflict, so at most one of them commits.
func (u *Unit) TouchCalendar(ctx context.Context, id domainproperty.PropertyID) error {
	_, err := u.db.Collection("calendar_versions").UpdateOne(ctx,
		bson.M{"_id": string(id)},
		bson.M{"$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true),
	)
	return translateConflict(err)
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return translateConflict(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.Code == writeConflictCode || cmdErr.HasErrorLabel("TransientTransactionError")) {
		return uow.ErrCalendarContention
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == writeConflictCode {
				return uow.ErrCalendarContention
			}
		}
		if we.HasErrorLabel("TransientTransactionError") {
			return uow.ErrCalendarContention
		}
	}
	return err
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)
