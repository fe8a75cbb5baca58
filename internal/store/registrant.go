package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"vetrian/internal/utils"
	"vetrian/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const registrantTableName = "registrants"

var registrantColumns = utils.StructTagValues(types.Registrant{})

// columns for the natural keys a duplicate probe may use
var naturalKeyColumns = map[string]string{
	"email":      "email",
	"phone":      "phone",
	"rollNumber": "roll_number",
}

type RegistrantRepository struct {
	pool *pgxpool.Pool
}

func NewRegistrantRepository(pool *pgxpool.Pool) *RegistrantRepository {
	return &RegistrantRepository{pool: pool}
}

func scope(rt types.ResourceType, stage types.Stage) sq.Eq {
	return sq.Eq{"resource_type": string(rt), "stage": string(stage)}
}

func (r *RegistrantRepository) get(ctx context.Context, where sq.Sqlizer) (*types.Registrant, error) {
	query, args, err := psql().
		Select(registrantColumns...).
		From(registrantTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate registrant query: %w", err)
	}

	var rec = new(types.Registrant)
	err = pgxscan.Get(ctx, r.pool, rec, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRegistrantNotFound
		}
		return nil, err
	}

	return rec, nil
}

func (r *RegistrantRepository) Registrant(ctx context.Context, rt types.ResourceType, stage types.Stage, id string) (*types.Registrant, error) {
	return r.get(ctx, sq.And{scope(rt, stage), sq.Eq{"id": id}})
}

func (r *RegistrantRepository) RegistrantByEmail(ctx context.Context, rt types.ResourceType, stage types.Stage, email string) (*types.Registrant, error) {
	return r.get(ctx, sq.And{scope(rt, stage), sq.Eq{"email": email}})
}

// RegistrantByID looks a record up without knowing its type or stage.
func (r *RegistrantRepository) RegistrantByID(ctx context.Context, id string) (*types.Registrant, error) {
	return r.get(ctx, sq.Eq{"id": id})
}

func (r *RegistrantRepository) Registrants(ctx context.Context, rt types.ResourceType, stage types.Stage) ([]*types.Registrant, error) {
	query, args, err := psql().
		Select(registrantColumns...).
		From(registrantTableName).
		Where(scope(rt, stage)).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate registrants query: %w", err)
	}

	var records = make([]*types.Registrant, 0)
	err = pgxscan.Select(ctx, r.pool, &records, query, args...)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// MatchRegistrant runs one OR query across the supplied natural keys.
func (r *RegistrantRepository) MatchRegistrant(ctx context.Context, rt types.ResourceType, stage types.Stage, match map[string]string) (*types.Registrant, error) {
	var anyOf sq.Or
	for _, field := range slices.Sorted(maps.Keys(match)) {
		column, ok := naturalKeyColumns[field]
		if !ok {
			return nil, fmt.Errorf("cannot match on %s", field)
		}
		anyOf = append(anyOf, sq.Eq{column: match[field]})
	}

	if len(anyOf) == 0 {
		return nil, types.ErrRegistrantNotFound
	}

	return r.get(ctx, sq.And{scope(rt, stage), anyOf})
}

// CreateRegistrant inserts the record and, when given, the referral code it
// owns in one transaction.
func (r *RegistrantRepository) CreateRegistrant(ctx context.Context, rec *types.Registrant, code *types.ReferralCode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql().
		Insert(registrantTableName).
		SetMap(utils.StructToMap(rec)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate registrant insert: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return translateError(err)
	}

	if code != nil {
		query, args, err := psql().
			Insert(referralCodeTableName).
			SetMap(utils.StructToMap(code)).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate referral code insert: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return translateError(err)
		}
	}

	return utils.ErrorWrapOrNil(tx.Commit(ctx), "failed to commit registrant")
}

// UpdateRegistrant overwrites every mutable column of an existing record.
func (r *RegistrantRepository) UpdateRegistrant(ctx context.Context, rec *types.Registrant) error {
	query, args, err := psql().
		Update(registrantTableName).
		SetMap(utils.StructToMap(rec, "id", "resource_type", "stage", "created_at")).
		Where(sq.And{scope(rec.ResourceType, rec.Stage), sq.Eq{"id": rec.ID}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate registrant update: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrRegistrantNotFound
	}

	return nil
}

func (r *RegistrantRepository) DeleteRegistrant(ctx context.Context, rt types.ResourceType, stage types.Stage, id string) error {
	query, args, err := psql().
		Delete(registrantTableName).
		Where(sq.And{scope(rt, stage), sq.Eq{"id": id}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate registrant delete: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return types.ErrRegistrantNotFound
	}

	return nil
}

// Ping reports whether the database answers.
func (r *RegistrantRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
