package store

import (
	"context"
	"fmt"

	"vetrian/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const referralCodeTableName = "referral_codes"

func (r *RegistrantRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	query, args, err := psql().
		Select("1").
		Prefix("SELECT EXISTS (").
		From(referralCodeTableName).
		Where(sq.Eq{"code": code}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate referral code query: %w", err)
	}

	var exists bool
	err = r.pool.QueryRow(ctx, query, args...).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Referrer resolves a code to its owner. A code whose owner was deleted
// still resolves, with the owner columns blank.
func (r *RegistrantRepository) Referrer(ctx context.Context, code string) (*types.Referrer, error) {
	query, args, err := referrerQuery(code).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate referrer query: %w", err)
	}

	var referrer = new(types.Referrer)
	err = pgxscan.Get(ctx, r.pool, referrer, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrReferralCodeNotFound
		}
		return nil, err
	}

	return referrer, nil
}

func referrerQuery(code string) sq.SelectBuilder {
	return psql().
		Select(
			"c.code",
			"coalesce(c.registrant_id, '') AS registrant_id",
			"coalesce(r.fields->>'name', r.fields->>'fullName', '') AS name",
			"coalesce(r.email, '') AS email",
		).
		From(referralCodeTableName + " c").
		LeftJoin(registrantTableName + " r ON r.id = c.registrant_id").
		Where(sq.Eq{"c.code": code})
}
