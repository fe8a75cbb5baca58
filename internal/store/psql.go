package store

import (
	"errors"

	"vetrian/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// constraintFields maps unique index names onto the field they guard.
var constraintFields = map[string]string{
	"registrants_pkey":                        "id",
	"registrants_email_key":                   "email",
	"registrants_phone_key":                   "phone",
	"registrants_roll_number_key":             "rollNumber",
	"registrants_generated_referral_code_key": "generatedReferralCode",
	"referral_codes_pkey":                     "generatedReferralCode",
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// translateError turns unique index violations into *types.UniqueViolation.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}

	field, ok := constraintFields[pgErr.ConstraintName]
	if !ok {
		field = pgErr.ConstraintName
	}

	return &types.UniqueViolation{Field: field, Constraint: pgErr.ConstraintName, Err: err}
}
