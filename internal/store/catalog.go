package store

import (
	"context"
	"fmt"

	"upgrade-service/internal/models"
)

// ListUpgradeOptions returns every active upgrade option in display order.
// Validation of the rows is left to the catalog loader.
func (s *Store) ListUpgradeOptions(ctx context.Context) ([]models.UpgradeOption, error) {
	var options []models.UpgradeOption
	err := s.db.SelectContext(ctx, &options, `
		SELECT id, kind, size, label, price, applicability, gen_min, gen_max, active, display_order, updated_at
		FROM upgrade_options
		WHERE active = TRUE
		ORDER BY display_order NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list upgrade options: %w", err)
	}
	return options, nil
}

// UpsertUpgradeOptions inserts or updates options by id in one transaction.
// Rows with a zero id are inserted with a generated id.
func (s *Store) UpsertUpgradeOptions(ctx context.Context, options []models.UpgradeOption) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range options {
		o := &options[i]
		if o.ID == 0 {
			err = tx.GetContext(ctx, &o.ID, `
				INSERT INTO upgrade_options (kind, size, label, price, applicability, gen_min, gen_max, active, display_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id`,
				o.Kind, o.Size, o.Label, o.Price, o.Applicability, o.GenMin, o.GenMax, o.Active, o.DisplayOrder)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO upgrade_options (id, kind, size, label, price, applicability, gen_min, gen_max, active, display_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (id) DO UPDATE SET
					kind = EXCLUDED.kind,
					size = EXCLUDED.size,
					label = EXCLUDED.label,
					price = EXCLUDED.price,
					applicability = EXCLUDED.applicability,
					gen_min = EXCLUDED.gen_min,
					gen_max = EXCLUDED.gen_max,
					active = EXCLUDED.active,
					display_order = EXCLUDED.display_order,
					updated_at = NOW()`,
				o.ID, o.Kind, o.Size, o.Label, o.Price, o.Applicability, o.GenMin, o.GenMax, o.Active, o.DisplayOrder)
		}
		if err != nil {
			return fmt.Errorf("failed to upsert upgrade option %d: %w", o.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		SELECT setval(pg_get_serial_sequence('upgrade_options', 'id'),
			GREATEST((SELECT MAX(id) FROM upgrade_options), 1))`)
	if err != nil {
		return fmt.Errorf("failed to advance upgrade option sequence: %w", err)
	}

	return tx.Commit()
}

// DeactivateUpgradeOption hides an option from every future catalog load
func (s *Store) DeactivateUpgradeOption(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE upgrade_options SET active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("upgrade option %d: %w", id, ErrNotFound)
	}
	return nil
}
