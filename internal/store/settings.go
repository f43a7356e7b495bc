package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const settingTimeBuckets = "time_buckets"

// settingsRepo implements SettingsRepo on a key/value table.
type settingsRepo struct {
	s *Store
}

func (r *settingsRepo) TimeBuckets(ctx context.Context) (*TimeBuckets, error) {
	raw, err := r.get(ctx, settingTimeBuckets)
	if err != nil || raw == "" {
		return nil, err
	}
	var tb TimeBuckets
	if err := json.Unmarshal([]byte(raw), &tb); err != nil {
		return nil, fmt.Errorf("decode time buckets: %w", err)
	}
	return &tb, nil
}

func (r *settingsRepo) SetTimeBuckets(ctx context.Context, tb TimeBuckets) error {
	raw, err := json.Marshal(tb)
	if err != nil {
		return fmt.Errorf("encode time buckets: %w", err)
	}
	return r.set(ctx, settingTimeBuckets, string(raw))
}

func (r *settingsRepo) get(ctx context.Context, name string) (string, error) {
	b := r.s.builder()
	stmt, args := b.Select("value").
		From(b.Table(settingsTable.Name)).
		Where(entsql.EQ("name", name)).
		Query()

	var v string
	err := r.s.db.QueryRowContext(ctx, stmt, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", name, err)
	}
	return v, nil
}

func (r *settingsRepo) set(ctx context.Context, name, value string) error {
	ins := r.s.builder().Insert(settingsTable.Name).
		Columns("name", "value", "updated_at").
		Values(name, value, r.s.now()).
		OnConflict(entsql.ConflictColumns("name"), entsql.ResolveWithNewValues())
	if _, err := r.s.exec(ctx, r.s.db, ins); err != nil {
		return fmt.Errorf("write setting %s: %w", name, err)
	}
	return nil
}
