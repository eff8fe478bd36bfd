package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/internal/store/convert"
	"github.com/promptvault/promptvault/internal/store/query"
	"github.com/promptvault/promptvault/internal/store/validate"
)

const (
	promptCols  = "id, name, slug, description, category, tags, template, variables, version, is_system, is_deleted, created_at, updated_at"
	versionCols = "id, prompt_id, version, template, variables, change_note, created_at"
	promptOrder = "created_at DESC, id DESC"
)

// versionWriteSeam runs between the prompt-row write and the
// version-snapshot write inside Update. Nil outside tests; the atomicity
// tests use it to inject a failure at the narrowest point.
var versionWriteSeam func() error

type promptRepo struct {
	tx *sql.Tx
	qb *query.Builder
}

func (r *promptRepo) Create(ctx context.Context, in models.CreatePrompt) (*models.Prompt, error) {
	if err := validate.PromptCreate(in); err != nil {
		return nil, err
	}

	category := in.Category
	if category == "" {
		category = models.CategoryGeneral
	}
	tags, err := convert.EncodeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	vars, err := convert.EncodeVariables(in.Variables)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.Prompt{
		ID:          uuid.New(),
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Category:    category,
		Tags:        in.Tags,
		Template:    in.Template,
		Variables:   in.Variables,
		Version:     1,
		IsSystem:    in.IsSystem,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = r.tx.ExecContext(ctx,
		`INSERT INTO prompts (`+promptCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.Slug, p.Description, string(p.Category), tags,
		p.Template, vars, p.Version, p.IsSystem, false,
		convert.FormatTime(now), convert.FormatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", store.ErrDuplicateSlug, in.Slug)
		}
		return nil, store.Unavailablef("insert prompt", err)
	}

	if err := r.insertVersion(ctx, p, ""); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *promptRepo) insertVersion(ctx context.Context, p *models.Prompt, note string) error {
	vars, err := convert.EncodeVariables(p.Variables)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx,
		`INSERT INTO prompt_versions (`+versionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), p.ID.String(), p.Version, p.Template, vars, note,
		convert.FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return store.Unavailablef("insert prompt version", err)
	}
	return nil
}

func (r *promptRepo) Get(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	return r.getWhere(ctx, "id = ?", id.String())
}

func (r *promptRepo) GetBySlug(ctx context.Context, slug string) (*models.Prompt, error) {
	return r.getWhere(ctx, "slug = ? AND is_deleted = 0", slug)
}

func (r *promptRepo) getWhere(ctx context.Context, where string, arg any) (*models.Prompt, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+promptCols+` FROM prompts WHERE `+where, arg)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundf("prompt %v", arg)
	}
	return p, err
}

func (r *promptRepo) List(ctx context.Context, f store.PromptFilter, p store.Page) ([]*models.Prompt, int64, error) {
	page, err := validate.Pagination(p)
	if err != nil {
		return nil, 0, err
	}
	conds := query.PromptConds(f)

	count := r.qb.Count("prompts", conds)
	var total int64
	if err := r.tx.QueryRowContext(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return nil, 0, store.Unavailablef("count prompts", err)
	}

	sel := r.qb.PaginatedSelect("prompts", []string{promptCols}, conds, promptOrder, page.Limit, page.Offset)
	rows, err := r.tx.QueryContext(ctx, sel.SQL, sel.Args...)
	if err != nil {
		return nil, 0, store.Unavailablef("list prompts", err)
	}
	defer rows.Close()

	var prompts []*models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, 0, err
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Unavailablef("list prompts", err)
	}
	return prompts, total, nil
}

func (r *promptRepo) Update(ctx context.Context, id uuid.UUID, u models.UpdatePrompt) (*models.Prompt, error) {
	if err := validate.PromptUpdate(u); err != nil {
		return nil, err
	}

	cur, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.IsSystem {
		return nil, fmt.Errorf("%w: prompt %s is a built-in", store.ErrForbidden, id)
	}

	next := validate.MergeUpdate(cur, u)
	changed := validate.ContentChanged(cur, next.Template, next.Variables)
	if changed {
		next.Version = cur.Version + 1
	}
	next.UpdatedAt = time.Now().UTC()

	tags, err := convert.EncodeTags(next.Tags)
	if err != nil {
		return nil, err
	}
	vars, err := convert.EncodeVariables(next.Variables)
	if err != nil {
		return nil, err
	}

	_, err = r.tx.ExecContext(ctx,
		`UPDATE prompts SET name = ?, description = ?, category = ?, tags = ?,
			template = ?, variables = ?, version = ?, updated_at = ?
		 WHERE id = ?`,
		next.Name, next.Description, string(next.Category), tags,
		next.Template, vars, next.Version, convert.FormatTime(next.UpdatedAt),
		id.String(),
	)
	if err != nil {
		return nil, store.Unavailablef("update prompt", err)
	}

	if changed {
		if versionWriteSeam != nil {
			if err := versionWriteSeam(); err != nil {
				return nil, err
			}
		}
		if err := r.insertVersion(ctx, next, u.ChangeNote); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (r *promptRepo) ListVersions(ctx context.Context, id uuid.UUID) ([]*models.PromptVersion, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+versionCols+` FROM prompt_versions WHERE prompt_id = ? ORDER BY version ASC`,
		id.String(),
	)
	if err != nil {
		return nil, store.Unavailablef("list prompt versions", err)
	}
	defer rows.Close()

	var versions []*models.PromptVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailablef("list prompt versions", err)
	}
	return versions, nil
}

func (r *promptRepo) GetVersion(ctx context.Context, id uuid.UUID, version int) (*models.PromptVersion, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+versionCols+` FROM prompt_versions WHERE prompt_id = ? AND version = ?`,
		id.String(), version,
	)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundf("prompt %s version %d", id, version)
	}
	return v, err
}

func (r *promptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.tx.ExecContext(ctx,
		`UPDATE prompts SET is_deleted = 1, updated_at = ? WHERE id = ?`,
		convert.FormatTime(time.Now().UTC()), id.String(),
	)
	if err != nil {
		return store.Unavailablef("delete prompt", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFoundf("prompt %s", id)
	}
	return nil
}

func (r *promptRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM prompt_versions WHERE prompt_id = ?`, id.String()); err != nil {
		return store.Unavailablef("hard delete prompt versions", err)
	}
	res, err := r.tx.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id.String())
	if err != nil {
		return store.Unavailablef("hard delete prompt", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.NotFoundf("prompt %s", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrompt(s scanner) (*models.Prompt, error) {
	var row convert.PromptRow
	err := s.Scan(&row.ID, &row.Name, &row.Slug, &row.Description, &row.Category,
		&row.Tags, &row.Template, &row.Variables, &row.Version,
		&row.IsSystem, &row.IsDeleted, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, store.Unavailablef("scan prompt", err)
	}
	return convert.Prompt(row)
}

func scanVersion(s scanner) (*models.PromptVersion, error) {
	var row convert.PromptVersionRow
	err := s.Scan(&row.ID, &row.PromptID, &row.Version, &row.Template,
		&row.Variables, &row.ChangeNote, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, store.Unavailablef("scan prompt version", err)
	}
	return convert.PromptVersion(row)
}
