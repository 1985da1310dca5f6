package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	"github.com/Redshadow31/tenf-v2-sub004/internal/platform/database"
	"github.com/lib/pq"
)

const memberColumns = `login, display_name, platform_id, profile_url, chat_id, chat_handle, role, vip, active,
            badges, description, bio, site_username, list_id, manual_override, created_at, updated_at`

type postgresMemberRepo struct {
	db *sql.DB
}

// NewPostgresMemberRepo builds a member repository on the members table
// created by the embedded migrations.
func NewPostgresMemberRepo(db *sql.DB) MemberRepository {
	return &postgresMemberRepo{db: db}
}

func (r *postgresMemberRepo) Create(ctx context.Context, m *member.Member) error {
	const query = `
        INSERT INTO members (` + memberColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.db.ExecContext(ctx, query, memberArgs(m)...)
	return r.mapError(err)
}

func (r *postgresMemberRepo) FindByLogin(ctx context.Context, login string) (*member.Member, error) {
	const query = `SELECT ` + memberColumns + ` FROM members WHERE login = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, loginKey(login)))
	if err != nil {
		return nil, r.mapError(err)
	}
	return m, nil
}

func (r *postgresMemberRepo) List(ctx context.Context) ([]*member.Member, error) {
	const query = `SELECT ` + memberColumns + ` FROM members ORDER BY login ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, r.mapError(err)
	}
	defer rows.Close()

	var out []*member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresMemberRepo) Upsert(ctx context.Context, m *member.Member) error {
	return r.mapError(upsertMember(ctx, r.db, m))
}

func (r *postgresMemberRepo) Delete(ctx context.Context, login string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE login = $1`, loginKey(login))
	if err != nil {
		return r.mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrMemberNotFound
	}
	return nil
}

func (r *postgresMemberRepo) Merge(ctx context.Context, winner *member.Member, removed []string) error {
	winnerKey := loginKey(winner.Login)
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		for _, login := range removed {
			key := loginKey(login)
			if key == winnerKey {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE login = $1`, key); err != nil {
				return err
			}
		}
		return upsertMember(ctx, tx, winner)
	})
	return r.mapError(err)
}

func upsertMember(ctx context.Context, db database.DBTX, m *member.Member) error {
	const query = `
        INSERT INTO members (` + memberColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (login) DO UPDATE SET
            display_name = EXCLUDED.display_name,
            platform_id = EXCLUDED.platform_id,
            profile_url = EXCLUDED.profile_url,
            chat_id = EXCLUDED.chat_id,
            chat_handle = EXCLUDED.chat_handle,
            role = EXCLUDED.role,
            vip = EXCLUDED.vip,
            active = EXCLUDED.active,
            badges = EXCLUDED.badges,
            description = EXCLUDED.description,
            bio = EXCLUDED.bio,
            site_username = EXCLUDED.site_username,
            list_id = EXCLUDED.list_id,
            manual_override = EXCLUDED.manual_override,
            updated_at = EXCLUDED.updated_at`
	_, err := db.ExecContext(ctx, query, memberArgs(m)...)
	return err
}

func memberArgs(m *member.Member) []any {
	badges := m.Badges
	if badges == nil {
		badges = []string{}
	}
	return []any{
		loginKey(m.Login),
		m.DisplayName,
		m.PlatformID,
		m.ProfileURL,
		m.ChatID,
		m.ChatHandle,
		string(m.Role),
		m.VIP,
		m.Active,
		pq.Array(badges),
		m.Description,
		m.Bio,
		m.SiteUsername,
		m.ListID,
		m.ManualOverride,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*member.Member, error) {
	var (
		m       member.Member
		role    string
		badges  pq.StringArray
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&m.Login, &m.DisplayName, &m.PlatformID, &m.ProfileURL, &m.ChatID, &m.ChatHandle, &role,
		&m.VIP, &m.Active, &badges, &m.Description, &m.Bio, &m.SiteUsername, &m.ListID, &m.ManualOverride,
		&created, &updated); err != nil {
		return nil, err
	}
	m.Role = member.Role(role)
	m.Badges = []string(badges)
	m.CreatedAt = created.UTC()
	m.UpdatedAt = updated.UTC()
	return &m, nil
}

func (r *postgresMemberRepo) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrMemberNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", apperr.ErrLoginTaken, pqErr.Detail)
	}
	return err
}
