package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eagleapps/user-service/internal/domain/entity"
	"github.com/eagleapps/user-service/internal/domain/repository"
	"github.com/eagleapps/user-service/pkg/helpers"
)

// UserRepository persists the user aggregate across the parent table and the
// two child tables. Every multi-statement write runs inside one pgx
// transaction with a fixed statement order: parent before children on
// create, children before parent on delete. The deferred rollback makes any
// failure or context cancellation undo the whole operation.
type UserRepository struct {
	pool   *pgxpool.Pool
	seq    *SequenceRepository
	prefix string
}

func NewUserRepository(pool *pgxpool.Pool, seq *SequenceRepository, prefix string) *UserRepository {
	return &UserRepository{pool: pool, seq: seq, prefix: prefix}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Allocate inside the transaction so an aborted create does not burn
	// visible ids out of order with the parent insert.
	n, err := r.seq.NextTx(ctx, tx, r.prefix)
	if err != nil {
		return "", err
	}
	id := helpers.FormatID(r.prefix, n)

	_, err = tx.Exec(ctx, `
		INSERT INTO feedbackapp.global_user (
			id, username, fullname, dob, email, password, mobile, is_active,
			account_non_expired, account_non_locked, credential_non_expired,
			profile_pic, created_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
	`, id, u.Username, u.Fullname, u.DOB, u.Email, u.Password, u.Mobile,
		u.Active, u.AccountNonExpired, u.AccountNonLocked, u.CredentialsNonExpired,
		u.ProfilePic)
	if err != nil {
		return "", err
	}

	if err := insertRoles(ctx, tx, id, u.Roles); err != nil {
		return "", err
	}
	if err := insertAddresses(ctx, tx, id, u.Addresses); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Email and mobile are fixed at creation and deliberately absent here.
	res, err := tx.Exec(ctx, `
		UPDATE feedbackapp.global_user SET
			fullname = $1, dob = $2, is_active = $3,
			account_non_expired = $4, account_non_locked = $5,
			credential_non_expired = $6, profile_pic = $7
		WHERE id = $8
	`, u.Fullname, u.DOB, u.Active, u.AccountNonExpired, u.AccountNonLocked,
		u.CredentialsNonExpired, u.ProfilePic, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	// Full replacement of both child sets, never a merge.
	if _, err := tx.Exec(ctx, `DELETE FROM feedbackapp.global_user_role WHERE user_id = $1`, u.ID); err != nil {
		return err
	}
	if err := insertRoles(ctx, tx, u.ID, u.Roles); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM feedbackapp.global_user_address WHERE user_id = $1`, u.ID); err != nil {
		return err
	}
	if err := insertAddresses(ctx, tx, u.ID, u.Addresses); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM feedbackapp.global_user_address WHERE user_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM feedbackapp.global_user_role WHERE user_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.Exec(ctx, `DELETE FROM feedbackapp.global_user WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username, hash string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		UPDATE feedbackapp.global_user
		SET password = $1
		WHERE username = $2
		RETURNING id
	`, hash, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *UserRepository) ExistsByEmailOrMobile(ctx context.Context, email string, mobile int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM feedbackapp.global_user WHERE email = $1 OR mobile = $2
		)
	`, email, mobile).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

const userColumns = `
	id, username, fullname, dob, email, mobile, is_active,
	account_non_expired, account_non_locked, credential_non_expired,
	profile_pic, created_date`

// The read path queries parent, roles, and addresses separately and merges
// them by parent id. Joining both child tables at once would fan the result
// out to a cross product of roles and addresses per user.
func (r *UserRepository) GetAll(ctx context.Context) ([]*entity.User, error) {
	asm := NewAssembler()

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM feedbackapp.global_user
		ORDER BY fullname
	`)
	if err != nil {
		return nil, err
	}
	if err := scanUsers(rows, asm); err != nil {
		return nil, err
	}

	if err := r.attachRoles(ctx, asm, `
		SELECT user_id, id, rolename
		FROM feedbackapp.global_user_role
		ORDER BY id
	`); err != nil {
		return nil, err
	}
	if err := r.attachAddresses(ctx, asm, `
		SELECT user_id, addr_key, addr_value
		FROM feedbackapp.global_user_address
	`); err != nil {
		return nil, err
	}

	return asm.Users(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	asm := NewAssembler()

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM feedbackapp.global_user
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if err := scanUsers(rows, asm); err != nil {
		return nil, err
	}
	users := asm.Users()
	if len(users) == 0 {
		return nil, repository.ErrNotFound
	}

	if err := r.attachRoles(ctx, asm, `
		SELECT user_id, id, rolename
		FROM feedbackapp.global_user_role
		WHERE user_id = $1
		ORDER BY id
	`, id); err != nil {
		return nil, err
	}
	if err := r.attachAddresses(ctx, asm, `
		SELECT user_id, addr_key, addr_value
		FROM feedbackapp.global_user_address
		WHERE user_id = $1
	`, id); err != nil {
		return nil, err
	}

	return users[0], nil
}

// GetByUsername serves the authentication collaborator. Roles are the only
// child relation joined here, so there is no cross-product to collapse,
// only the per-role duplication of the parent columns.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.CredentialView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.password, u.is_active,
		       u.account_non_expired, u.account_non_locked, u.credential_non_expired,
		       r.id, r.rolename
		FROM feedbackapp.global_user u
		LEFT JOIN feedbackapp.global_user_role r ON r.user_id = u.id
		WHERE u.username = $1
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var view *entity.CredentialView
	seen := make(map[int64]struct{})
	for rows.Next() {
		var (
			id, uname, password                  string
			active, nonExp, nonLocked, credNonExp bool
			roleID                               *int64
			roleName                             *string
		)
		if err := rows.Scan(&id, &uname, &password, &active, &nonExp, &nonLocked, &credNonExp, &roleID, &roleName); err != nil {
			return nil, err
		}
		if view == nil {
			view = &entity.CredentialView{
				ID:                    id,
				Username:              uname,
				Password:              password,
				Active:                active,
				AccountNonExpired:     nonExp,
				AccountNonLocked:      nonLocked,
				CredentialsNonExpired: credNonExp,
				Roles:                 []entity.Role{},
			}
		}
		if roleID != nil && roleName != nil {
			if _, dup := seen[*roleID]; !dup {
				seen[*roleID] = struct{}{}
				view.Roles = append(view.Roles, entity.Role{ID: *roleID, Name: *roleName})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if view == nil {
		return nil, repository.ErrNotFound
	}
	return view, nil
}

func scanUsers(rows pgx.Rows, asm *Assembler) error {
	defer rows.Close()
	for rows.Next() {
		var row UserRow
		if err := rows.Scan(&row.ID, &row.Username, &row.Fullname, &row.DOB,
			&row.Email, &row.Mobile, &row.Active, &row.AccountNonExpired,
			&row.AccountNonLocked, &row.CredentialsNonExpired,
			&row.ProfilePic, &row.CreatedAt); err != nil {
			return err
		}
		asm.Add(row)
	}
	return rows.Err()
}

func (r *UserRepository) attachRoles(ctx context.Context, asm *Assembler, sql string, args ...any) error {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			userID, name string
			roleID       int64
		)
		if err := rows.Scan(&userID, &roleID, &name); err != nil {
			return err
		}
		asm.AttachRole(userID, roleID, name)
	}
	return rows.Err()
}

func (r *UserRepository) attachAddresses(ctx context.Context, asm *Assembler, sql string, args ...any) error {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var userID, key, value string
		if err := rows.Scan(&userID, &key, &value); err != nil {
			return err
		}
		asm.AttachAddress(userID, key, value)
	}
	return rows.Err()
}

func insertRoles(ctx context.Context, tx pgx.Tx, userID string, roles []entity.Role) error {
	if len(roles) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, role := range roles {
		b.Queue(`INSERT INTO feedbackapp.global_user_role (user_id, rolename) VALUES ($1, $2)`, userID, role.Name)
	}
	return tx.SendBatch(ctx, b).Close()
}

func insertAddresses(ctx context.Context, tx pgx.Tx, userID string, addrs map[string]string) error {
	if len(addrs) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for key, value := range addrs {
		b.Queue(`INSERT INTO feedbackapp.global_user_address (user_id, addr_key, addr_value) VALUES ($1, $2, $3)`, userID, key, value)
	}
	return tx.SendBatch(ctx, b).Close()
}

var _ repository.UserRepository = (*UserRepository)(nil)
