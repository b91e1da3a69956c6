package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/observability"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL storage adapter. Each mutation is a single
// statement, so a row is never left half written.
type Store struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewStore(pool *pgxpool.Pool, prom *observability.Prom) *Store {
	return &Store{pool: pool, prom: prom}
}

func (s *Store) observe(op string, fn func() error) error {
	return s.prom.ObserveDB(op, fn)
}

const userColumns = `id, username, email, password_hash, role, status, first_name, last_name,
	phone, department, roll_number, employee_id, last_login, created_at, updated_at`

func (s *Store) AppendUser(ctx context.Context, u user.User) error {
	err := s.observe("users.append", func() error {
		_, e := s.pool.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Status, u.FirstName, u.LastName,
			u.Phone, u.Department, u.RollNumber, u.EmployeeID, u.LastLogin, u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if IsUniqueViolation(err) {
		if constraintName(err) == "users_email_lower_uniq" {
			return store.ErrEmailAlreadyUsed
		}
		return store.ErrDuplicateUser
	}
	return err
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) error {
	var affected int64
	next := store.NextVersion(u.UpdatedAt, time.Now())

	err := s.observe("users.update", func() error {
		tag, e := s.pool.Exec(ctx, `
			UPDATE users
			SET username = $2, email = $3, password_hash = $4, role = $5, status = $6,
				first_name = $7, last_name = $8, phone = $9, department = $10,
				roll_number = $11, employee_id = $12, last_login = $13, updated_at = $14
			WHERE id = $1 AND updated_at = $15
		`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.Status,
			u.FirstName, u.LastName, u.Phone, u.Department,
			u.RollNumber, u.EmployeeID, u.LastLogin, next, u.UpdatedAt,
		)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	err = s.observe("users.exists", func() error {
		return s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, u.ID).Scan(&exists)
	})
	if err != nil {
		return err
	}
	if exists {
		return store.ErrUserChanged
	}
	return user.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := s.observe("users.list", func() error {
		rows, e := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
		if e != nil {
			return e
		}
		defer rows.Close()

		out = make([]user.User, 0)
		for rows.Next() {
			var u user.User
			if e := rows.Scan(
				&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.FirstName, &u.LastName,
				&u.Phone, &u.Department, &u.RollNumber, &u.EmployeeID, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
			); e != nil {
				return e
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	return out, err
}

const signupColumns = `id, first_name, last_name, email, phone, department, role,
	roll_number, employee_id, status, submitted_at`

func (s *Store) AppendSignupRequest(ctx context.Context, r signup.Request) error {
	err := s.observe("signup_requests.append", func() error {
		_, e := s.pool.Exec(ctx, `
			INSERT INTO signup_requests (`+signupColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`,
			r.ID, r.FirstName, r.LastName, r.Email, r.Phone, r.Department, r.Role,
			r.RollNumber, r.EmployeeID, r.Status, r.SubmittedAt,
		)
		return e
	})

	if IsUniqueViolation(err) {
		return store.ErrDuplicateSignupRequest
	}
	return err
}

func scanSignup(row pgx.Row) (signup.Request, error) {
	var r signup.Request
	err := row.Scan(
		&r.ID, &r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Department, &r.Role,
		&r.RollNumber, &r.EmployeeID, &r.Status, &r.SubmittedAt,
	)
	return r, err
}

func (s *Store) GetSignupRequest(ctx context.Context, id string) (signup.Request, error) {
	var r signup.Request

	err := s.observe("signup_requests.get", func() error {
		var e error
		r, e = scanSignup(s.pool.QueryRow(ctx, `SELECT `+signupColumns+` FROM signup_requests WHERE id = $1`, id))
		return e
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return signup.Request{}, signup.ErrNotFound
	}
	return r, err
}

// ListSignupRequests builds the WHERE clause from the filter and pages by (submitted_at, id).
func (s *Store) ListSignupRequests(ctx context.Context, filter store.SignupFilter, page store.Page) ([]signup.Request, bool, error) {
	page = page.Normalized()

	where := make([]string, 0, 5)
	args := make([]any, 0, 7)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Role != nil {
		where = append(where, "role = "+arg(string(*filter.Role)))
	}
	if filter.Department != nil {
		where = append(where, "department = "+arg(*filter.Department))
	}
	if filter.Status != nil {
		where = append(where, "status = "+arg(string(*filter.Status)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, "(first_name || ' ' || last_name ILIKE "+p+
			" OR email ILIKE "+p+" OR roll_number ILIKE "+p+" OR employee_id ILIKE "+p+" OR phone ILIKE "+p+")")
	}
	if !page.AfterSubmittedAt.IsZero() || page.AfterID != "" {
		where = append(where, "(submitted_at, id) > ("+arg(page.AfterSubmittedAt)+", "+arg(page.AfterID)+"::uuid)")
	}

	sql := `SELECT ` + signupColumns + ` FROM signup_requests`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY submitted_at, id LIMIT " + arg(page.Limit+1)

	out := make([]signup.Request, 0, page.Limit)

	err := s.observe("signup_requests.list", func() error {
		rows, e := s.pool.Query(ctx, sql, args...)
		if e != nil {
			return e
		}
		defer rows.Close()

		for rows.Next() {
			r, e := scanSignup(rows)
			if e != nil {
				return e
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, false, err
	}

	hasMore := len(out) > page.Limit
	if hasMore {
		out = out[:page.Limit]
	}
	return out, hasMore, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
