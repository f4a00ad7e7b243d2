package db

import (
	"context"

	"github.com/google/uuid"
)

var (
	documents = Table[Document]{Name: "documents", Columns: "id, name, uploaded_at, teacher_id"}
	users     = Table[User]{Name: "users", Columns: "id, username, password, role, full_name"}
)

// Documents

func (q *Queries) CreateDocument(ctx context.Context, name string, teacherID int32) (Document, error) {
	return queryOne[Document](ctx, q.db, `
		INSERT INTO documents (name, teacher_id) VALUES ($1, $2)
		RETURNING id, name, uploaded_at, teacher_id
	`, name, teacherID)
}

func (q *Queries) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	return documents.Get(ctx, q.db, id)
}

func (q *Queries) ListDocumentsByTeacher(ctx context.Context, teacherID int32) ([]Document, error) {
	return queryAll[Document](ctx, q.db, `
		SELECT id, name, uploaded_at, teacher_id
		FROM documents
		WHERE teacher_id = $1
		ORDER BY uploaded_at, id
	`, teacherID)
}

func (q *Queries) DocumentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return documents.Exists(ctx, q.db, id)
}

func (q *Queries) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	return documents.Delete(ctx, q.db, id)
}

// Users

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Role         Role
	FullName     *string
}

type UpdateUserParams struct {
	ID           int32
	Username     *string
	PasswordHash *string
	Role         *Role
	FullName     *string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return queryOne[User](ctx, q.db, `
		INSERT INTO users (username, password, role, full_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, password, role, full_name
	`, arg.Username, arg.PasswordHash, string(arg.Role), arg.FullName)
}

func (q *Queries) GetUser(ctx context.Context, id int32) (User, error) {
	return users.Get(ctx, q.db, id)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return queryOne[User](ctx, q.db, `
		SELECT id, username, password, role, full_name
		FROM users
		WHERE username = $1
	`, username)
}

func (q *Queries) ListUsers(ctx context.Context, limit, offset int32) ([]User, error) {
	return users.List(ctx, q.db, limit, offset)
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	return users.Count(ctx, q.db)
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	var role *string
	if arg.Role != nil {
		r := string(*arg.Role)
		role = &r
	}
	return queryOne[User](ctx, q.db, `
		UPDATE users
		SET username = COALESCE($2, username),
		    password = COALESCE($3, password),
		    role = COALESCE($4, role),
		    full_name = COALESCE($5, full_name)
		WHERE id = $1
		RETURNING id, username, password, role, full_name
	`, arg.ID, arg.Username, arg.PasswordHash, role, arg.FullName)
}

func (q *Queries) DeleteUser(ctx context.Context, id int32) (bool, error) {
	return users.Delete(ctx, q.db, id)
}
